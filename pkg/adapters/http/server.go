package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/session"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
)

// Engine defines what the HTTP adapter needs from the nodegraph core.
type Engine interface {
	Document() (*document.Document, error)
	Snapshot() (domain.GraphSnapshot, error)
	Mermaid() (string, error)
	Evaluate(ctx context.Context) (*nodegraph.Result, error)
	Recalculate(ctx context.Context, node string) (*nodegraph.Result, error)
	SetInput(ctx context.Context, node, port string, value any) (*nodegraph.Result, error)
	Dialogs() ([]int, error)
	View(dialogID int) (dialog.View, error)
	Activate(ctx context.Context, dialogID int, reset bool) (dialog.View, error)
	Input(ctx context.Context, dialogID, symbol int) (dialog.View, error)
	Conversation(ctx context.Context, mgr *session.Manager, sessionID string, fn func(context.Context, *dialog.Session) error) error
	Watch(ctx context.Context) (<-chan string, error)
}

// GraphStream is the StreamManager key for graph diffs.
const GraphStream = "graph"

// Server implements ServerInterface over an Engine.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager
	logger   *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

type handlerConfig struct {
	sessions *session.Manager
	metrics  http.Handler
	logger   *slog.Logger
	validate bool
}

// Option configures NewHandler.
type Option func(*handlerConfig)

// WithSessions enables the /sessions operations over mgr.
func WithSessions(mgr *session.Manager) Option {
	return func(c *handlerConfig) { c.sessions = mgr }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(c *handlerConfig) { c.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithoutValidation skips checking requests against the OpenAPI document.
func WithoutValidation() Option {
	return func(c *handlerConfig) { c.validate = false }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	cfg := &handlerConfig{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	server := &Server{
		Engine:   engine,
		Sessions: cfg.sessions,
		Streams:  NewStreamManager(cfg.logger),
		logger:   cfg.logger,
	}
	r := chi.NewRouter()

	if cfg.validate {
		mw, err := validationMiddleware(cfg.logger)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics)
	}

	handler := HandlerFromMux(server, r)
	return enableCORS(handler), nil
}

// validationMiddleware rejects requests that do not match the OpenAPI document.
// Paths the document does not describe pass through.
func validationMiddleware(logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("Request rejected", "path", r.URL.Path, "err", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>nodegraph API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrPortNotFound),
		errors.Is(err, domain.ErrUnknownDialog),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTypeMismatch), errors.Is(err, domain.ErrPortDirection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func (s *Server) reply(w http.ResponseWriter, op string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(op+" response encode failed", "err", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, "GetHealth", map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.reply(w, "GetInfo", map[string]string{
		"app":         "nodegraph-http",
		"version":     strings.TrimSpace(nodegraph.Version),
		"api_version": apiVersion,
	})
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Engine.Document()
	if err != nil {
		s.fail(w, "GetGraph", err)
		return
	}
	s.reply(w, "GetGraph", doc)
}

// GetGraphMermaid handles the GET /graph/mermaid request.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.Mermaid()
	if err != nil {
		s.fail(w, "GetGraphMermaid", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, out)
}

// GetSnapshot handles the GET /snapshot request.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Snapshot()
	if err != nil {
		s.fail(w, "GetSnapshot", err)
		return
	}
	s.reply(w, "GetSnapshot", snap)
}

// Evaluate handles the POST /evaluate request.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Evaluate(r.Context())
	if err != nil {
		s.fail(w, "Evaluate", err)
		return
	}
	s.publish(res)
	s.reply(w, "Evaluate", res)
}

// Recalculate handles the POST /nodes/{node}/recalculate request.
func (s *Server) Recalculate(w http.ResponseWriter, r *http.Request, node string) {
	res, err := s.Engine.Recalculate(r.Context(), node)
	if err != nil {
		s.fail(w, "Recalculate", err)
		return
	}
	s.publish(res)
	s.reply(w, "Recalculate", res)
}

// SetInput handles the PUT /nodes/{node}/inputs/{port} request.
func (s *Server) SetInput(w http.ResponseWriter, r *http.Request, node, port string) {
	var body InputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SetInput: Invalid request body", "err", err)
		return
	}
	res, err := s.Engine.SetInput(r.Context(), node, port, body.Value)
	if err != nil {
		s.fail(w, "SetInput", err)
		return
	}
	s.publish(res)
	s.reply(w, "SetInput", res)
}

// publish broadcasts the graph diff of an evaluation to GraphStream subscribers.
func (s *Server) publish(res *nodegraph.Result) {
	if res.Diff == nil {
		s.logger.Debug("No diff calculated")
		return
	}
	if bytes, err := json.Marshal(res.Diff); err == nil {
		s.Streams.Broadcast(GraphStream, string(bytes))
	}
}

// ListDialogs handles the GET /dialogs request.
func (s *Server) ListDialogs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Dialogs()
	if err != nil {
		s.fail(w, "ListDialogs", err)
		return
	}
	s.reply(w, "ListDialogs", map[string][]int{"dialogs": ids})
}

// GetDialog handles the GET /dialogs/{dialogId} request.
func (s *Server) GetDialog(w http.ResponseWriter, r *http.Request, dialogID int) {
	view, err := s.Engine.View(dialogID)
	if err != nil {
		s.fail(w, "GetDialog", err)
		return
	}
	s.reply(w, "GetDialog", view)
}

// ActivateDialog handles the POST /dialogs/{dialogId}/activate request.
func (s *Server) ActivateDialog(w http.ResponseWriter, r *http.Request, dialogID int, params ActivateParams) {
	view, err := s.Engine.Activate(r.Context(), dialogID, params.Reset != nil && *params.Reset)
	if err != nil {
		s.fail(w, "ActivateDialog", err)
		return
	}
	s.reply(w, "ActivateDialog", view)
}

// DialogInput handles the POST /dialogs/{dialogId}/input request.
func (s *Server) DialogInput(w http.ResponseWriter, r *http.Request, dialogID int) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}
	view, err := s.Engine.Input(r.Context(), dialogID, symbol)
	if err != nil {
		s.fail(w, "DialogInput", err)
		return
	}
	s.reply(w, "DialogInput", view)
}

func (s *Server) symbol(w http.ResponseWriter, r *http.Request) (int, bool) {
	var body SymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid dialog input body", "err", err)
		return 0, false
	}
	symbol, err := dialog.ParseSymbol(body.Symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return symbol, true
}

func (s *Server) requireSessions(w http.ResponseWriter) bool {
	if s.Sessions == nil {
		http.Error(w, "Session storage is not configured", http.StatusNotImplemented)
		return false
	}
	return true
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	s.reply(w, "ListSessions", map[string][]string{"sessions": ids})
}

// GetSession handles the GET /sessions/{sessionId} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !s.requireSessions(w) {
		return
	}
	state, err := s.Sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	s.reply(w, "GetSession", state)
}

// DeleteSession handles the DELETE /sessions/{sessionId} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !s.requireSessions(w) {
		return
	}
	if err := s.Sessions.Delete(r.Context(), sessionID); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateSessionDialog handles the POST /sessions/{sessionId}/dialogs/{dialogId}/activate request.
func (s *Server) ActivateSessionDialog(w http.ResponseWriter, r *http.Request, sessionID string, dialogID int, params ActivateParams) {
	if !s.requireSessions(w) {
		return
	}
	reset := params.Reset != nil && *params.Reset
	s.converse(w, r, "ActivateSessionDialog", sessionID, dialogID, func(ctx context.Context, sess *dialog.Session) error {
		_, err := sess.Activate(ctx, dialogID, reset)
		return err
	})
}

// SessionDialogInput handles the POST /sessions/{sessionId}/dialogs/{dialogId}/input request.
func (s *Server) SessionDialogInput(w http.ResponseWriter, r *http.Request, sessionID string, dialogID int) {
	if !s.requireSessions(w) {
		return
	}
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}
	s.converse(w, r, "SessionDialogInput", sessionID, dialogID, func(ctx context.Context, sess *dialog.Session) error {
		_, err := sess.Input(ctx, dialogID, symbol)
		return err
	})
}

// converse runs fn on a stored session, then replies with the conversation and
// broadcasts it to the session's subscribers.
func (s *Server) converse(w http.ResponseWriter, r *http.Request, op, sessionID string, dialogID int, fn func(context.Context, *dialog.Session) error) {
	var view dialog.View
	err := s.Engine.Conversation(r.Context(), s.Sessions, sessionID, func(ctx context.Context, sess *dialog.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		view = sess.View(dialogID)
		return nil
	})
	if err != nil {
		s.fail(w, op, err)
		return
	}
	if bytes, err := json.Marshal(view); err == nil {
		s.Streams.Broadcast(sessionID, string(bytes))
	}
	s.reply(w, op, view)
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // stream key -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for key. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(key string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan<- string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of key without blocking.
func (sm *StreamManager) Broadcast(key string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "stream", key)
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE).
// Without session_id it streams graph diffs and source changes; with it, that session's conversations.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	key := GraphStream
	if params.SessionId != nil {
		key = *params.SessionId
	}
	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	var changes <-chan string
	if key == GraphStream {
		if events, err := s.Engine.Watch(r.Context()); err == nil {
			changes = events
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected", "stream", key)
			return
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", change)
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
