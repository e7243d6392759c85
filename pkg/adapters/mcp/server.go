package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI   = "nodegraph://graph"
	mermaidURI = "nodegraph://graph/mermaid"
)

// Engine defines the interface required by the MCP server to interact with nodegraph.
type Engine interface {
	Document() (*document.Document, error)
	Mermaid() (string, error)
	Evaluate(ctx context.Context) (*nodegraph.Result, error)
	Recalculate(ctx context.Context, node string) (*nodegraph.Result, error)
	SetInput(ctx context.Context, node, port string, value any) (*nodegraph.Result, error)
	Dialogs() ([]int, error)
	Activate(ctx context.Context, dialogID int, reset bool) (dialog.View, error)
	Input(ctx context.Context, dialogID, symbol int) (dialog.View, error)
	Conversation(ctx context.Context, mgr *session.Manager, sessionID string, fn func(context.Context, *dialog.Session) error) error
}

// RecalculateArgs are the arguments of the recalculate tool.
type RecalculateArgs struct {
	Node string `json:"node"`
}

// SetInputArgs are the arguments of the set_input tool.
type SetInputArgs struct {
	Node  string `json:"node"`
	Port  string `json:"port"`
	Value string `json:"value"`
}

// DialogArgs are the arguments of the dialog tools.
type DialogArgs struct {
	DialogID  int    `json:"dialog_id"`
	SessionID string `json:"session_id,omitempty"`
	Reset     bool   `json:"reset,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
}

// DialogList is the result of list_dialogs.
type DialogList struct {
	Dialogs []int `json:"dialogs" jsonschema_description:"Dialog ids in ascending order"`
}

// Server wraps the nodegraph Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures NewServer.
type Option func(*Server)

// WithSessions lets the dialog tools work on stored sessions when a session_id is given.
func WithSessions(mgr *session.Manager) Option {
	return func(s *Server) { s.sessions = mgr }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer("nodegraph-mcp", strings.TrimSpace(nodegraph.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops it when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("evaluate",
		mcp.WithDescription("Evaluate the whole graph to a fixed point. Stuck nodes are reported, not failed."),
		mcp.WithOutputSchema[nodegraph.Result](),
	), mcp.NewStructuredToolHandler(s.handleEvaluate))

	s.mcpServer.AddTool(mcp.NewTool("recalculate",
		mcp.WithDescription("Recalculate a node and everything downstream of it."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithOutputSchema[nodegraph.Result](),
	), mcp.NewStructuredToolHandler(s.handleRecalculate))

	s.mcpServer.AddTool(mcp.NewTool("set_input",
		mcp.WithDescription("Store a value on an input port, then recalculate from its node."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("port", mcp.Required(), mcp.Description("Input port name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value; text that is not JSON is used as a string")),
		mcp.WithOutputSchema[nodegraph.Result](),
	), mcp.NewStructuredToolHandler(s.handleSetInput))

	s.mcpServer.AddTool(mcp.NewTool("list_dialogs",
		mcp.WithDescription("List the dialog ids of the graph."),
		mcp.WithOutputSchema[DialogList](),
	), mcp.NewStructuredToolHandler(s.handleListDialogs))

	s.mcpServer.AddTool(mcp.NewTool("dialog_activate",
		mcp.WithDescription("Start a conversation, or reset it to its start node."),
		mcp.WithNumber("dialog_id", mcp.Required(), mcp.Description("Dialog id")),
		mcp.WithBoolean("reset", mcp.Description("Go back to the start node with a fresh blackboard")),
		mcp.WithString("session_id", mcp.Description("Stored session to use instead of the server's own")),
		mcp.WithOutputSchema[dialog.View](),
	), mcp.NewStructuredToolHandler(s.handleDialogActivate))

	s.mcpServer.AddTool(mcp.NewTool("dialog_input",
		mcp.WithDescription("Send next, back or a choice number to an active conversation."),
		mcp.WithNumber("dialog_id", mcp.Required(), mcp.Description("Dialog id")),
		mcp.WithString("symbol", mcp.Required(), mcp.Description(`"next", "back" or a choice number`)),
		mcp.WithString("session_id", mcp.Description("Stored session to use instead of the server's own")),
		mcp.WithOutputSchema[dialog.View](),
	), mcp.NewStructuredToolHandler(s.handleDialogInput))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the graph document for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := s.graphJSON()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	})
}

func (s *Server) handleEvaluate(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (nodegraph.Result, error) {
	res, err := s.engine.Evaluate(ctx)
	if err != nil {
		return nodegraph.Result{}, fmt.Errorf("evaluate failed: %w", err)
	}
	return *res, nil
}

func (s *Server) handleRecalculate(ctx context.Context, _ mcp.CallToolRequest, args RecalculateArgs) (nodegraph.Result, error) {
	res, err := s.engine.Recalculate(ctx, args.Node)
	if err != nil {
		return nodegraph.Result{}, fmt.Errorf("recalculate failed: %w", err)
	}
	return *res, nil
}

func (s *Server) handleSetInput(ctx context.Context, _ mcp.CallToolRequest, args SetInputArgs) (nodegraph.Result, error) {
	res, err := s.engine.SetInput(ctx, args.Node, args.Port, parseValue(args.Value))
	if err != nil {
		return nodegraph.Result{}, fmt.Errorf("set_input failed: %w", err)
	}
	return *res, nil
}

// parseValue reads a tool argument as JSON, falling back to the raw text.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func (s *Server) handleListDialogs(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (DialogList, error) {
	ids, err := s.engine.Dialogs()
	if err != nil {
		return DialogList{}, err
	}
	return DialogList{Dialogs: ids}, nil
}

func (s *Server) handleDialogActivate(ctx context.Context, _ mcp.CallToolRequest, args DialogArgs) (dialog.View, error) {
	if args.SessionID == "" {
		return s.engine.Activate(ctx, args.DialogID, args.Reset)
	}
	return s.converse(ctx, args, func(ctx context.Context, sess *dialog.Session) error {
		_, err := sess.Activate(ctx, args.DialogID, args.Reset)
		return err
	})
}

func (s *Server) handleDialogInput(ctx context.Context, _ mcp.CallToolRequest, args DialogArgs) (dialog.View, error) {
	symbol, err := dialog.ParseSymbol(args.Symbol)
	if err != nil {
		s.logger.Warn("MCP dialog_input: symbol rejected", "err", err)
		return dialog.View{}, err
	}
	if args.SessionID == "" {
		return s.engine.Input(ctx, args.DialogID, symbol)
	}
	return s.converse(ctx, args, func(ctx context.Context, sess *dialog.Session) error {
		_, err := sess.Input(ctx, args.DialogID, symbol)
		return err
	})
}

func (s *Server) converse(ctx context.Context, args DialogArgs, fn func(context.Context, *dialog.Session) error) (dialog.View, error) {
	if s.sessions == nil {
		return dialog.View{}, errors.New("session storage is not configured")
	}
	var view dialog.View
	err := s.engine.Conversation(ctx, s.sessions, args.SessionID, func(ctx context.Context, sess *dialog.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		view = sess.View(args.DialogID)
		return nil
	})
	return view, err
}

func (s *Server) graphJSON() (string, error) {
	doc, err := s.engine.Document()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.graphJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to inspect graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: graphURI, MIMEType: "application/json", Text: text},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(mermaidURI, "Graph as a Mermaid flowchart",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.engine.Mermaid()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: mermaidURI, MIMEType: "text/plain", Text: text},
		}, nil
	})
}
