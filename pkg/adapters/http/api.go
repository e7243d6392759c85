package http

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// rawSpec returns the embedded OpenAPI document.
func rawSpec() ([]byte, error) {
	return specYAML, nil
}

// GetSwagger parses the embedded OpenAPI document. The result is shared; do not modify it.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		swaggerDoc, swaggerErr = loader.LoadFromData(specYAML)
		if swaggerErr == nil {
			swaggerErr = swaggerDoc.Validate(context.Background())
		}
	})
	return swaggerDoc, swaggerErr
}

// ServerInterface lists the operations of the embedded OpenAPI document.
type ServerInterface interface {
	GetHealth(w http.ResponseWriter, r *http.Request)
	GetInfo(w http.ResponseWriter, r *http.Request)
	GetGraph(w http.ResponseWriter, r *http.Request)
	GetGraphMermaid(w http.ResponseWriter, r *http.Request)
	GetSnapshot(w http.ResponseWriter, r *http.Request)
	Evaluate(w http.ResponseWriter, r *http.Request)
	Recalculate(w http.ResponseWriter, r *http.Request, node string)
	SetInput(w http.ResponseWriter, r *http.Request, node, port string)
	ListDialogs(w http.ResponseWriter, r *http.Request)
	GetDialog(w http.ResponseWriter, r *http.Request, dialogID int)
	ActivateDialog(w http.ResponseWriter, r *http.Request, dialogID int, params ActivateParams)
	DialogInput(w http.ResponseWriter, r *http.Request, dialogID int)
	ListSessions(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request, sessionID string)
	DeleteSession(w http.ResponseWriter, r *http.Request, sessionID string)
	ActivateSessionDialog(w http.ResponseWriter, r *http.Request, sessionID string, dialogID int, params ActivateParams)
	SessionDialogInput(w http.ResponseWriter, r *http.Request, sessionID string, dialogID int)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams)
}

// ActivateParams holds the query parameters of the activate operations.
type ActivateParams struct {
	Reset *bool `form:"reset,omitempty" json:"reset,omitempty"`
}

// SubscribeEventsParams holds the query parameters of GET /events.
type SubscribeEventsParams struct {
	SessionId *string `form:"session_id,omitempty" json:"session_id,omitempty"`
}

// InputRequest is the body of PUT /nodes/{node}/inputs/{port}.
type InputRequest struct {
	Value any `json:"value"`
}

// SymbolRequest is the body of the dialog input operations.
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// serverWrapper binds request parameters and calls the ServerInterface.
type serverWrapper struct {
	handler ServerInterface
}

func badParam(w http.ResponseWriter, name string, err error) {
	http.Error(w, fmt.Sprintf("Invalid format for parameter %s: %v", name, err), http.StatusBadRequest)
}

func pathString(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		badParam(w, name, err)
		return "", false
	}
	return v, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	var v int
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		badParam(w, name, err)
		return 0, false
	}
	return v, true
}

func activateParams(w http.ResponseWriter, r *http.Request) (ActivateParams, bool) {
	var params ActivateParams
	if err := runtime.BindQueryParameter("form", true, false, "reset", r.URL.Query(), &params.Reset); err != nil {
		badParam(w, "reset", err)
		return params, false
	}
	return params, true
}

func (sw *serverWrapper) Recalculate(w http.ResponseWriter, r *http.Request) {
	if node, ok := pathString(w, r, "node"); ok {
		sw.handler.Recalculate(w, r, node)
	}
}

func (sw *serverWrapper) SetInput(w http.ResponseWriter, r *http.Request) {
	node, ok := pathString(w, r, "node")
	if !ok {
		return
	}
	if port, ok := pathString(w, r, "port"); ok {
		sw.handler.SetInput(w, r, node, port)
	}
}

func (sw *serverWrapper) GetDialog(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathInt(w, r, "dialogId"); ok {
		sw.handler.GetDialog(w, r, id)
	}
}

func (sw *serverWrapper) ActivateDialog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "dialogId")
	if !ok {
		return
	}
	if params, ok := activateParams(w, r); ok {
		sw.handler.ActivateDialog(w, r, id, params)
	}
}

func (sw *serverWrapper) DialogInput(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathInt(w, r, "dialogId"); ok {
		sw.handler.DialogInput(w, r, id)
	}
}

func (sw *serverWrapper) GetSession(w http.ResponseWriter, r *http.Request) {
	if sid, ok := pathString(w, r, "sessionId"); ok {
		sw.handler.GetSession(w, r, sid)
	}
}

func (sw *serverWrapper) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if sid, ok := pathString(w, r, "sessionId"); ok {
		sw.handler.DeleteSession(w, r, sid)
	}
}

func (sw *serverWrapper) ActivateSessionDialog(w http.ResponseWriter, r *http.Request) {
	sid, ok := pathString(w, r, "sessionId")
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "dialogId")
	if !ok {
		return
	}
	if params, ok := activateParams(w, r); ok {
		sw.handler.ActivateSessionDialog(w, r, sid, id, params)
	}
}

func (sw *serverWrapper) SessionDialogInput(w http.ResponseWriter, r *http.Request) {
	sid, ok := pathString(w, r, "sessionId")
	if !ok {
		return
	}
	if id, ok := pathInt(w, r, "dialogId"); ok {
		sw.handler.SessionDialogInput(w, r, sid, id)
	}
}

func (sw *serverWrapper) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, false, "session_id", r.URL.Query(), &params.SessionId); err != nil {
		badParam(w, "session_id", err)
		return
	}
	sw.handler.SubscribeEvents(w, r, params)
}

// HandlerFromMux registers the operations of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	sw := &serverWrapper{handler: si}

	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	r.Get("/graph", si.GetGraph)
	r.Get("/graph/mermaid", si.GetGraphMermaid)
	r.Get("/snapshot", si.GetSnapshot)
	r.Post("/evaluate", si.Evaluate)
	r.Post("/nodes/{node}/recalculate", sw.Recalculate)
	r.Put("/nodes/{node}/inputs/{port}", sw.SetInput)
	r.Get("/dialogs", si.ListDialogs)
	r.Get("/dialogs/{dialogId}", sw.GetDialog)
	r.Post("/dialogs/{dialogId}/activate", sw.ActivateDialog)
	r.Post("/dialogs/{dialogId}/input", sw.DialogInput)
	r.Get("/sessions", si.ListSessions)
	r.Get("/sessions/{sessionId}", sw.GetSession)
	r.Delete("/sessions/{sessionId}", sw.DeleteSession)
	r.Post("/sessions/{sessionId}/dialogs/{dialogId}/activate", sw.ActivateSessionDialog)
	r.Post("/sessions/{sessionId}/dialogs/{dialogId}/input", sw.SessionDialogInput)
	r.Get("/events", sw.SubscribeEvents)
	return r
}
