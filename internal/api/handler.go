// Package api serves the Academate chat UI, its JSON API and the MCP
// endpoint over HTTP.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/academate/internal/agent"
	"github.com/kalambet/academate/internal/session"
	"github.com/kalambet/academate/internal/tools"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	defaultSessionID   = "default"
)

//go:embed web/index.html
var indexHTML []byte

// Asker answers a question within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (string, error)
}

// ToolCaller lists and executes tools.
type ToolCaller interface {
	Tools() []mcp.Tool
	Call(ctx context.Context, name string, args tools.Args) (string, error)
}

// Deps holds the collaborators of the HTTP handler.
type Deps struct {
	Agent    Asker // nil when no model is configured
	Tools    ToolCaller
	Sessions session.Store
	Token    string       // optional bearer token for /api
	MCP      http.Handler // optional streamable MCP transport
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// HistoryResponse is returned by GET /api/session/{id}/history.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	History   []session.Entry `json:"history"`
}

// SessionsResponse is returned by GET /api/sessions.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// ToolResponse is returned by POST /api/tools/{name}.
type ToolResponse struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewHandler returns the root HTTP handler.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleIndex)
	r.Get("/health", handleHealth(deps))

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/chat", handleChat(deps))
		r.Get("/sessions", handleListSessions(deps))
		r.Get("/session/{id}/history", handleHistory(deps))
		r.Delete("/session/{id}", handleClearSession(deps))
		r.Get("/tools", handleListTools(deps))
		r.Post("/tools/{name}", handleCallTool(deps))
	})

	if deps.MCP != nil {
		r.Handle("/mcp", deps.MCP)
	}

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := "ready"
		if deps.Agent == nil {
			state = "not_initialized"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "agent": state})
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		req.SessionID = strings.TrimSpace(req.SessionID)
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}
		if req.SessionID == "" {
			req.SessionID = defaultSessionID
		}

		if deps.Agent == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "agent not initialized")
			return
		}

		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		start := time.Now()

		answer, err := deps.Agent.Ask(r.Context(), req.SessionID, req.Message)
		if err != nil {
			slog.Error("chat failed", "request_id", reqID, "session", req.SessionID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "error processing message: %v", err)
			return
		}
		if strings.TrimSpace(answer) == "" {
			answer = agent.EmptyAnswer
		}

		slog.Info("chat answered", "request_id", reqID, "session", req.SessionID, "duration_ms", time.Since(start).Milliseconds())
		writeJSON(w, http.StatusOK, ChatResponse{Response: answer, SessionID: req.SessionID})
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		limit := parseIntParam(r, "limit", 0, 1000)

		h, err := deps.Sessions.History(r.Context(), id, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read history: %v", err)
			return
		}
		if h == nil {
			h = []session.Entry{}
		}
		writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, History: h})
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := deps.Sessions.Sessions(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sessions: %v", err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, SessionsResponse{Sessions: ids})
	}
}

func handleClearSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Clear(r.Context(), id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "session_id": id})
	}
}

func handleListTools(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": deps.Tools.Tools()})
	}
}

func handleCallTool(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		name := chi.URLParam(r, "name")
		args := tools.Args{}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		out, err := deps.Tools.Call(r.Context(), name, args)
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
			return
		case errors.Is(err, tools.ErrInvalidArgument):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "tool failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, ToolResponse{Tool: name, Result: out})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Field() == "SessionID" {
			field = "session_id"
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
