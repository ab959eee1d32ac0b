// Package tools binds each gateway capability to the RPC surface. Handlers
// validate first, touch state second, and convert every fault into a
// structured error payload; nothing from the core escapes uncaught.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/quiverlab/toolgate/internal/config"
	"github.com/quiverlab/toolgate/internal/fault"
	conv "github.com/quiverlab/toolgate/internal/model/conversation"
	"github.com/quiverlab/toolgate/internal/security"
	"github.com/quiverlab/toolgate/internal/service/ai"
	"github.com/quiverlab/toolgate/internal/service/conversation"
	"github.com/quiverlab/toolgate/internal/service/document"
	"github.com/quiverlab/toolgate/internal/service/shell"
	"github.com/quiverlab/toolgate/internal/service/webfetch"
	"github.com/quiverlab/toolgate/pkg/utils"
)

// Backend is the model invocation consumed by query and search.
// *ai.Service satisfies it; tests substitute a stub.
type Backend interface {
	Generate(ctx context.Context, history []conv.Message, query string) (string, *ai.Usage, error)
}

// Handler orchestrates the security gates, the stores, and the backend.
type Handler struct {
	cfg     config.SecurityConfig
	backend Backend
	store   *conversation.Store
	cache   *document.Cache
	paths   *security.PathGuard
	fetcher *webfetch.Fetcher
	runner  *shell.Runner
}

// New wires a handler over its collaborators.
func New(cfg config.SecurityConfig, backend Backend, store *conversation.Store, cache *document.Cache) *Handler {
	return &Handler{
		cfg:     cfg,
		backend: backend,
		store:   store,
		cache:   cache,
		paths:   security.NewPathGuard(cfg.AllowedDirs...),
		fetcher: webfetch.NewFetcher(),
		runner:  shell.NewRunner(cfg.EnableExec),
	}
}

// RegisterRoutes registers the tool listing and dispatch endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tools", h.handleList)
	r.Post("/tools/{tool}", h.handleCall)
}

var toolNames = []string{
	"query", "search", "fetch", "web_fetch",
	"read_file", "write_file", "execute_command",
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"tools": toolNames})
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")

	switch tool {
	case "query":
		h.handleQuery(w, r)
	case "search":
		h.handleSearch(w, r)
	case "fetch":
		h.handleFetch(w, r)
	case "web_fetch":
		h.handleWebFetch(w, r)
	case "read_file":
		h.handleReadFile(w, r)
	case "write_file":
		h.handleWriteFile(w, r)
	case "execute_command":
		h.handleExecuteCommand(w, r)
	default:
		utils.RespondError(w, http.StatusNotFound, "unknown tool: "+tool)
	}
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt          string      `json:"prompt"`
		Parts           []conv.Part `json:"parts,omitempty"`
		SessionID       string      `json:"sessionId,omitempty"`
		UseConversation bool        `json:"useConversation,omitempty"`
	}
	if !decode(w, r, &payload) {
		return
	}

	if err := security.ValidateText(payload.Prompt, "Prompt", h.cfg.MaxPromptLen); err != nil {
		respondFault(w, "query", err)
		return
	}
	if err := security.ValidateParts(payload.Parts, h.cfg.MaxParts, h.cfg.MaxInlineBytes); err != nil {
		respondFault(w, "query", err)
		return
	}

	ctx := r.Context()
	var history []conv.Message
	sessionID := ""
	if payload.UseConversation {
		sessionID = payload.SessionID
		if sessionID != "" {
			if sess, ok := h.store.Get(ctx, sessionID); ok {
				history = sess.Messages
			} else {
				sessionID = ""
			}
		}
		if sessionID == "" {
			sessionID = h.store.Create(ctx)
		}
	}

	prompt := foldParts(payload.Prompt, payload.Parts)
	response, usage, err := h.backend.Generate(ctx, history, prompt)
	if err != nil {
		respondFault(w, "query", err)
		return
	}

	// both turns land only after the backend succeeded
	if payload.UseConversation {
		h.store.Append(ctx, sessionID, conv.Message{Role: conv.RoleUser, Content: payload.Prompt})
		h.store.Append(ctx, sessionID, conv.Message{Role: conv.RoleAssistant, Content: response})
	}

	result := map[string]any{"response": response}
	if sessionID != "" {
		result["sessionId"] = sessionID
	}
	if usage != nil {
		result["usage"] = usage
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &payload) {
		return
	}

	if err := security.ValidateText(payload.Query, "Query", h.cfg.MaxQueryLen); err != nil {
		respondFault(w, "search", err)
		return
	}

	response, _, err := h.backend.Generate(r.Context(), nil, searchPrompt(payload.Query))
	if err != nil {
		respondFault(w, "search", err)
		return
	}

	results := h.synthesizeResults(payload.Query, response)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &payload) {
		return
	}

	doc, ok := h.cache.Get(payload.ID)
	if !ok {
		// a stale id is an expected caller mistake, not a fault
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"message": "document not found or expired; run a search first",
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"found": true, "document": doc})
}

func (h *Handler) handleWebFetch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		URL string `json:"url"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.fetcher.Fetch(r.Context(), payload.URL)
	if err != nil {
		respondFault(w, "web_fetch", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleReadFile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path string `json:"path"`
	}
	if !decode(w, r, &payload) {
		return
	}

	resolved, err := h.paths.AssertAllowed(payload.Path)
	if err != nil {
		respondFault(w, "read_file", err)
		return
	}
	if err := h.paths.CheckReadable(resolved); err != nil {
		respondFault(w, "read_file", err)
		return
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		respondFault(w, "read_file", &fault.ToolExecutionError{Tool: "read_file", Reason: "read failed", Cause: err})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"path": resolved, "content": string(content)})
}

func (h *Handler) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if !decode(w, r, &payload) {
		return
	}

	if !h.cfg.EnableWrite {
		respondFault(w, "write_file", fault.Securityf("file writes are disabled; set TOOLGATE_ENABLE_WRITE=true to opt in"))
		return
	}

	resolved, err := h.paths.AssertAllowed(payload.Path)
	if err != nil {
		respondFault(w, "write_file", err)
		return
	}
	if err := h.paths.CheckWritable(resolved); err != nil {
		respondFault(w, "write_file", err)
		return
	}

	if err := atomicWrite(resolved, []byte(payload.Content)); err != nil {
		respondFault(w, "write_file", &fault.ToolExecutionError{Tool: "write_file", Reason: "write failed", Cause: err})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"path": resolved, "bytesWritten": len(payload.Content)})
}

func (h *Handler) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Command string `json:"command"`
	}
	if !decode(w, r, &payload) {
		return
	}

	res, err := h.runner.Run(r.Context(), payload.Command)
	if err != nil {
		respondFault(w, "execute_command", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondFault maps the fault taxonomy onto statuses. Messages are built
// from known-safe fields; raw internals only reach the sanitized log line.
func respondFault(w http.ResponseWriter, tool string, err error) {
	var verr *fault.ValidationError
	var serr *fault.SecurityError
	var terr *fault.ToolExecutionError
	var uerr *fault.UpstreamError

	switch {
	case errors.As(err, &verr):
		utils.RespondError(w, http.StatusBadRequest, verr.Reason)
	case errors.As(err, &serr):
		utils.RespondError(w, http.StatusForbidden, serr.Reason)
	case errors.As(err, &terr):
		status := http.StatusBadGateway
		if terr.Timeout {
			status = http.StatusGatewayTimeout
		}
		log.Printf("[tools] %s failed: %v", tool, security.Sanitize(terr.Error()))
		utils.RespondError(w, status, terr.Tool+": "+terr.Reason)
	case errors.As(err, &uerr):
		log.Printf("[tools] %s backend failure: %v", tool, security.Sanitize(uerr.Error()))
		utils.RespondError(w, http.StatusBadGateway, "backend model call failed")
	default:
		log.Printf("[tools] %s unexpected error: %v", tool, security.Sanitize(err.Error()))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
