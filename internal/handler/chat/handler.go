package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatModel "github.com/tracelight/defectdesk/internal/model/chat"
	"github.com/tracelight/defectdesk/internal/service/orchestrator"
	"github.com/tracelight/defectdesk/internal/service/session"
	"github.com/tracelight/defectdesk/pkg/utils"
)

// Handler serves the chat turn cycle and session lifecycle endpoints.
type Handler struct {
	orch *orchestrator.Orchestrator
}

// New creates the chat handler.
func New(orch *orchestrator.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/session/{sessionID}/history", h.handleHistory)
	r.Delete("/session/{sessionID}", h.handleDelete)
	r.Get("/health", h.handleHealth)
}

// handleChat runs one conversational turn. The X-Session-ID header wins over
// the session id in the body when both are present.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string            `json:"message"`
		SessionID string            `json:"sessionId"`
		Metadata  map[string]string `json:"metadata"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = payload.SessionID
	}

	if len(payload.Metadata) > 0 {
		log.Printf("[chat] session=%s metadata keys=%d", sessionID, len(payload.Metadata))
	}

	resp, status := h.orch.HandleMessage(r.Context(), sessionID, payload.Message)
	utils.RespondJSON(w, status, resp)
}

// handleHistory returns the stored transcript for a session.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.orch.History(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	if messages == nil {
		messages = []chatModel.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleDelete clears a session. Deleting an unknown session still succeeds.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.orch.DeleteSession(sessionID)

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":   "Session cleared successfully",
		"sessionId": sessionID,
	})
}

// handleHealth reports liveness plus the number of active sessions.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UnixMilli(),
		"activeSessions": h.orch.SessionCount(),
	})
}
