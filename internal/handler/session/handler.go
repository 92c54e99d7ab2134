package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	modelconvo "pracame/internal/model/convo"
	convoservice "pracame/internal/service/convo"
	turnservice "pracame/internal/service/turn"
	"pracame/pkg/utils"
)

// Handler exposes session lifecycle and question submission over HTTP.
type Handler struct {
	convoSvc   *convoservice.Service
	controller *turnservice.Controller
}

// New creates the session handler.
func New(convoSvc *convoservice.Service, controller *turnservice.Controller) *Handler {
	return &Handler{convoSvc: convoSvc, controller: controller}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Get("/sessions/{sessionID}/turns", h.handleListTurns)
	r.Post("/sessions/{sessionID}/ask", h.handleAsk)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.convoSvc.Create(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"id":        session.ID,
		"createdAt": session.CreatedAt,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"id":        session.ID,
		"createdAt": session.CreatedAt,
		"pending":   session.Pending(),
		"turns":     session.Turns(),
	})
}

func (h *Handler) handleListTurns(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"pending": session.Pending(),
		"turns":   session.Turns(),
	})
}

// handleAsk runs a full question→answer cycle and blocks until the
// turn is committed. A submission while another turn is in flight is
// rejected with 409 rather than queued.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var payload struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := strings.TrimSpace(payload.Question)
	if question == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}

	turn, err := h.controller.Submit(r.Context(), session, question)
	if err != nil {
		if errors.Is(err, modelconvo.ErrTurnInFlight) {
			utils.RespondError(w, http.StatusConflict, "a question is already being answered")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) (*modelconvo.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.convoSvc.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}
