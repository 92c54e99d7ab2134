package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	modelconvo "pracame/internal/model/convo"
	convoservice "pracame/internal/service/convo"
	turnservice "pracame/internal/service/turn"
	"pracame/pkg/utils"
)

// Handler streams one answered turn over Server-Sent Events. The turn
// state machine stays authoritative: the committed answer is always
// sent as the final message, whether or not any deltas were streamed.
type Handler struct {
	convoSvc   *convoservice.Service
	controller *turnservice.Controller
}

// New creates the stream handler.
func New(convoSvc *convoservice.Service, controller *turnservice.Controller) *Handler {
	return &Handler{convoSvc: convoSvc, controller: controller}
}

// StreamResponse is a single SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Answered  bool   `json:"answered,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest answers the question for the session, pushing
// generation deltas as they arrive and the committed turn at the end.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, question string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	session, err := h.convoSvc.Get(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return err
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	turn, err := h.controller.SubmitStream(ctx, session, question, func(delta string) {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		if errors.Is(err, modelconvo.ErrTurnInFlight) {
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "rejected",
				SessionID: sessionID,
				Error:     "a question is already being answered",
			})
			return nil
		}
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
		})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   turn.Answer,
		Answered:  true,
	})

	log.Printf("[stream] completed turn=%s for session=%s", turn.ID, sessionID)
	return nil
}
