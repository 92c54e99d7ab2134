package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pracame/internal/handler/session"
	"pracame/internal/handler/stream"
	"pracame/internal/handler/watch"
	middlewarePkg "pracame/internal/middleware"
	convoservice "pracame/internal/service/convo"
	turnservice "pracame/internal/service/turn"
	"pracame/pkg/utils"
)

// NewRouter wires HTTP routes to the core services.
func NewRouter(convoSvc *convoservice.Service, controller *turnservice.Controller, hub *watch.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := session.New(convoSvc, controller)
	streamHandler := stream.New(convoSvc, controller)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		hub.RegisterRoutes(api)

		api.Get("/sessions/{sessionID}/stream", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			question := r.URL.Query().Get("question")

			if question == "" {
				utils.RespondError(w, http.StatusBadRequest, "question query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, question); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
