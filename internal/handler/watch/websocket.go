package watch

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	convoservice "pracame/internal/service/convo"
	turnservice "pracame/internal/service/turn"
	"pracame/pkg/utils"
)

// Hub fans turn-phase events out to websocket watchers. The
// presentation surface subscribes here and re-renders from the pushed
// turn data instead of polling or driving the pipeline.
type Hub struct {
	convoSvc *convoservice.Service
	upgrader websocket.Upgrader

	mu       sync.Mutex
	watchers map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub(convoSvc *convoservice.Service) *Hub {
	return &Hub{
		convoSvc: convoSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		watchers: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// RegisterRoutes mounts the watch endpoint.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/watch", h.handleWatch)
}

// Notify pushes a turn event to every watcher of its session. Failed
// connections are dropped; a slow watcher never blocks the pipeline
// beyond its write.
func (h *Hub) Notify(ev turnservice.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.watchers[ev.SessionID]
	for conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("[watch] dropping watcher for session=%s: %v", ev.SessionID, err)
			conn.Close()
			delete(conns, conn)
		}
	}
}

func (h *Hub) handleWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.convoSvc.Get(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[watch] upgrade failed for session=%s: %v", sessionID, err)
		return
	}

	h.add(sessionID, conn)
	log.Printf("[watch] watcher connected for session=%s", sessionID)

	// Watchers only listen; the read loop exists to notice the close.
	go func() {
		defer func() {
			h.remove(sessionID, conn)
			conn.Close()
			log.Printf("[watch] watcher disconnected for session=%s", sessionID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[sessionID] == nil {
		h.watchers[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.watchers[sessionID][conn] = struct{}{}
}

func (h *Hub) remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns := h.watchers[sessionID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.watchers, sessionID)
		}
	}
}
