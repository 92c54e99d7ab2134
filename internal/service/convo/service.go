package convo

import (
	"context"
	"errors"
	"sync"

	"pracame/internal/model/convo"
)

// ErrSessionNotFound is returned for unknown session identifiers.
var ErrSessionNotFound = errors.New("session not found")

// Service is the in-memory session registry. Sessions are fully
// independent of each other; all per-conversation state lives inside
// the Session itself.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*convo.Session
}

// NewService bootstraps an empty registry.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*convo.Session),
	}
}

// Create provisions a new empty session.
func (s *Service) Create(_ context.Context) (*convo.Session, error) {
	session := convo.NewSession()

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by identifier.
func (s *Service) Get(_ context.Context, sessionID string) (*convo.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
