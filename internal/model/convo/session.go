package convo

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTurnInFlight signals that a question was submitted while the
	// previous one is still being answered.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrNoPendingTurn signals a completion with nothing to complete.
	ErrNoPendingTurn = errors.New("no pending turn")
)

// Session captures one conversation. Turns are appended in submission
// order and at most one of them is pending at any time; that invariant
// is what allows the answer pipeline to run without further locking.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	mu    sync.RWMutex
	turns []*Turn
}

// NewSession provisions an empty session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		turns:     make([]*Turn, 0, 8),
	}
}

// Begin opens a new pending turn for the question. It fails with
// ErrTurnInFlight while an earlier turn is still unanswered.
func (s *Session) Begin(question string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.turns); n > 0 && !s.turns[n-1].Answered {
		return Turn{}, ErrTurnInFlight
	}

	t := &Turn{
		ID:        uuid.NewString(),
		Seq:       len(s.turns),
		Question:  question,
		CreatedAt: time.Now().UTC(),
	}
	s.turns = append(s.turns, t)
	return *t, nil
}

// Complete writes the answer into the pending turn and closes it.
func (s *Session) Complete(answer string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.turns)
	if n == 0 || s.turns[n-1].Answered {
		return Turn{}, ErrNoPendingTurn
	}

	t := s.turns[n-1]
	if err := t.complete(answer, time.Now().UTC()); err != nil {
		return Turn{}, err
	}
	return *t, nil
}

// Pending reports whether the last turn is still waiting for its answer.
func (s *Session) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.turns)
	return n > 0 && !s.turns[n-1].Answered
}

// Turns returns a copy of all turns in chronological order.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = *t
	}
	return out
}

// Completed returns only the answered turns, in chronological order.
// The pending turn, if any, is never part of this slice.
func (s *Session) Completed() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Answered {
			out = append(out, *t)
		}
	}
	return out
}
