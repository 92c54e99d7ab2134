package convo

import (
	"errors"
	"time"
)

// ErrTurnCompleted is returned when a turn that already carries an
// answer is asked to accept another one.
var ErrTurnCompleted = errors.New("turn already completed")

// Turn is a single question/answer exchange. The question is fixed at
// creation; the answer is written exactly once when the turn completes.
type Turn struct {
	ID         string    `json:"id"`
	Seq        int       `json:"seq"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer,omitempty"`
	Answered   bool      `json:"answered"`
	CreatedAt  time.Time `json:"createdAt"`
	AnsweredAt time.Time `json:"answeredAt,omitempty"`
}

func (t *Turn) complete(answer string, at time.Time) error {
	if t.Answered {
		return ErrTurnCompleted
	}
	t.Answer = answer
	t.Answered = true
	t.AnsweredAt = at
	return nil
}
