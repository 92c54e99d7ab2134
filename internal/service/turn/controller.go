package turn

import (
	"context"
	"log"
	"strings"
	"time"

	"pracame/internal/model/convo"
	"pracame/internal/model/knowledge"
	"pracame/internal/service/answer"
	"pracame/internal/service/grounding"
	convoservice "pracame/internal/service/convo"
)

// Phase names the stages of one question→answer cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRetrieving Phase = "retrieving"
	PhaseGrounding  Phase = "grounding"
	PhaseRefusing   Phase = "refusing"
	PhaseGenerating Phase = "generating"
	PhaseCompleting Phase = "completing"
)

const (
	// RefusalAnswer is committed when retrieval finds no usable
	// evidence or the model output is too degenerate to trust.
	RefusalAnswer = "I could not find anything in the knowledge base that covers your question, so I would rather not guess. Try rephrasing it, or ask about something the manual describes."

	// DegradedAnswer is committed when the generation model fails; a
	// turn is never left pending because of a model outage.
	DegradedAnswer = "I am temporarily unable to produce an answer. Please try again in a moment."

	// minAnswerRunes guards against degenerate model output slipping
	// through as a real answer.
	minAnswerRunes = 8
)

// Searcher retrieves ranked passages for a question.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error)
}

// Generator produces answer text from an assembled prompt, optionally
// forwarding streaming deltas.
type Generator interface {
	Generate(ctx context.Context, req knowledge.PromptRequest, onDelta func(string)) (string, error)
}

// Event is emitted on every phase transition so the presentation
// surface can subscribe to state changes instead of driving them.
type Event struct {
	SessionID string      `json:"sessionId"`
	TurnID    string      `json:"turnId"`
	Phase     Phase       `json:"phase"`
	Turn      *convo.Turn `json:"turn,omitempty"`
}

// Config carries the pipeline tuning knobs.
type Config struct {
	Threshold       float64
	RetrievalK      int
	HistoryWindow   int
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
}

// Controller drives one question through retrieval, grounding and
// generation, and commits the result into the session. Per-question
// faults never escape: every submitted question ends in a completed
// turn, grounded, refused or degraded.
type Controller struct {
	searcher  Searcher
	policy    grounding.Policy
	history   convoservice.HistoryWindow
	generator Generator
	cfg       Config
	notify    func(Event)
}

// NewController wires the pipeline. notify may be nil.
func NewController(searcher Searcher, generator Generator, cfg Config, notify func(Event)) *Controller {
	return &Controller{
		searcher:  searcher,
		policy:    grounding.Policy{Threshold: cfg.Threshold},
		history:   convoservice.HistoryWindow{MaxTurns: cfg.HistoryWindow},
		generator: generator,
		cfg:       cfg,
		notify:    notify,
	}
}

// Submit runs one full turn and blocks until it is committed. It
// fails with convo.ErrTurnInFlight while the session already has a
// pending turn; no other error is returned for a valid submission.
func (c *Controller) Submit(ctx context.Context, session *convo.Session, question string) (convo.Turn, error) {
	return c.run(ctx, session, question, nil)
}

// SubmitStream behaves like Submit but forwards generation deltas to
// onDelta as they arrive. Refusal and degraded answers are never
// streamed; they only appear in the committed turn.
func (c *Controller) SubmitStream(ctx context.Context, session *convo.Session, question string, onDelta func(string)) (convo.Turn, error) {
	return c.run(ctx, session, question, onDelta)
}

func (c *Controller) run(ctx context.Context, session *convo.Session, question string, onDelta func(string)) (convo.Turn, error) {
	pending, err := session.Begin(question)
	if err != nil {
		return convo.Turn{}, err
	}

	c.emit(session.ID, pending.ID, PhaseRetrieving, nil)
	results := c.retrieve(ctx, session.ID, question)

	c.emit(session.ID, pending.ID, PhaseGrounding, nil)
	verdict := c.policy.Evaluate(results)

	var text string
	if !verdict.Grounded {
		c.emit(session.ID, pending.ID, PhaseRefusing, nil)
		log.Printf("[turn] no grounding for session=%s turn=%s, refusing", session.ID, pending.ID)
		text = RefusalAnswer
	} else {
		c.emit(session.ID, pending.ID, PhaseGenerating, nil)
		text = c.generate(ctx, session, question, verdict.Context, onDelta)
	}

	c.emit(session.ID, pending.ID, PhaseCompleting, nil)
	committed, err := session.Complete(text)
	if err != nil {
		// Only reachable if session state was corrupted externally.
		return convo.Turn{}, err
	}

	c.emit(session.ID, committed.ID, PhaseIdle, &committed)
	return committed, nil
}

// retrieve runs the similarity search with its deadline. A failing or
// unreachable index is absorbed as "no evidence": the user-facing
// outcome is the refusal message either way, so the fault is only
// logged.
func (c *Controller) retrieve(ctx context.Context, sessionID, question string) []knowledge.Passage {
	sctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	results, err := c.searcher.Search(sctx, question, c.cfg.RetrievalK)
	if err != nil {
		log.Printf("[turn] retrieval fault for session=%s, treating as no evidence: %v", sessionID, err)
		return nil
	}
	return results
}

func (c *Controller) generate(ctx context.Context, session *convo.Session, question, knowledgeContext string, onDelta func(string)) string {
	summary := c.history.Summary(session.Completed())
	req := answer.Assemble(knowledgeContext, summary, question)

	gctx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
	defer cancel()

	text, err := c.generator.Generate(gctx, req, onDelta)
	if err != nil {
		log.Printf("[turn] generation fault for session=%s: %v", session.ID, err)
		return DegradedAnswer
	}

	if len([]rune(strings.TrimSpace(text))) < minAnswerRunes {
		log.Printf("[turn] degenerate model output for session=%s (length=%d), refusing", session.ID, len(text))
		return RefusalAnswer
	}
	return text
}

func (c *Controller) emit(sessionID, turnID string, phase Phase, turn *convo.Turn) {
	if c.notify == nil {
		return
	}
	c.notify(Event{SessionID: sessionID, TurnID: turnID, Phase: phase, Turn: turn})
}
