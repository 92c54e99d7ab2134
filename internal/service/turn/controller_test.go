package turn_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pracame/internal/model/convo"
	"pracame/internal/model/knowledge"
	"pracame/internal/service/turn"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results []knowledge.Passage
	err     error
	calls   int

	// when set, Search blocks until release is closed; started is
	// closed once the call is underway.
	started chan struct{}
	release chan struct{}
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]knowledge.Passage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		f.started = nil
		<-f.release
	}
	return f.results, f.err
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	deltas  []string
	lastReq knowledge.PromptRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req knowledge.PromptRequest, onDelta func(string)) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		for _, d := range f.deltas {
			onDelta(d)
		}
	}
	return f.text, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newController(s turn.Searcher, g turn.Generator, notify func(turn.Event)) *turn.Controller {
	return turn.NewController(s, g, turn.Config{
		Threshold:       0.7,
		RetrievalK:      4,
		HistoryWindow:   6,
		SearchTimeout:   time.Second,
		GenerateTimeout: time.Second,
	}, notify)
}

func TestSubmitGroundedQuestion(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.Passage{
		{Text: "disconnect and reconnect the cable", Score: 0.9},
	}}
	generator := &fakeGenerator{text: "Unplug the cable, wait a few seconds, then plug it back in."}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	committed, err := c.Submit(context.Background(), session, "my device won't turn on")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if !committed.Answered || committed.Answer != generator.text {
		t.Fatalf("unexpected committed turn: %+v", committed)
	}
	if session.Pending() {
		t.Fatal("session still pending after commit")
	}
	if generator.callCount() != 1 {
		t.Fatalf("expected 1 generator call, got %d", generator.callCount())
	}
	if !strings.Contains(generator.lastReq.Context, "disconnect and reconnect the cable") {
		t.Fatalf("knowledge context missing from prompt: %+v", generator.lastReq)
	}
}

func TestSubmitNoEvidenceShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{}
	generator := &fakeGenerator{text: "should never be produced"}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	committed, err := c.Submit(context.Background(), session, "what is the capital of France")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if committed.Answer != turn.RefusalAnswer {
		t.Fatalf("expected refusal answer, got %q", committed.Answer)
	}
	if generator.callCount() != 0 {
		t.Fatalf("generator must not be invoked when ungrounded, got %d calls", generator.callCount())
	}
}

func TestSubmitRetrievalFaultBecomesRefusal(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index unreachable")}
	generator := &fakeGenerator{text: "should never be produced"}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	committed, err := c.Submit(context.Background(), session, "any question")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if committed.Answer != turn.RefusalAnswer {
		t.Fatalf("retrieval fault should commit the refusal, got %q", committed.Answer)
	}
	if generator.callCount() != 0 {
		t.Fatal("generator invoked despite retrieval fault")
	}
	if session.Pending() {
		t.Fatal("turn left pending after retrieval fault")
	}
}

func TestSubmitRejectedWhileInFlight(t *testing.T) {
	searcher := &fakeSearcher{
		results: []knowledge.Passage{{Text: "evidence", Score: 0.9}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := searcher.started
	generator := &fakeGenerator{text: "a sufficiently long answer"}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), session, "first question")
		done <- err
	}()

	<-started
	if _, err := c.Submit(context.Background(), session, "second question"); !errors.Is(err, convo.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight for concurrent submission, got %v", err)
	}

	close(searcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	turns := session.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected exactly 1 turn, got %d", len(turns))
	}
}

func TestSubmitGenerationFaultCommitsDegradedAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.Passage{{Text: "evidence", Score: 0.9}}}
	generator := &fakeGenerator{err: errors.New("model timeout")}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	committed, err := c.Submit(context.Background(), session, "a question")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if committed.Answer != turn.DegradedAnswer {
		t.Fatalf("expected degraded answer, got %q", committed.Answer)
	}
	if session.Pending() {
		t.Fatal("turn left pending after generation fault")
	}
}

func TestSubmitDegenerateOutputBecomesRefusal(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.Passage{{Text: "evidence", Score: 0.9}}}
	generator := &fakeGenerator{text: "ok"}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	committed, err := c.Submit(context.Background(), session, "a question")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if committed.Answer != turn.RefusalAnswer {
		t.Fatalf("expected refusal for degenerate output, got %q", committed.Answer)
	}
}

func TestSubmitHistoryExcludesCurrentQuestion(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.Passage{{Text: "evidence", Score: 0.9}}}
	generator := &fakeGenerator{text: "an answer that is long enough"}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	if _, err := c.Submit(context.Background(), session, "first question"); err != nil {
		t.Fatalf("first Submit err: %v", err)
	}
	if _, err := c.Submit(context.Background(), session, "second question"); err != nil {
		t.Fatalf("second Submit err: %v", err)
	}

	history := generator.lastReq.History
	if !strings.Contains(history, "first question") {
		t.Fatalf("previous turn missing from history: %q", history)
	}
	if strings.Contains(history, "second question") {
		t.Fatalf("current question leaked into its own history: %q", history)
	}
}

func TestSubmitStreamForwardsDeltas(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.Passage{{Text: "evidence", Score: 0.9}}}
	generator := &fakeGenerator{text: "restart the router first", deltas: []string{"restart the ", "router first"}}
	c := newController(searcher, generator, nil)
	session := convo.NewSession()

	var got []string
	committed, err := c.SubmitStream(context.Background(), session, "internet is down", func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatalf("SubmitStream err: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(got))
	}
	if committed.Answer != generator.text {
		t.Fatalf("unexpected answer: %q", committed.Answer)
	}
}

func TestSubmitEmitsPhaseTransitions(t *testing.T) {
	searcher := &fakeSearcher{}
	generator := &fakeGenerator{}
	var phases []turn.Phase
	c := newController(searcher, generator, func(ev turn.Event) {
		phases = append(phases, ev.Phase)
	})
	session := convo.NewSession()

	if _, err := c.Submit(context.Background(), session, "anything"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	want := []turn.Phase{turn.PhaseRetrieving, turn.PhaseGrounding, turn.PhaseRefusing, turn.PhaseCompleting, turn.PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("expected %d phase events, got %d: %v", len(want), len(phases), phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d: got %s want %s", i, phases[i], want[i])
		}
	}
}
