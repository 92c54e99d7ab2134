package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pracame/internal/model/knowledge"
	convoservice "pracame/internal/service/convo"
	turnservice "pracame/internal/service/turn"
)

type stubSearcher struct {
	results []knowledge.Passage
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]knowledge.Passage, error) {
	return s.results, nil
}

type stubGenerator struct {
	text   string
	deltas []string
}

func (g *stubGenerator) Generate(_ context.Context, _ knowledge.PromptRequest, onDelta func(string)) (string, error) {
	if onDelta != nil {
		for _, d := range g.deltas {
			onDelta(d)
		}
	}
	return g.text, nil
}

func setup(results []knowledge.Passage, gen *stubGenerator) (*Handler, *convoservice.Service) {
	convoSvc := convoservice.NewService()
	controller := turnservice.NewController(&stubSearcher{results: results}, gen, turnservice.Config{
		Threshold:       0.7,
		RetrievalK:      4,
		HistoryWindow:   6,
		SearchTimeout:   time.Second,
		GenerateTimeout: time.Second,
	}, nil)
	return New(convoSvc, controller), convoSvc
}

func TestHandleStreamRequestForwardsDeltas(t *testing.T) {
	gen := &stubGenerator{text: "restart the router first", deltas: []string{"restart the ", "router first"}}
	h, convoSvc := setup([]knowledge.Passage{{Text: "evidence", Score: 0.9}}, gen)

	session, err := convoSvc.Create(context.Background())
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	resp := httptest.NewRecorder()
	if err := h.HandleStreamRequest(context.Background(), resp, session.ID, "internet is down"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	body := resp.Body.String()
	if !strings.Contains(body, `"event":"start"`) {
		t.Fatalf("missing start frame: %s", body)
	}
	if strings.Count(body, `"event":"delta"`) != 2 {
		t.Fatalf("expected 2 delta frames: %s", body)
	}
	if !strings.Contains(body, `"event":"message"`) {
		t.Fatalf("missing final message frame: %s", body)
	}
	if resp.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", resp.Header().Get("Content-Type"))
	}
}

func TestHandleStreamRequestRefusalHasNoDeltas(t *testing.T) {
	gen := &stubGenerator{text: "never produced", deltas: []string{"never"}}
	h, convoSvc := setup(nil, gen)

	session, err := convoSvc.Create(context.Background())
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	resp := httptest.NewRecorder()
	if err := h.HandleStreamRequest(context.Background(), resp, session.ID, "off-topic question"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	body := resp.Body.String()
	if strings.Contains(body, `"event":"delta"`) {
		t.Fatalf("refusal path must not stream deltas: %s", body)
	}
	if !strings.Contains(body, turnservice.RefusalAnswer) {
		t.Fatalf("final frame missing refusal answer: %s", body)
	}
}

func TestHandleStreamRequestUnknownSession(t *testing.T) {
	gen := &stubGenerator{}
	h, _ := setup(nil, gen)

	resp := httptest.NewRecorder()
	if err := h.HandleStreamRequest(context.Background(), resp, "missing", "anything"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
