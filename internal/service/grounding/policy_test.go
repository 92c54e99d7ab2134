package grounding_test

import (
	"strings"
	"testing"

	"pracame/internal/model/knowledge"
	"pracame/internal/service/grounding"
)

func TestEvaluateEmptyResults(t *testing.T) {
	p := grounding.Policy{Threshold: 0.7}

	res := p.Evaluate(nil)
	if res.Grounded {
		t.Fatal("empty results must not ground")
	}
	if res.Context != "" {
		t.Fatalf("ungrounded context must be empty, got %q", res.Context)
	}
}

func TestEvaluateBestBelowThreshold(t *testing.T) {
	p := grounding.Policy{Threshold: 0.7}

	res := p.Evaluate([]knowledge.Passage{
		{Text: "unrelated text", Score: 0.42},
		{Text: "even less related", Score: 0.31},
	})
	if res.Grounded {
		t.Fatal("best passage below threshold must not ground")
	}
}

func TestEvaluateConcatenatesPassingPassagesInOrder(t *testing.T) {
	p := grounding.Policy{Threshold: 0.7}

	res := p.Evaluate([]knowledge.Passage{
		{Text: "first passage", Score: 0.95},
		{Text: "second passage", Score: 0.81},
		{Text: "below the bar", Score: 0.55},
	})
	if !res.Grounded {
		t.Fatal("expected grounded result")
	}

	want := "first passage" + grounding.Delimiter + "second passage"
	if res.Context != want {
		t.Fatalf("unexpected context:\n%q\nwant:\n%q", res.Context, want)
	}
	if strings.Contains(res.Context, "below the bar") {
		t.Fatal("passage below threshold leaked into context")
	}
	if strings.Count(res.Context, "first passage") != 1 {
		t.Fatal("passage appears more than once")
	}
}

func TestEvaluateSinglePassage(t *testing.T) {
	p := grounding.Policy{Threshold: 0.7}

	res := p.Evaluate([]knowledge.Passage{
		{Text: "disconnect and reconnect the cable", Score: 0.88},
	})
	if !res.Grounded {
		t.Fatal("expected grounded result")
	}
	if res.Context != "disconnect and reconnect the cable" {
		t.Fatalf("unexpected context: %q", res.Context)
	}
}
