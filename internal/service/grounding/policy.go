package grounding

import (
	"strings"

	"pracame/internal/model/knowledge"
)

// Delimiter separates passages inside the assembled knowledge context.
const Delimiter = "\n\n----\n\n"

// Policy decides whether retrieved passages are relevant enough to
// answer from. It exists to keep ungrounded answers out: when the
// verdict is negative the pipeline never reaches the generation model.
type Policy struct {
	// Threshold is the minimum similarity a passage must reach to be
	// treated as evidence. Scores are the store's normalized
	// similarity, higher is closer.
	Threshold float64
}

// Evaluate inspects the ranked results and, when grounded, builds the
// knowledge context from every passage that individually clears the
// threshold, preserving store order. An empty result set or a best
// passage below the threshold means no evidence.
func (p Policy) Evaluate(results []knowledge.Passage) knowledge.GroundingResult {
	if len(results) == 0 {
		return knowledge.GroundingResult{}
	}
	if results[0].Score < p.Threshold {
		return knowledge.GroundingResult{}
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Score < p.Threshold {
			continue
		}
		texts = append(texts, r.Text)
	}

	return knowledge.GroundingResult{
		Grounded: true,
		Context:  strings.Join(texts, Delimiter),
	}
}
