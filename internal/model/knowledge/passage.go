package knowledge

// Passage is an immutable unit of retrieved knowledge. Score is a
// cosine similarity in the store's normalized convention: higher is
// closer, 1.0 is an exact match.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// GroundingResult is the per-question verdict on whether retrieved
// evidence suffices to answer. Context is empty when not grounded.
type GroundingResult struct {
	Grounded bool   `json:"grounded"`
	Context  string `json:"context"`
}

// PromptRequest is the fully assembled payload handed to the
// generation model. Built fresh each turn, discarded afterwards.
type PromptRequest struct {
	Instructions string
	Context      string
	History      string
	Question     string
}
