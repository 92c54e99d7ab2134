package retrieval

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"pracame/internal/model/knowledge"
)

// Searcher is the narrow contract the answer pipeline retrieves
// evidence through. Results come back ordered by descending score and
// an empty index yields an empty slice, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error)
}

// Store answers similarity queries against the pgvector passage index
// built by the ingest pipeline. It is read-only and safe for
// concurrent use across sessions.
type Store struct {
	db       *gorm.DB
	embedder embedding.Embedder
}

// NewStore wires the index database and the embedding model together.
func NewStore(db *gorm.DB, embedder embedding.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

type passageRow struct {
	Content string
	Source  string
	Score   float64
}

// Search embeds the query and returns the k closest passages.
// pgvector's <=> operator yields cosine distance; scores are
// normalized here, once, to similarity so every caller can read
// "higher is closer" without knowing the operator's convention.
func (s *Store) Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error) {
	if k <= 0 {
		k = 4
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: model returned no vector")
	}

	vec := pgvector.NewVector(toFloat32(vectors[0]))

	var rows []passageRow
	err = s.db.WithContext(ctx).
		Raw(`SELECT content, source, 1 - (embedding <=> ?) AS score
		     FROM passages
		     ORDER BY embedding <=> ?
		     LIMIT ?`, vec, vec, k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	passages := make([]knowledge.Passage, 0, len(rows))
	for _, r := range rows {
		passages = append(passages, knowledge.Passage{
			Text:   r.Content,
			Source: r.Source,
			Score:  r.Score,
		})
	}
	return passages, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
