package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"pracame/internal/config"
	"pracame/internal/model/knowledge"
)

// Indexer rebuilds the persisted passage index from a directory of
// source documents: load, split into overlapping windows, embed,
// write. The API only ever reads the result.
type Indexer struct {
	db       *gorm.DB
	embedder embedding.Embedder
	cfg      config.IngestConfig
}

// NewIndexer wires the index database and the embedding model.
func NewIndexer(db *gorm.DB, embedder embedding.Embedder, cfg config.IngestConfig) *Indexer {
	return &Indexer{db: db, embedder: embedder, cfg: cfg}
}

// Rebuild replaces the index contents with freshly embedded chunks of
// every document under the configured directory. It returns the
// number of indexed chunks.
func (ix *Indexer) Rebuild(ctx context.Context) (int, error) {
	docs, err := LoadDocuments(ix.cfg.DocsDir)
	if err != nil {
		return 0, err
	}

	if err := ix.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return 0, fmt.Errorf("enable pgvector extension: %w", err)
	}
	if err := ix.db.WithContext(ctx).AutoMigrate(&knowledge.PassageRecord{}); err != nil {
		return 0, fmt.Errorf("migrate passages table: %w", err)
	}

	var records []knowledge.PassageRecord
	for _, doc := range docs {
		chunks := SplitText(doc.Content, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)
		log.Printf("[ingest] %s: %d chunks", doc.Path, len(chunks))

		embedded, err := ix.embedChunks(ctx, chunks)
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", doc.Path, err)
		}

		for i, chunk := range chunks {
			records = append(records, knowledge.PassageRecord{
				Content:    chunk,
				Source:     doc.Path,
				ChunkIndex: i,
				Embedding:  pgvector.NewVector(embedded[i]),
			})
		}
	}

	// Rebuild from scratch so removed documents disappear from search.
	err = ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("TRUNCATE TABLE passages").Error; err != nil {
			return err
		}
		return tx.CreateInBatches(records, 100).Error
	})
	if err != nil {
		return 0, fmt.Errorf("write passages: %w", err)
	}

	return len(records), nil
}

func (ix *Indexer) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		vectors, err := ix.embedder.EmbedStrings(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding model returned %d vectors for %d chunks", len(vectors), end-start)
		}

		for _, vec := range vectors {
			out = append(out, toFloat32(vec))
		}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
