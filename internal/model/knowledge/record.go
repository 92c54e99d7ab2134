package knowledge

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PassageRecord is the persisted form of an indexed chunk. Rows are
// written only by the ingest pipeline; the API reads them through
// similarity search and never mutates them.
type PassageRecord struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Content    string          `gorm:"type:text"`
	Source     string          `gorm:"type:text;index"`
	ChunkIndex int             `gorm:"default:0"`
	Embedding  pgvector.Vector `gorm:"type:vector(2048)"` // doubao-embedding emits 2048 dimensions
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (PassageRecord) TableName() string {
	return "passages"
}
