package vectorstore

import (
	"time"

	"github.com/w-h-a/sales-insight/analyzer"
)

// Record is the persisted unit of the store: one transcript, its analysis,
// and the embedding derived from its text. CreatedAt is set on first insert
// and never changes on re-upsert.
type Record struct {
	Id         string            `json:"id"`
	Text       string            `json:"text"`
	Analysis   analyzer.Analysis `json:"analysis"`
	SourceType string            `json:"source_type"`
	Embedding  []float32         `json:"embedding,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SearchHit pairs a record with its distance from the query vector. Lower
// distance means more similar.
type SearchHit struct {
	Record   Record  `json:"record"`
	Distance float64 `json:"distance"`
}

// Ref is a lightweight reference to a stored record.
type Ref struct {
	Id        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
