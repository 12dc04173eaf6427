package vectorstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for an absent id. Absence is a normal
// outcome, not a backend failure.
var ErrNotFound = errors.New("record not found")

// Backend is the persistence provider behind a Store. Implementations must
// preserve the CreatedAt of an existing id on Upsert and return hits in
// ascending distance order, ties broken by newer CreatedAt.
type Backend interface {
	Upsert(ctx context.Context, record *Record) error
	Search(ctx context.Context, vector []float32, limit int) ([]SearchHit, error)
	Get(ctx context.Context, id string) (*Record, error)
}
