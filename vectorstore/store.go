package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/embedder"
)

// Store owns the transcript collection. It is the single writer of
// embeddings: every record's vector is computed here from its text, so a
// stored embedding is always consistent with the stored text.
type Store struct {
	backend  Backend
	embedder embedder.Embedder
}

func (s *Store) Upsert(ctx context.Context, id string, text string, analysis analyzer.Analysis, sourceType string) (Ref, error) {
	if len(strings.TrimSpace(id)) == 0 {
		return Ref{}, fmt.Errorf("record id is required")
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return Ref{}, fmt.Errorf("embed transcript: %w", err)
	}

	record := &Record{
		Id:         id,
		Text:       text,
		Analysis:   analysis,
		SourceType: sourceType,
		Embedding:  vector,
		CreatedAt:  time.Now().UTC(),
	}

	// The backend keeps the original CreatedAt when the id already exists.
	if err := s.backend.Upsert(ctx, record); err != nil {
		return Ref{}, fmt.Errorf("store transcript: %w", err)
	}

	return Ref{Id: record.Id, CreatedAt: record.CreatedAt}, nil
}

func (s *Store) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		return []SearchHit{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.backend.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}

	if hits == nil {
		hits = []SearchHit{}
	}

	return hits, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.backend.Get(ctx, id)
}

func NewStore(backend Backend, embedder embedder.Embedder) *Store {
	if backend == nil {
		panic("backend is required")
	}

	if embedder == nil {
		panic("embedder is required")
	}

	return &Store{
		backend:  backend,
		embedder: embedder,
	}
}
