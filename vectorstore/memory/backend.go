package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/w-h-a/sales-insight/vectorstore"
)

type memoryBackend struct {
	options vectorstore.Options
	records map[string]vectorstore.Record
	mtx     sync.RWMutex
}

func (b *memoryBackend) Upsert(ctx context.Context, record *vectorstore.Record) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	cpy := make([]float32, len(record.Embedding))
	copy(cpy, record.Embedding)

	stored := *record
	stored.Embedding = cpy

	if existing, ok := b.records[record.Id]; ok {
		stored.CreatedAt = existing.CreatedAt
		record.CreatedAt = existing.CreatedAt
	}

	b.records[record.Id] = stored

	return nil
}

func (b *memoryBackend) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	if limit < 1 {
		return nil, nil
	}

	b.mtx.RLock()
	defer b.mtx.RUnlock()

	hits := make([]vectorstore.SearchHit, 0, len(b.records))

	for _, rec := range b.records {
		hits = append(hits, vectorstore.SearchHit{
			Record:   rec,
			Distance: vectorstore.CosineDistance(vector, rec.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Record.CreatedAt.After(hits[j].Record.CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

func (b *memoryBackend) Get(ctx context.Context, id string) (*vectorstore.Record, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	rec, ok := b.records[id]
	if !ok {
		return nil, vectorstore.ErrNotFound
	}

	return &rec, nil
}

func NewBackend(opts ...vectorstore.Option) vectorstore.Backend {
	options := vectorstore.NewOptions(opts...)

	b := &memoryBackend{
		options: options,
		records: map[string]vectorstore.Record{},
		mtx:     sync.RWMutex{},
	}

	return b
}
