package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/w-h-a/sales-insight/vectorstore"
)

type qdrantBackend struct {
	options vectorstore.Options
	client  *http.Client
}

func (b *qdrantBackend) Upsert(ctx context.Context, record *vectorstore.Record) error {
	// Keep the original CreatedAt when the id is already stored.
	if existing, err := b.Get(ctx, record.Id); err == nil {
		record.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, vectorstore.ErrNotFound) {
		return err
	}

	payload := map[string]any{
		"id":          record.Id,
		"text":        record.Text,
		"analysis":    record.Analysis,
		"source_type": record.SourceType,
		"created_at":  record.CreatedAt.Format(time.RFC3339Nano),
	}

	point := map[string]any{
		"id":      pointId(record.Id),
		"vector":  record.Embedding,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(b.options.Collection))

	if err := b.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func (b *qdrantBackend) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	if limit < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_vector":  true,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantPoint]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(b.options.Collection))

	if err := b.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	hits := make([]vectorstore.SearchHit, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		// Qdrant reports cosine similarity; rank by distance.
		hits = append(hits, vectorstore.SearchHit{
			Record:   point.toRecord(),
			Distance: 1.0 - point.Score,
		})
	}

	return hits, nil
}

func (b *qdrantBackend) Get(ctx context.Context, id string) (*vectorstore.Record, error) {
	path := fmt.Sprintf("/collections/%s/points/%s", url.PathEscape(b.options.Collection), url.PathEscape(pointId(id)))

	var rsp qdrantEnvelope[qdrantPoint]

	if err := b.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil, vectorstore.ErrNotFound
		}
		return nil, err
	}

	if len(rsp.Result.Id) == 0 {
		return nil, vectorstore.ErrNotFound
	}

	record := rsp.Result.toRecord()

	return &record, nil
}

func (b *qdrantBackend) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := b.options.Location + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(b.options.ApiKey) > 0 {
		request.Header.Set("api-key", b.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+b.options.ApiKey)
	}

	response, err := b.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (b *qdrantBackend) configure() error {
	exists, err := b.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return b.createCollection()
}

func (b *qdrantBackend) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(b.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := b.do(context.Background(), http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (b *qdrantBackend) createCollection() error {
	distance := b.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     b.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(b.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := b.do(context.Background(), http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

// NewBackend returns an error instead of panicking on an unreachable
// cluster so callers can fall back to a disabled capability.
func NewBackend(opts ...vectorstore.Option) (vectorstore.Backend, error) {
	options := vectorstore.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant backend")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	b := &qdrantBackend{
		options: options,
		client:  client,
	}

	if err := b.configure(); err != nil {
		return nil, fmt.Errorf("configure qdrant collection: %w", err)
	}

	return b, nil
}
