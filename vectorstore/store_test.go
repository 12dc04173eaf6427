package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/vectorstore"
	"github.com/w-h-a/sales-insight/vectorstore/memory"
)

// wordEmbedder is a deterministic stub: the vector depends only on the
// text's length and first byte.
type wordEmbedder struct{}

func (e wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var first float32
	if len(text) > 0 {
		first = float32(text[0])
	}
	return []float32{float32(len(text)), first}, nil
}

func newStore() *vectorstore.Store {
	return vectorstore.NewStore(memory.NewBackend(), wordEmbedder{})
}

func TestUpsertThenGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	analysis := analyzer.Analysis{
		Requirements:    []string{"two factor auth"},
		Recommendations: []string{"security add-on"},
		Summary:         "client asked about security",
	}

	ref, err := store.Upsert(ctx, "t1", "the transcript", analysis, "file_pdf")
	require.NoError(t, err)
	assert.Equal(t, "t1", ref.Id)
	assert.False(t, ref.CreatedAt.IsZero())

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, "the transcript", got.Text)
	assert.Equal(t, analysis, got.Analysis)
	assert.Equal(t, "file_pdf", got.SourceType)

	// The embedding is a pure function of the text under a fixed embedder.
	want, _ := wordEmbedder{}.Embed(ctx, "the transcript")
	assert.Equal(t, want, got.Embedding)
}

func TestReUpsertKeepsTimestampAndReplacesAnalysis(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	first, err := store.Upsert(ctx, "t1", "the transcript", analyzer.Analysis{Summary: "v1"}, "text")
	require.NoError(t, err)

	second, err := store.Upsert(ctx, "t1", "the transcript", analyzer.Analysis{Summary: "v2"}, "text")
	require.NoError(t, err)

	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)

	// Re-analysis fully replaces prior analysis fields.
	assert.Equal(t, "v2", got.Analysis.Summary)
}

func TestUpsertRequiresId(t *testing.T) {
	_, err := newStore().Upsert(context.Background(), "  ", "text", analyzer.Analysis{}, "text")
	require.Error(t, err)
}

func TestSearchNonPositiveTopK(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	_, err := store.Upsert(ctx, "t1", "abc", analyzer.Analysis{}, "text")
	require.NoError(t, err)

	for _, k := range []int{0, -1} {
		hits, err := store.Search(ctx, "abc", k)
		require.NoError(t, err)
		assert.Empty(t, hits)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	hits, err := newStore().Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearchReturnsAtMostK(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := store.Upsert(ctx, id, "transcript "+id, analyzer.Analysis{}, "text")
		require.NoError(t, err)
	}

	hits, err := store.Search(ctx, "transcript a", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestCapability(t *testing.T) {
	disabled := vectorstore.Disabled()
	assert.False(t, disabled.Enabled())
	assert.Nil(t, disabled.Store())

	enabled := vectorstore.Enabled(newStore())
	assert.True(t, enabled.Enabled())
	assert.NotNil(t, enabled.Store())
}
