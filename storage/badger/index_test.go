package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

func newTestIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func makeEntry(metric core.MetricType, day core.Day, vector []float32) *core.VectorEntry {
	text := string(metric) + " summary for " + string(day)
	return &core.VectorEntry{
		ID:           core.MakeChunkID(metric, day, "doc-"+string(day), 1),
		Text:         text,
		Metric:       metric,
		Day:          day,
		SourceID:     "doc-" + string(day),
		ModelVersion: "embed-v1",
		Fingerprint:  core.FingerprintText(text),
		Vector:       core.NormalizeVector(vector),
	}
}

func TestIndex_UpsertAndGet(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})
	require.NoError(t, idx.Upsert(ctx, entry))

	got, err := idx.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Text, got.Text)
	assert.Equal(t, entry.Fingerprint, got.Fingerprint)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.False(t, got.InsertedAt.IsZero())
}

func TestIndex_Get_NotFound(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Get(context.Background(), "sleep:2024-03-01:missing:v1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndex_Upsert_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})
	require.NoError(t, idx.Upsert(ctx, entry))

	first, err := idx.Get(ctx, entry.ID)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	again := makeEntry(core.MetricSleep, "2024-03-01", []float32{0, 1, 0})
	require.NoError(t, idx.Upsert(ctx, again))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-upsert under the same id must not grow the index")

	second, err := idx.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, again.Vector, second.Vector, "overwrite must take the new vector")
	assert.Equal(t, first.InsertedAt, second.InsertedAt, "InsertedAt survives overwrites")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestIndex_Upsert_RejectsInvalidEntry(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Upsert(context.Background(), &core.VectorEntry{ID: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidEntry)
}

func TestIndex_Query_RanksBySimilarity(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	near := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0.1, 0})
	far := makeEntry(core.MetricSleep, "2024-03-02", []float32{0, 1, 0})
	require.NoError(t, idx.Upsert(ctx, near))
	require.NoError(t, idx.Upsert(ctx, far))

	query := core.NormalizeVector([]float32{1, 0, 0})
	results, err := idx.Query(ctx, query, "embed-v1", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, near.ID, results[0].Entry.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, core.DotProduct(query, core.NormalizeVector([]float32{1, 0, 0})), 0.0001)
}

func TestIndex_Query_TruncatesToK(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for day := 1; day <= 9; day++ {
		d := core.Day("2024-03-0" + string(rune('0'+day)))
		require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricActivity, d, []float32{1, float32(day), 0})))
	}

	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 1, 0}), "embed-v1", 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestIndex_Query_ModelVersionIsolation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	oldModel := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})
	oldModel.ModelVersion = "embed-v0"
	require.NoError(t, idx.Upsert(ctx, oldModel))

	current := makeEntry(core.MetricSleep, "2024-03-02", []float32{0, 1, 0})
	require.NoError(t, idx.Upsert(ctx, current))

	// The v0 entry is a perfect match for the query vector but must be
	// excluded under the v1 model.
	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, current.ID, results[0].Entry.ID)
}

func TestIndex_Query_MetricFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricActivity, "2024-03-01", []float32{1, 0, 0})))

	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 10,
		&storage.Filter{Metric: core.MetricSleep})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.MetricSleep, results[0].Entry.Metric)
}

func TestIndex_Query_DayRangeFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	days := []core.Day{"2024-03-01", "2024-03-05", "2024-03-10", "2024-03-15"}
	for _, d := range days {
		require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricReadiness, d, []float32{1, 0, 0})))
	}

	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 10,
		&storage.Filter{FromDay: "2024-03-05", ToDay: "2024-03-10"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, string(r.Entry.Day), "2024-03-05")
		assert.LessOrEqual(t, string(r.Entry.Day), "2024-03-10")
	}
}

func TestIndex_Query_OpenEndedDayRange(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricReadiness, "2024-03-01", []float32{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricReadiness, "2024-03-20", []float32{1, 0, 0})))

	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 10,
		&storage.Filter{FromDay: "2024-03-10"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.Day("2024-03-20"), results[0].Entry.Day)
}

func TestIndex_Query_TieBreakPrefersRecentDay(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Identical vectors, so scores tie exactly.
	older := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})
	newer := makeEntry(core.MetricSleep, "2024-03-08", []float32{1, 0, 0})
	require.NoError(t, idx.Upsert(ctx, older))
	require.NoError(t, idx.Upsert(ctx, newer))

	results, err := idx.Query(ctx, core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newer.ID, results[0].Entry.ID)
}

func TestIndex_Query_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Query(context.Background(), core.NormalizeVector([]float32{1, 0, 0}), "embed-v1", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_Query_InvalidArgs(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vec := core.NormalizeVector([]float32{1, 0, 0})

	_, err := idx.Query(ctx, nil, "embed-v1", 5, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = idx.Query(ctx, vec, "", 5, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = idx.Query(ctx, vec, "embed-v1", 0, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestIndex_ForEachAndCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricHRV, "2024-03-02", []float32{0, 1, 0})))

	seen := map[core.ChunkID]bool{}
	err := idx.ForEach(ctx, func(e *core.VectorEntry) error {
		seen[e.ID] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndex_ForEach_CanceledContext(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	err := idx.ForEach(canceled, func(*core.VectorEntry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_ClosedErrors(t *testing.T) {
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	ctx := context.Background()
	entry := makeEntry(core.MetricSleep, "2024-03-01", []float32{1, 0, 0})

	assert.ErrorIs(t, idx.Upsert(ctx, entry), storage.ErrStorageClosed)

	_, err = idx.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = idx.Count(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
