package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/ringsight/ai/mock"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/retry"
	badgerstore "github.com/halcyonlabs/ringsight/storage/badger"
)

// stubFetcher returns canned records per metric type.
type stubFetcher struct {
	mu       sync.Mutex
	records  map[core.MetricType][]*core.HealthRecord
	errs     map[core.MetricType]error
	pulls    map[core.MetricType]int
	PullFunc func(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		records: make(map[core.MetricType][]*core.HealthRecord),
		errs:    make(map[core.MetricType]error),
		pulls:   make(map[core.MetricType]int),
	}
}

func (f *stubFetcher) Pull(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
	f.mu.Lock()
	f.pulls[metric]++
	f.mu.Unlock()

	if f.PullFunc != nil {
		return f.PullFunc(ctx, metric, start, end)
	}
	if err := f.errs[metric]; err != nil {
		return nil, err
	}
	return f.records[metric], nil
}

func (f *stubFetcher) pullCount(metric core.MetricType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls[metric]
}

// stubChunker renders records without a tokenizer dependency.
type stubChunker struct{}

func (stubChunker) Chunk(record *core.HealthRecord) ([]*core.Chunk, error) {
	if err := core.ValidateHealthRecord(record); err != nil {
		return nil, err
	}
	return []*core.Chunk{{
		ID:       core.MakeChunkID(record.Metric, record.Day, record.SourceID, 1),
		Text:     fmt.Sprintf("%s on %s: %v", record.Metric, record.Day, record.Payload),
		Metric:   record.Metric,
		Day:      record.Day,
		SourceID: record.SourceID,
	}}, nil
}

func sleepRecord(day core.Day, score float64) *core.HealthRecord {
	return &core.HealthRecord{
		SourceID: "sl-" + string(day),
		Metric:   core.MetricSleep,
		Day:      day,
		Payload:  map[string]float64{"score": score},
	}
}

func newTestIndexer(t *testing.T, fetcher Fetcher) (*Indexer, *mock.MockEmbedder, func() int) {
	t.Helper()

	index, err := badgerstore.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	embedder := mock.NewMockEmbedder()
	ix, err := NewIndexer(fetcher, stubChunker{}, embedder, index,
		WithRetryDelay(time.Millisecond), WithWorkers(2))
	require.NoError(t, err)

	count := func() int {
		n, err := index.Count(context.Background())
		require.NoError(t, err)
		return n
	}
	return ix, embedder, count
}

func TestNewIndexer_RequiredDependencies(t *testing.T) {
	index, err := badgerstore.NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()
	embedder := mock.NewMockEmbedder()
	fetcher := newStubFetcher()

	_, err = NewIndexer(nil, stubChunker{}, embedder, index)
	assert.ErrorIs(t, err, ErrNoFetcher)

	_, err = NewIndexer(fetcher, nil, embedder, index)
	assert.ErrorIs(t, err, ErrNoChunker)

	_, err = NewIndexer(fetcher, stubChunker{}, nil, index)
	assert.ErrorIs(t, err, ErrNoEmbedder)

	_, err = NewIndexer(fetcher, stubChunker{}, embedder, nil)
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestSync_InvalidRange(t *testing.T) {
	ix, _, _ := newTestIndexer(t, newStubFetcher())

	_, err := ix.Sync(context.Background(), "2024-03-07", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ix.Sync(context.Background(), "bogus", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSync_SevenDaysIndexSevenEntries(t *testing.T) {
	fetcher := newStubFetcher()
	for i := 0; i < 7; i++ {
		day := core.Day("2024-03-01").AddDays(i)
		fetcher.records[core.MetricSleep] = append(fetcher.records[core.MetricSleep], sleepRecord(day, 80))
	}

	ix, _, count := newTestIndexer(t, fetcher)

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, 7, report.Indexed)
	assert.Equal(t, 7, count())
	assert.ElementsMatch(t, core.MetricTypes, report.SucceededTypes)
	assert.False(t, report.Partial())
}

func TestSync_RerunDoesNotGrowIndex(t *testing.T) {
	fetcher := newStubFetcher()
	for i := 0; i < 7; i++ {
		day := core.Day("2024-03-01").AddDays(i)
		fetcher.records[core.MetricSleep] = append(fetcher.records[core.MetricSleep], sleepRecord(day, 80))
	}

	ix, _, count := newTestIndexer(t, fetcher)
	ctx := context.Background()

	_, err := ix.Sync(ctx, "2024-03-01", "2024-03-07")
	require.NoError(t, err)
	require.Equal(t, 7, count())

	report, err := ix.Sync(ctx, "2024-03-01", "2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, 7, count(), "re-sync must not grow the index")
	assert.Equal(t, 0, report.Indexed, "unchanged chunks are not re-embedded")
	assert.Equal(t, 7, report.Skipped)
}

func TestSync_ChangedRecordIsReindexed(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.records[core.MetricSleep] = []*core.HealthRecord{sleepRecord("2024-03-01", 80)}

	ix, _, count := newTestIndexer(t, fetcher)
	ctx := context.Background()

	_, err := ix.Sync(ctx, "2024-03-01", "2024-03-01")
	require.NoError(t, err)

	// Same id, different content.
	fetcher.records[core.MetricSleep] = []*core.HealthRecord{sleepRecord("2024-03-01", 65)}

	report, err := ix.Sync(ctx, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, count(), "overwrite, not growth")
}

func TestSync_MalformedRecordsAreSkipped(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.records[core.MetricSleep] = []*core.HealthRecord{
		sleepRecord("2024-03-01", 80),
		{SourceID: "bad", Metric: core.MetricSleep, Day: "not-a-day", Payload: map[string]float64{"x": 1}},
		sleepRecord("2024-03-03", 75),
	}

	ix, _, count := newTestIndexer(t, fetcher)

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, 2, count())
}

func TestSync_FailingMetricTypeDoesNotStopOthers(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.records[core.MetricSleep] = []*core.HealthRecord{sleepRecord("2024-03-01", 80)}
	fetcher.errs[core.MetricActivity] = errors.New("upstream flaking")

	ix, _, count := newTestIndexer(t, fetcher)

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.True(t, report.Partial())
	assert.Contains(t, report.FailedTypes, core.MetricActivity)
	assert.Contains(t, report.SucceededTypes, core.MetricSleep)
	assert.Contains(t, report.Failures[core.MetricActivity], "upstream flaking")
	assert.Equal(t, 1, count())

	// Exhausted the retry budget for the failing type.
	assert.Equal(t, 3, fetcher.pullCount(core.MetricActivity))
}

func TestSync_TransientFetchErrorIsRetried(t *testing.T) {
	fetcher := newStubFetcher()
	attempts := 0
	fetcher.PullFunc = func(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
		if metric != core.MetricSleep {
			return nil, nil
		}
		attempts++
		if attempts < 3 {
			return nil, errors.New("temporarily unavailable")
		}
		return []*core.HealthRecord{sleepRecord("2024-03-01", 80)}, nil
	}

	ix, _, count := newTestIndexer(t, fetcher)

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, count())
	assert.Equal(t, 3, attempts)
}

func TestSync_AuthFailureAbortsRun(t *testing.T) {
	fetcher := newStubFetcher()
	authErr := errors.New("token rejected")
	fetcher.PullFunc = func(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
		return nil, retry.MarkPermanent(authErr)
	}

	ix, _, count := newTestIndexer(t, fetcher)

	_, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFatal)
	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 0, count())
	assert.Equal(t, 1, fetcher.pullCount(core.MetricSleep), "no retries on auth failure")
}

func TestSync_EmbeddingFailureSkipsChunksButContinues(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.records[core.MetricSleep] = []*core.HealthRecord{sleepRecord("2024-03-01", 80)}
	fetcher.records[core.MetricActivity] = []*core.HealthRecord{{
		SourceID: "a-1",
		Metric:   core.MetricActivity,
		Day:      "2024-03-01",
		Payload:  map[string]float64{"steps": 9000},
	}}

	ix, embedder, count := newTestIndexer(t, fetcher)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if text == (stubChunker{}).mustText(t, fetcher.records[core.MetricActivity][0]) {
				return nil, errors.New("embedding backend down")
			}
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed, "failed batch is dropped, others index")
	assert.Equal(t, 1, count())
	assert.ElementsMatch(t, core.MetricTypes, report.SucceededTypes,
		"embedding failures do not fail the metric type")
}

// mustText renders the single chunk text for a record.
func (c stubChunker) mustText(t *testing.T, record *core.HealthRecord) string {
	t.Helper()
	chunks, err := c.Chunk(record)
	require.NoError(t, err)
	return chunks[0].Text
}

func TestSync_AllTypesFailed(t *testing.T) {
	fetcher := newStubFetcher()
	for _, m := range core.MetricTypes {
		fetcher.errs[m] = errors.New("down")
	}

	ix, _, _ := newTestIndexer(t, fetcher)

	report, err := ix.Sync(context.Background(), "2024-03-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrSyncFailed)
	require.NotNil(t, report)
	assert.Len(t, report.FailedTypes, len(core.MetricTypes))
}
