// Copyright 2025 Halcyon Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/retry"
	"github.com/halcyonlabs/ringsight/storage"
)

// Fetcher pulls raw daily records for one metric type over an inclusive
// day range. Implementations mark auth failures with retry.MarkPermanent
// so the pipeline aborts instead of retrying them.
type Fetcher interface {
	Pull(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error)
}

// Chunker converts one record into embeddable chunks.
type Chunker interface {
	Chunk(record *core.HealthRecord) ([]*core.Chunk, error)
}

const (
	defaultWorkers    = 4
	defaultBatchSize  = 16
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
)

// Indexer runs the fetch, chunk, embed, upsert pipeline.
type Indexer struct {
	fetcher  Fetcher
	chunker  Chunker
	embedder ai.Embedder
	index    storage.VectorIndex

	workers    int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithWorkers sets the number of concurrent embedding workers.
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithBatchSize sets the number of chunks embedded per batch call.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithMaxRetries sets the retry budget for fetch and embed calls.
func WithMaxRetries(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(ix *Indexer) {
		if d > 0 {
			ix.retryDelay = d
		}
	}
}

// NewIndexer creates the sync pipeline. All four dependencies are
// required.
func NewIndexer(fetcher Fetcher, chunker Chunker, embedder ai.Embedder, index storage.VectorIndex, opts ...Option) (*Indexer, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	if chunker == nil {
		return nil, ErrNoChunker
	}
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	if index == nil {
		return nil, ErrNoIndex
	}

	ix := &Indexer{
		fetcher:    fetcher,
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		workers:    defaultWorkers,
		batchSize:  defaultBatchSize,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Sync pulls, chunks, embeds and indexes every metric type over the
// inclusive day range. A failing metric type does not stop the others;
// the report carries per-type outcomes. Sync returns an error only when
// the run as a whole is unusable: invalid input, context cancellation,
// an auth failure, or every single type failing.
//
// Re-running Sync over an overlapping range is safe: chunk ids are
// deterministic, so existing entries are overwritten, and unchanged
// chunks are skipped without re-embedding.
func (ix *Indexer) Sync(ctx context.Context, start, end core.Day) (*core.SyncReport, error) {
	if !start.Valid() || !end.Valid() || start > end {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, start, end)
	}

	report := &core.SyncReport{
		Start:    start,
		End:      end,
		Failures: make(map[core.MetricType]string),
	}

	pool, err := ants.NewPool(ix.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	for _, metric := range core.MetricTypes {
		records, err := ix.fetchWithRetry(ctx, metric, start, end)
		if err != nil {
			if retry.IsPermanent(err) {
				return nil, fmt.Errorf("%w: %w", ErrAuthFatal, err)
			}
			if ctx.Err() != nil {
				return nil, err
			}
			ix.logger.Error("metric type failed to fetch",
				"metric", metric, "error", err)
			report.FailedTypes = append(report.FailedTypes, metric)
			report.Failures[metric] = err.Error()
			continue
		}

		pending := ix.chunkRecords(ctx, records, report)
		if err := ix.embedAndUpsert(ctx, pool, pending, report); err != nil {
			return nil, err
		}
		report.SucceededTypes = append(report.SucceededTypes, metric)

		ix.logger.Info("metric type synced",
			"metric", metric,
			"records", len(records),
			"indexed", report.Indexed,
			"skipped", report.Skipped)
	}

	if len(report.SucceededTypes) == 0 && len(report.FailedTypes) > 0 {
		return report, ErrSyncFailed
	}
	return report, nil
}

func (ix *Indexer) fetchWithRetry(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
	var records []*core.HealthRecord
	err := retry.Do(ctx, func() error {
		fetched, err := ix.fetcher.Pull(ctx, metric, start, end)
		if err != nil {
			return err
		}
		records = fetched
		return nil
	}, ix.maxRetries, ix.retryDelay)
	return records, err
}

// chunkRecords converts records to chunks, dropping malformed records
// and chunks whose text already sits in the index unchanged.
func (ix *Indexer) chunkRecords(ctx context.Context, records []*core.HealthRecord, report *core.SyncReport) []*core.Chunk {
	var pending []*core.Chunk
	modelVersion := ix.embedder.ModelVersion()

	for _, record := range records {
		chunks, err := ix.chunker.Chunk(record)
		if err != nil {
			if errors.Is(err, core.ErrMalformedRecord) {
				ix.logger.Warn("skipping malformed record",
					"metric", record.Metric, "day", record.Day, "error", err)
				report.Malformed++
				continue
			}
			ix.logger.Warn("skipping record", "error", err)
			report.Malformed++
			continue
		}

		for _, c := range chunks {
			existing, err := ix.index.Get(ctx, c.ID)
			if err == nil &&
				existing.Fingerprint == core.FingerprintText(c.Text) &&
				existing.ModelVersion == modelVersion {
				report.Skipped++
				continue
			}
			pending = append(pending, c)
		}
	}
	return pending
}

// embedAndUpsert embeds pending chunks in pooled batches and upserts the
// results. A batch whose embedding keeps failing is logged and dropped;
// the rest of the sync continues.
func (ix *Indexer) embedAndUpsert(ctx context.Context, pool *ants.Pool, pending []*core.Chunk, report *core.SyncReport) error {
	if len(pending) == 0 {
		return nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		indexed   int
		submitErr error
	)

	for batchStart := 0; batchStart < len(pending); batchStart += ix.batchSize {
		batchEnd := batchStart + ix.batchSize
		if batchEnd > len(pending) {
			batchEnd = len(pending)
		}
		batch := pending[batchStart:batchEnd]

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			n := ix.processBatch(ctx, batch)
			mu.Lock()
			indexed += n
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submitting embedding batch: %w", err)
			break
		}
	}

	wg.Wait()
	report.Indexed += indexed
	if submitErr != nil {
		return submitErr
	}
	return ctx.Err()
}

// processBatch embeds one batch and upserts its entries, returning the
// number actually indexed.
func (ix *Indexer) processBatch(ctx context.Context, batch []*core.Chunk) int {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err := retry.Do(ctx, func() error {
		embedded, err := ix.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(embedded) != len(texts) {
			return retry.MarkPermanent(fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(texts)))
		}
		vectors = embedded
		return nil
	}, ix.maxRetries, ix.retryDelay)
	if err != nil {
		ix.logger.Error("embedding batch failed, skipping chunks",
			"chunks", len(batch), "error", err)
		return 0
	}

	modelVersion := ix.embedder.ModelVersion()
	indexed := 0
	for i, c := range batch {
		entry := &core.VectorEntry{
			ID:           c.ID,
			Text:         c.Text,
			Metric:       c.Metric,
			Day:          c.Day,
			SourceID:     c.SourceID,
			ModelVersion: modelVersion,
			Fingerprint:  core.FingerprintText(c.Text),
			Vector:       core.NormalizeVector(vectors[i]),
		}
		if err := ix.index.Upsert(ctx, entry); err != nil {
			ix.logger.Error("upsert failed, skipping chunk", "id", c.ID, "error", err)
			continue
		}
		indexed++
	}
	return indexed
}
