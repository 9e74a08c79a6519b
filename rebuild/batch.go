package rebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/retry"
	"github.com/halcyonlabs/ringsight/storage"
)

// BatchProcessor re-embeds batches of entries under the target model.
type BatchProcessor struct {
	index          storage.VectorIndex
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(index storage.VectorIndex, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		index:          index,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds a batch and upserts the refreshed entries. Vectors
// are normalized after embedding so stored dot products remain cosine
// similarities.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}

	var embeddings [][]float32
	err := retry.Do(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(entries) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(entries), len(embeddings))
	}

	modelVersion := bp.embedder.ModelVersion()
	for i, entry := range entries {
		entry.Vector = core.NormalizeVector(embeddings[i])
		entry.ModelVersion = modelVersion
		entry.Fingerprint = core.FingerprintText(entry.Text)

		if err := bp.index.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("failed to update entry %s: %w", entry.ID, err)
		}
	}
	return nil
}
