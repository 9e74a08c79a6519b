package rebuild

import (
	"context"

	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

// EntryIterator walks the whole index in fixed-size batches.
type EntryIterator struct {
	index     storage.VectorIndex
	batchSize int
}

// NewEntryIterator creates an iterator over the index.
func NewEntryIterator(index storage.VectorIndex, batchSize int) *EntryIterator {
	return &EntryIterator{index: index, batchSize: batchSize}
}

// ForEachBatch calls fn for every batch of entries. The final batch may
// be smaller than the batch size. Upserts during iteration are safe;
// the walk sees a snapshot of the index.
func (it *EntryIterator) ForEachBatch(ctx context.Context, fn func([]*core.VectorEntry) error) error {
	batch := make([]*core.VectorEntry, 0, it.batchSize)

	err := it.index.ForEach(ctx, func(entry *core.VectorEntry) error {
		batch = append(batch, entry)
		if len(batch) == it.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]*core.VectorEntry, 0, it.batchSize)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
