package storage

import (
	"context"

	"github.com/halcyonlabs/ringsight/core"
)

// Filter restricts query candidates by metadata equality and day range.
// Zero values leave the corresponding dimension unbounded.
type Filter struct {
	// Metric restricts results to one metric type. Empty matches all.
	Metric core.MetricType

	// FromDay is the inclusive lower day bound. Empty is unbounded.
	FromDay core.Day

	// ToDay is the inclusive upper day bound. Empty is unbounded.
	ToDay core.Day
}

// Matches reports whether an entry passes the filter.
// A nil filter matches everything.
func (f *Filter) Matches(entry *core.VectorEntry) bool {
	if f == nil {
		return true
	}
	if f.Metric != "" && entry.Metric != f.Metric {
		return false
	}
	if f.FromDay != "" && entry.Day < f.FromDay {
		return false
	}
	if f.ToDay != "" && entry.Day > f.ToDay {
		return false
	}
	return true
}

// VectorIndex persists chunks plus their embeddings, keyed by chunk id.
// Implementations must be thread-safe, durable across process restarts,
// and must never expose a partially-written entry to concurrent readers.
type VectorIndex interface {
	// Upsert stores an entry under its chunk id, overwriting any existing
	// entry with the same id. Idempotent: repeated upserts of identical
	// content cause no growth. The write is atomic per id.
	Upsert(ctx context.Context, entry *core.VectorEntry) error

	// Get retrieves a single entry by chunk id.
	// Returns ErrNotFound if the entry doesn't exist.
	Get(ctx context.Context, id core.ChunkID) (*core.VectorEntry, error)

	// Query returns up to k entries ranked by descending cosine similarity
	// to the vector. Entries whose ModelVersion differs from modelVersion
	// are excluded regardless of similarity. filter (optional, may be nil)
	// restricts candidates by metadata. An empty index yields an empty
	// result, not an error.
	Query(ctx context.Context, vector []float32, modelVersion string, k int, filter *Filter) ([]*core.ScoredChunk, error)

	// ForEach iterates over every entry in the index in key order.
	// Iteration stops on the first error from fn.
	ForEach(ctx context.Context, fn func(*core.VectorEntry) error) error

	// Count returns the number of entries in the index.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
