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


package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

// Index implements storage.VectorIndex for BadgerDB.
type Index struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex opens a durable vector index at the given directory.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(filePath string) (storage.VectorIndex, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	return newIndex(backend), nil
}

// newIndex wraps an open backend in an Index.
func newIndex(backend *Backend) *Index {
	return &Index{
		backend: backend,
		logger:  slog.Default().With("component", "badger-index"),
	}
}

// Close closes the underlying database.
func (x *Index) Close() error {
	return x.backend.Close()
}

// Upsert stores an entry under its chunk id, overwriting any existing
// entry. The primary record and its day index key are written in one
// transaction, so concurrent readers observe either the old or the new
// entry, never a partial one.
func (x *Index) Upsert(ctx context.Context, entry *core.VectorEntry) error {
	if err := core.ValidateVectorEntry(entry); err != nil {
		return err
	}
	if x.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return x.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntryKey(entry.ID)

		// Preserve InsertedAt across overwrites
		old, err := x.readEntry(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			entry.InsertedAt = old.InsertedAt
		} else if entry.InsertedAt.IsZero() {
			entry.InsertedAt = now
		}
		entry.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalVectorEntry(entry)); err != nil {
			return err
		}

		// Day index key is derived from the id, so an overwrite under the
		// same id always lands on the same index key.
		if err := tx.Set(makeDayKey(entry.Day, entry.ID), []byte(entry.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// Get retrieves a single entry by chunk id.
func (x *Index) Get(ctx context.Context, id core.ChunkID) (*core.VectorEntry, error) {
	if x.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var result *core.VectorEntry
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = x.readEntry(tx, makeEntryKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Query returns up to k entries ranked by descending cosine similarity.
// Entries embedded under a different model version are excluded regardless
// of similarity. Equal scores are broken by preferring the more recent day.
func (x *Index) Query(ctx context.Context, vector []float32, modelVersion string, k int, filter *storage.Filter) ([]*core.ScoredChunk, error) {
	if len(vector) == 0 || modelVersion == "" || k <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if x.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.ScoredChunk

	scan := func(entry *core.VectorEntry) {
		if entry.ModelVersion != modelVersion {
			return
		}
		if !filter.Matches(entry) {
			return
		}
		if len(entry.Vector) == 0 {
			return
		}
		results = append(results, &core.ScoredChunk{
			Entry: entry,
			Score: core.DotProduct(vector, entry.Vector),
		})
	}

	var err error
	if filter != nil && (filter.FromDay != "" || filter.ToDay != "") {
		err = x.scanDayRange(filter.FromDay, filter.ToDay, scan)
	} else {
		err = x.scanAll(scan)
	}
	if err != nil {
		return nil, err
	}

	// Rank by similarity descending; ties prefer the more recent day, then
	// id order for full determinism.
	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Entry.Day != b.Entry.Day {
			if a.Entry.Day > b.Entry.Day {
				return -1
			}
			return 1
		}
		if a.Entry.ID < b.Entry.ID {
			return -1
		}
		if a.Entry.ID > b.Entry.ID {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ForEach iterates over every entry in the index in key order.
func (x *Index) ForEach(ctx context.Context, fn func(*core.VectorEntry) error) error {
	if x.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var entry *core.VectorEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Count returns the number of entries in the index.
func (x *Index) Count(ctx context.Context) (int, error) {
	if x.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readEntry reads and unmarshals an entry, returning nil if absent.
func (x *Index) readEntry(tx *badger.Txn, key []byte) (*core.VectorEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.VectorEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalVectorEntry(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// scanAll visits every entry via the primary keys.
func (x *Index) scanAll(visit func(*core.VectorEntry)) error {
	return x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.VectorEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			visit(entry)
		}
		return nil
	}, false)
}

// scanDayRange visits entries whose day falls within [from, to] using the
// day index, avoiding a full scan for bounded queries.
func (x *Index) scanDayRange(from, to core.Day, visit func(*core.VectorEntry)) error {
	return x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryDayPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		if from != "" {
			iter.Seek(makePartialDayKey(from))
		} else {
			iter.Rewind()
		}

		dayOffset := len(entryDayPrefix) + 1
		for ; iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < dayOffset+10 {
				continue
			}
			day := core.Day(key[dayOffset : dayOffset+10])
			if to != "" && day > to {
				break
			}

			var id core.ChunkID
			if err := iter.Item().Value(func(val []byte) error {
				id = core.ChunkID(val)
				return nil
			}); err != nil {
				return err
			}

			entry, err := x.readEntry(tx, makeEntryKey(id))
			if err != nil {
				return err
			}
			if entry == nil {
				// Dangling index key; the primary record wins.
				continue
			}
			visit(entry)
		}
		return nil
	}, false)
}
