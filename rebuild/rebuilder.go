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


// Package rebuild re-embeds the entire index under a new embedding
// model version. Switching embedding models is an explicit operation:
// the index never mixes versions silently, and queries under the new
// version see nothing until the rebuild has run.
package rebuild

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

// Config holds configuration for the rebuild operation.
type Config struct {
	// BatchSize is the number of entries to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Report summarizes one rebuild run.
type Report struct {
	ModelVersion string
	Total        int
	Rebuilt      int
	Skipped      int // already at the target version
}

// Rebuilder orchestrates re-embedding every entry in the index.
type Rebuilder struct {
	index     storage.VectorIndex
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *EntryIterator
}

// NewRebuilder creates a new rebuilder.
// progress: where to write progress output (typically os.Stderr)
func NewRebuilder(index storage.VectorIndex, embedder ai.Embedder, config *Config, progress io.Writer) *Rebuilder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Rebuilder{
		index:     index,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(index, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewEntryIterator(index, config.BatchSize),
	}
}

// Run re-embeds every entry not already at the target model version.
// Progress is reported to the configured writer.
func (r *Rebuilder) Run(ctx context.Context) (*Report, error) {
	target := r.embedder.ModelVersion()
	report := &Report{ModelVersion: target}

	total, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	report.Total = total

	if total == 0 {
		fmt.Fprintf(r.progress, "No entries found in index (0 entries)\n")
		return report, nil
	}

	fmt.Fprintf(r.progress, "Starting rebuild of %d entries under %s (batch size: %d)\n",
		total, target, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEachBatch(ctx, func(entries []*core.VectorEntry) error {
		stale := make([]*core.VectorEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.ModelVersion == target {
				report.Skipped++
				continue
			}
			stale = append(stale, entry)
		}

		if err := r.processor.Process(ctx, stale); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		report.Rebuilt += len(stale)

		processed += len(entries)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rebuild complete. Re-embedded %d of %d entries in %v\n",
		report.Rebuilt, report.Total, elapsed.Round(time.Second))

	return report, nil
}
