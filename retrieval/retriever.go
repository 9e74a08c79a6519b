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


package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/retry"
	"github.com/halcyonlabs/ringsight/storage"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 6

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
)

// Retriever embeds a question and finds the nearest chunks in the index.
type Retriever struct {
	embedder   ai.Embedder
	index      storage.VectorIndex
	k          int
	maxRetries int
	retryDelay time.Duration
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithK overrides the number of retrieved chunks.
func WithK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithRetrieverRetry overrides the embedding retry budget.
func WithRetrieverRetry(maxRetries int, delay time.Duration) RetrieverOption {
	return func(r *Retriever) {
		if maxRetries > 0 {
			r.maxRetries = maxRetries
		}
		if delay > 0 {
			r.retryDelay = delay
		}
	}
}

// NewRetriever creates a Retriever over the given embedder and index.
func NewRetriever(embedder ai.Embedder, index storage.VectorIndex, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	if index == nil {
		return nil, ErrNoIndex
	}

	r := &Retriever{
		embedder:   embedder,
		index:      index,
		k:          DefaultK,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns up to k chunks ranked by similarity to the question,
// optionally constrained by a metadata filter. An empty index produces
// an empty result, not an error. Only entries embedded under the
// retriever's own model version are considered.
func (r *Retriever) Retrieve(ctx context.Context, question string, filter *storage.Filter) ([]*core.ScoredChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	var vector []float32
	err := retry.Do(ctx, func() error {
		embedded, err := r.embedder.EmbedText(ctx, question)
		if err != nil {
			return err
		}
		vector = embedded
		return nil
	}, r.maxRetries, r.retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embedding question: %w", ErrUpstreamUnavailable, err)
	}

	return r.index.Query(ctx, core.NormalizeVector(vector), r.embedder.ModelVersion(), r.k, filter)
}
