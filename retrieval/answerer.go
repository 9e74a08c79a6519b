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
	"time"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/retry"
)

// NoDataAnswer is returned when retrieval found nothing to ground an
// answer in.
const NoDataAnswer = "I don't have enough data to answer your question. Please sync some health data first."

// Answerer runs the completion and attaches citations.
type Answerer struct {
	completer  ai.Completer
	maxRetries int
	retryDelay time.Duration
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithAnswererRetry overrides the completion retry budget.
func WithAnswererRetry(maxRetries int, delay time.Duration) AnswererOption {
	return func(a *Answerer) {
		if maxRetries > 0 {
			a.maxRetries = maxRetries
		}
		if delay > 0 {
			a.retryDelay = delay
		}
	}
}

// NewAnswerer creates an Answerer over the given completer.
func NewAnswerer(completer ai.Completer, opts ...AnswererOption) (*Answerer, error) {
	if completer == nil {
		return nil, ErrNoCompleter
	}

	a := &Answerer{
		completer:  completer,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer completes the prompt and returns the answer with the ids of
// the chunks that grounded it. With nothing retrieved it returns the
// no-data answer without calling the model. A completion that keeps
// failing surfaces ErrUpstreamUnavailable.
func (a *Answerer) Answer(ctx context.Context, prompt string, included []*core.ScoredChunk) (*core.Answer, error) {
	if len(included) == 0 {
		return &core.Answer{Text: NoDataAnswer}, nil
	}

	var text string
	err := retry.Do(ctx, func() error {
		completed, err := a.completer.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		text = completed
		return nil
	}, a.maxRetries, a.retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: completion: %w", ErrUpstreamUnavailable, err)
	}

	cited := make([]core.ChunkID, len(included))
	for i, hit := range included {
		cited[i] = hit.Entry.ID
	}

	return &core.Answer{Text: text, CitedChunkIDs: cited}, nil
}
