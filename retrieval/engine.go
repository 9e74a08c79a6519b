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
	"errors"
	"log/slog"
	"time"

	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

// Engine wires retriever, composer and answerer into the ask pipeline.
type Engine struct {
	retriever *Retriever
	composer  *Composer
	answerer  *Answerer
	logger    *slog.Logger
}

// NewEngine creates the ask pipeline from its three stages.
func NewEngine(retriever *Retriever, composer *Composer, answerer *Answerer) (*Engine, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if composer == nil {
		return nil, errors.New("composer is required")
	}
	if answerer == nil {
		return nil, errors.New("answerer is required")
	}
	return &Engine{
		retriever: retriever,
		composer:  composer,
		answerer:  answerer,
		logger:    slog.Default().With("component", "retrieval"),
	}, nil
}

// Ask answers a question grounded in the index, optionally constrained
// by a metadata filter.
func (e *Engine) Ask(ctx context.Context, question string, filter *storage.Filter) (*core.Answer, error) {
	return e.AskWithMonitor(ctx, question, filter, nil)
}

// AskWithMonitor runs Ask and reports intermediate steps to the monitor.
// A nil monitor is allowed.
func (e *Engine) AskWithMonitor(ctx context.Context, question string, filter *storage.Filter, monitor AskMonitor) (*core.Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(question)
	started := time.Now()

	hits, err := e.retriever.Retrieve(ctx, question, filter)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(hits)

	prompt, included := e.composer.Compose(question, hits)
	monitor.AfterCompose(prompt, included)

	answer, err := e.answerer.Answer(ctx, prompt, included)
	if err != nil {
		return nil, err
	}
	monitor.Finish(answer)

	e.logger.Debug("ask completed",
		"hits", len(hits),
		"cited", len(answer.CitedChunkIDs),
		"elapsed", time.Since(started))
	return answer, nil
}
