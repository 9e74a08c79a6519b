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


package ringsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/ai/openai"
	"github.com/halcyonlabs/ringsight/chunk"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/ingestion"
	"github.com/halcyonlabs/ringsight/oura"
	"github.com/halcyonlabs/ringsight/rebuild"
	"github.com/halcyonlabs/ringsight/retrieval"
	"github.com/halcyonlabs/ringsight/retry"
	"github.com/halcyonlabs/ringsight/storage"
	badgerstore "github.com/halcyonlabs/ringsight/storage/badger"
)

// DefaultSyncDays is the sync window when none is given.
const DefaultSyncDays = 120

// ErrNoFetcher is returned by Sync when the service was opened without
// an Oura token or a custom fetcher.
var ErrNoFetcher = errors.New("no fetcher configured: provide an Oura token or a custom fetcher")

// Service is the top-level facade wiring index, models, fetcher and the
// two pipelines together.
type Service struct {
	index    storage.VectorIndex
	provider ai.Provider
	chunker  *chunk.Chunker
	indexer  *ingestion.Indexer
	engine   *retrieval.Engine
	progress io.Writer
	logger   *slog.Logger
}

type serviceOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	fetcher   ingestion.Fetcher
	ouraToken string
	inMemory  bool
	k         int
	progress  io.Writer
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithAIConfig sets the model configuration used to build the default
// provider. Ignored when WithProvider is given.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *serviceOptions) { o.aiConfig = cfg }
}

// WithProvider injects a prebuilt AI provider. Used in tests.
func WithProvider(p ai.Provider) Option {
	return func(o *serviceOptions) { o.provider = p }
}

// WithOuraToken enables syncing against the Oura API.
func WithOuraToken(token string) Option {
	return func(o *serviceOptions) { o.ouraToken = token }
}

// WithFetcher injects a custom record fetcher, replacing the Oura
// client.
func WithFetcher(f ingestion.Fetcher) Option {
	return func(o *serviceOptions) { o.fetcher = f }
}

// WithInMemoryIndex keeps the index in memory. Used in tests.
func WithInMemoryIndex() Option {
	return func(o *serviceOptions) { o.inMemory = true }
}

// WithRetrievalK overrides the number of chunks retrieved per question.
func WithRetrievalK(k int) Option {
	return func(o *serviceOptions) { o.k = k }
}

// WithProgressWriter sets where rebuild progress is written.
// Defaults to os.Stderr.
func WithProgressWriter(w io.Writer) Option {
	return func(o *serviceOptions) { o.progress = w }
}

// ouraFetcher adapts the Oura client for the ingestion pipeline,
// marking auth failures permanent so a sync run aborts instead of
// retrying a rejected token.
type ouraFetcher struct {
	client *oura.Client
}

func (f *ouraFetcher) Pull(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
	records, err := f.client.Pull(ctx, metric, start, end)
	if err != nil && errors.Is(err, oura.ErrUnauthorized) {
		return nil, retry.MarkPermanent(err)
	}
	return records, err
}

// Open builds a Service over the index at dbPath.
func Open(dbPath string, opts ...Option) (*Service, error) {
	o := &serviceOptions{progress: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	var index storage.VectorIndex
	var err error
	if o.inMemory {
		index, err = badgerstore.NewMemoryIndex()
	} else {
		index, err = badgerstore.NewIndex(dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	provider := o.provider
	if provider == nil {
		cfg := o.aiConfig
		if cfg == nil {
			cfg = ai.DefaultConfig()
		}
		provider, err = openai.NewProvider(cfg)
		if err != nil {
			index.Close()
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
	}

	chunker, err := chunk.NewChunker()
	if err != nil {
		index.Close()
		provider.Close()
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil && o.ouraToken != "" {
		client, err := oura.NewClient(o.ouraToken)
		if err != nil {
			index.Close()
			provider.Close()
			return nil, err
		}
		fetcher = &ouraFetcher{client: client}
	}

	var indexer *ingestion.Indexer
	if fetcher != nil {
		indexer, err = ingestion.NewIndexer(fetcher, chunker, provider.Embedder(), index)
		if err != nil {
			index.Close()
			provider.Close()
			return nil, err
		}
	}

	var retrieverOpts []retrieval.RetrieverOption
	if o.k > 0 {
		retrieverOpts = append(retrieverOpts, retrieval.WithK(o.k))
	}
	retriever, err := retrieval.NewRetriever(provider.Embedder(), index, retrieverOpts...)
	if err != nil {
		index.Close()
		provider.Close()
		return nil, err
	}
	composer, err := retrieval.NewComposer(chunker)
	if err != nil {
		index.Close()
		provider.Close()
		return nil, err
	}
	answerer, err := retrieval.NewAnswerer(provider.Completer())
	if err != nil {
		index.Close()
		provider.Close()
		return nil, err
	}
	engine, err := retrieval.NewEngine(retriever, composer, answerer)
	if err != nil {
		index.Close()
		provider.Close()
		return nil, err
	}

	return &Service{
		index:    index,
		provider: provider,
		chunker:  chunker,
		indexer:  indexer,
		engine:   engine,
		progress: o.progress,
		logger:   slog.Default().With("component", "ringsight"),
	}, nil
}

// Sync pulls the trailing window of days ending today and indexes it.
func (s *Service) Sync(ctx context.Context, days int) (*core.SyncReport, error) {
	if days <= 0 {
		days = DefaultSyncDays
	}
	end := core.DayOf(time.Now())
	return s.SyncRange(ctx, end.AddDays(-days), end)
}

// SyncRange pulls and indexes the inclusive day range.
func (s *Service) SyncRange(ctx context.Context, start, end core.Day) (*core.SyncReport, error) {
	if s.indexer == nil {
		return nil, ErrNoFetcher
	}
	return s.indexer.Sync(ctx, start, end)
}

// Ask answers a question grounded in the index.
func (s *Service) Ask(ctx context.Context, question string) (*core.Answer, error) {
	return s.engine.Ask(ctx, question, nil)
}

// AskFiltered answers a question constrained to a metric type or day
// range.
func (s *Service) AskFiltered(ctx context.Context, question string, filter *storage.Filter) (*core.Answer, error) {
	return s.engine.Ask(ctx, question, filter)
}

// Rebuild re-embeds every entry under the provider's current embedding
// model version.
func (s *Service) Rebuild(ctx context.Context) (*rebuild.Report, error) {
	rebuilder := rebuild.NewRebuilder(s.index, s.provider.Embedder(), nil, s.progress)
	return rebuilder.Run(ctx)
}

// Stats describes the index contents.
type Stats struct {
	Entries        int
	EmbeddingModel string
}

// Stats reports the current index size and the active embedding model.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Entries:        count,
		EmbeddingModel: s.provider.Embedder().ModelVersion(),
	}, nil
}

// Close releases the index and the AI provider.
func (s *Service) Close() error {
	return errors.Join(s.index.Close(), s.provider.Close())
}
