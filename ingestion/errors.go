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

import "errors"

var (
	// ErrNoFetcher is returned when an Indexer is created without a fetcher
	ErrNoFetcher = errors.New("fetcher is required")

	// ErrNoChunker is returned when an Indexer is created without a chunker
	ErrNoChunker = errors.New("chunker is required")

	// ErrNoEmbedder is returned when an Indexer is created without an embedder
	ErrNoEmbedder = errors.New("embedder is required")

	// ErrNoIndex is returned when an Indexer is created without a vector index
	ErrNoIndex = errors.New("vector index is required")

	// ErrInvalidRange is returned when the sync day range is malformed.
	ErrInvalidRange = errors.New("invalid day range")

	// ErrSyncFailed is returned when every metric type failed to sync.
	ErrSyncFailed = errors.New("sync failed for all metric types")

	// ErrAuthFatal wraps upstream auth failures that abort the whole run.
	ErrAuthFatal = errors.New("upstream authentication failed")
)
