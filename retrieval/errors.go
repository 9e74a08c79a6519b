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

import "errors"

var (
	// ErrNoEmbedder is returned when a Retriever is created without an embedder
	ErrNoEmbedder = errors.New("embedder is required")

	// ErrNoCompleter is returned when an Answerer is created without a completer
	ErrNoCompleter = errors.New("completer is required")

	// ErrNoIndex is returned when a Retriever is created without a vector index
	ErrNoIndex = errors.New("vector index is required")

	// ErrNoCounter is returned when a Composer is created without a token counter
	ErrNoCounter = errors.New("token counter is required")

	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrUpstreamUnavailable indicates the embedding or completion backend
	// stayed unreachable through the retry budget.
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")
)
