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


// Package storage provides the vector index abstraction for ringsight.
//
// This package defines the VectorIndex interface that decouples the
// indexing and retrieval pipelines from the storage implementation. It
// allows different backends (BadgerDB, in-memory, a remote managed
// store) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple backends:
//
//	index, err := badger.NewIndex(path)  // returns storage.VectorIndex interface
//
// # Contract
//
// VectorIndex implementations must guarantee:
//
//   - Upsert is idempotent and atomic per chunk id: re-writing an id
//     overwrites, never duplicates, and concurrent readers never observe
//     a partially-written entry.
//   - Query excludes entries whose embedding model version differs from
//     the query's, regardless of similarity.
//   - State is durable across process restarts (except explicitly
//     in-memory test instances).
//
// # Usage
//
// Create an index instance:
//
//	index, err := badger.NewIndex("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer index.Close()
//
// Use in tests with in-memory storage:
//
//	index, err := badger.NewMemoryIndex()
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines; `ask` reads may overlap in-flight `sync`
// writes.
package storage
