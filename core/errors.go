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


package core

import "errors"

// Domain validation errors
var (
	// ErrMalformedRecord indicates a HealthRecord failed validation.
	// The indexer treats this as skip-and-continue, never fatal.
	ErrMalformedRecord = errors.New("malformed health record")

	// ErrInvalidMetricType indicates an unknown MetricType value.
	ErrInvalidMetricType = errors.New("invalid metric type")

	// ErrInvalidDay indicates a day that is not an ISO 8601 date.
	ErrInvalidDay = errors.New("invalid day")

	// ErrMissingSourceID indicates a record without a provider document id.
	ErrMissingSourceID = errors.New("source id cannot be empty")

	// ErrEmptyPayload indicates a record with no numeric fields and no narrative.
	ErrEmptyPayload = errors.New("payload cannot be empty")

	// ErrInvalidEntry indicates a VectorEntry failed validation.
	ErrInvalidEntry = errors.New("invalid vector entry")

	// ErrEmptyChunkText indicates an entry or chunk with empty text.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrMissingModelVersion indicates an entry without an embedding model version.
	ErrMissingModelVersion = errors.New("embedding model version cannot be empty")
)
