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

import "fmt"

// ValidateHealthRecord validates a HealthRecord according to domain rules.
//
// Validation rules:
//   - Metric must be a known metric type
//   - Day must be an ISO 8601 date
//   - SourceID must not be empty
//   - Payload and Narrative must not both be empty
//
// A failure wraps ErrMalformedRecord so callers can treat any cause
// uniformly as skip-and-continue.
func ValidateHealthRecord(record *HealthRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrMalformedRecord)
	}

	if !record.Metric.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrMalformedRecord, ErrInvalidMetricType, record.Metric)
	}

	if !record.Day.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrMalformedRecord, ErrInvalidDay, record.Day)
	}

	if record.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, ErrMissingSourceID)
	}

	if len(record.Payload) == 0 && record.Narrative == "" {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, ErrEmptyPayload)
	}

	return nil
}

// ValidateVectorEntry validates a VectorEntry before it is persisted.
//
// Validation rules:
//   - ID must not be empty
//   - Text must not be empty
//   - Metric must be a known metric type
//   - Day must be an ISO 8601 date
//   - ModelVersion must not be empty
//
// NOT validated:
//   - Vector (may be empty until the embedder runs)
//   - Fingerprint (derived from Text by the indexer)
func ValidateVectorEntry(entry *VectorEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidEntry)
	}

	if entry.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyChunkText)
	}

	if !entry.Metric.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidEntry, ErrInvalidMetricType, entry.Metric)
	}

	if !entry.Day.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidEntry, ErrInvalidDay, entry.Day)
	}

	if entry.ModelVersion == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrMissingModelVersion)
	}

	return nil
}
