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


package chunk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/halcyonlabs/ringsight/core"
)

// SchemaVersion is the chunk text schema version. It is part of every
// chunk id, so changing how records render into text requires bumping it.
const SchemaVersion = 1

const (
	defaultEncoding      = "cl100k_base"
	defaultWindowTokens  = 256
	defaultOverlapTokens = 32
)

// Chunker converts health records into deterministic embeddable chunks.
type Chunker struct {
	encoder       *tiktoken.Tiktoken
	windowTokens  int
	overlapTokens int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithWindow overrides the token window and overlap used for long texts.
func WithWindow(windowTokens, overlapTokens int) Option {
	return func(c *Chunker) error {
		if windowTokens <= 0 || overlapTokens < 0 || overlapTokens >= windowTokens {
			return fmt.Errorf("invalid window: %d tokens with %d overlap", windowTokens, overlapTokens)
		}
		c.windowTokens = windowTokens
		c.overlapTokens = overlapTokens
		return nil
	}
}

// NewChunker creates a Chunker with the cl100k_base tokenizer.
func NewChunker(opts ...Option) (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	c := &Chunker{
		encoder:       encoder,
		windowTokens:  defaultWindowTokens,
		overlapTokens: defaultOverlapTokens,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Chunk converts one record into one or more chunks. The rendered text
// and the chunk ids are pure functions of the record content, so the
// same record always produces the same chunks.
//
// Records that fail validation return an error wrapping
// core.ErrMalformedRecord; callers skip and continue.
func (c *Chunker) Chunk(record *core.HealthRecord) ([]*core.Chunk, error) {
	if err := core.ValidateHealthRecord(record); err != nil {
		return nil, err
	}

	text := renderRecord(record)
	baseID := core.MakeChunkID(record.Metric, record.Day, record.SourceID, SchemaVersion)

	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) <= c.windowTokens {
		return []*core.Chunk{{
			ID:       baseID,
			Text:     text,
			Metric:   record.Metric,
			Day:      record.Day,
			SourceID: record.SourceID,
		}}, nil
	}

	// Long texts split into overlapping token windows with stable
	// per-window ids.
	step := c.windowTokens - c.overlapTokens
	var chunks []*core.Chunk
	for start, i := 0, 0; start < len(tokens); start, i = start+step, i+1 {
		end := start + c.windowTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, &core.Chunk{
			ID:       baseID.WithWindow(i),
			Text:     c.encoder.Decode(tokens[start:end]),
			Metric:   record.Metric,
			Day:      record.Day,
			SourceID: record.SourceID,
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

// TokenCount returns the number of tokens in a text.
func (c *Chunker) TokenCount(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// renderRecord renders a record as a human-readable sentence. Payload
// fields appear in sorted key order so the output is deterministic.
func renderRecord(record *core.HealthRecord) string {
	var b strings.Builder

	if len(record.Payload) > 0 {
		keys := make([]string, 0, len(record.Payload))
		for k := range record.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fieldLabel(k)+" "+formatValue(record.Payload[k]))
		}

		fmt.Fprintf(&b, "On %s, %s summary: %s.", record.Day, record.Metric, strings.Join(parts, ", "))
	}

	if record.Narrative != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Notes for %s: %s.", record.Day, record.Narrative)
	}

	return b.String()
}

// fieldLabel turns a provider field name into readable words.
func fieldLabel(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// formatValue renders a number without trailing zeros.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
