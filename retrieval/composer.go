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
	"fmt"
	"strings"

	"github.com/halcyonlabs/ringsight/core"
)

// promptPreamble instructs the model to stay grounded in the context.
const promptPreamble = `You are a helpful assistant answering questions about the user's health metrics.
Use the provided context to answer the question. If uncertain, say you don't know.
Be conversational and helpful.`

// DefaultContextBudget is the token budget for the context section of
// the prompt.
const DefaultContextBudget = 2048

// TokenCounter counts prompt tokens. chunk.Chunker satisfies it.
type TokenCounter interface {
	TokenCount(text string) int
}

// Composer folds ranked chunks into a grounded prompt.
type Composer struct {
	counter TokenCounter
	budget  int
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithContextBudget overrides the context token budget.
func WithContextBudget(tokens int) ComposerOption {
	return func(c *Composer) {
		if tokens > 0 {
			c.budget = tokens
		}
	}
}

// NewComposer creates a Composer using the given token counter.
func NewComposer(counter TokenCounter, opts ...ComposerOption) (*Composer, error) {
	if counter == nil {
		return nil, ErrNoCounter
	}

	c := &Composer{
		counter: counter,
		budget:  DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose builds the prompt from the question and the ranked chunks,
// returning the prompt and the chunks that made it in. Chunks are taken
// in rank order until the token budget would be exceeded; a chunk never
// appears truncated. Identical inputs always produce the identical
// prompt.
func (c *Composer) Compose(question string, hits []*core.ScoredChunk) (string, []*core.ScoredChunk) {
	var (
		blocks   []string
		included []*core.ScoredChunk
		used     int
	)

	for _, hit := range hits {
		block := fmt.Sprintf("[Day: %s Metric: %s]\n%s", hit.Entry.Day, hit.Entry.Metric, hit.Entry.Text)
		cost := c.counter.TokenCount(block)
		if used+cost > c.budget {
			break
		}
		used += cost
		blocks = append(blocks, block)
		included = append(included, hit)
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nAnswer:")

	return b.String(), included
}
