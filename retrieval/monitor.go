package retrieval

import "github.com/halcyonlabs/ringsight/core"

// AskMonitor provides hooks to observe the ask pipeline.
// Implement this interface to track intermediate steps during an ask.
type AskMonitor interface {
	Start(question string)
	AfterRetrieval(hits []*core.ScoredChunk)
	AfterCompose(prompt string, included []*core.ScoredChunk)
	Finish(answer *core.Answer)
}

// noopMonitor is a no-op implementation of AskMonitor
type noopMonitor struct{}

var _ AskMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterRetrieval(_ []*core.ScoredChunk)        {}
func (n *noopMonitor) AfterCompose(_ string, _ []*core.ScoredChunk) {}
func (n *noopMonitor) Finish(_ *core.Answer)                       {}
