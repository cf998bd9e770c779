// Package mock provides a test double for llm.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
)

// Provider is a configurable llm.Provider double. Zero value is usable: it
// returns empty responses. All fields guarded by an internal mutex so tests
// may inspect calls while requests run.
type Provider struct {
	mu sync.Mutex

	// CompleteFunc, when set, handles Complete calls.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Chunks, when set, is replayed by StreamCompletion.
	Chunks []llm.Chunk

	// calls records every request received, in order.
	calls []llm.CompletionRequest
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	fn := p.CompleteFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &llm.CompletionResponse{}, nil
}

// StreamCompletion implements llm.Provider.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	chunks := make([]llm.Chunk, len(p.Chunks))
	copy(chunks, p.Chunks)
	p.mu.Unlock()

	ch := make(chan llm.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// Calls returns a copy of all requests received so far.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}
