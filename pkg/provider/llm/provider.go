// Package llm defines the Provider interface for chat-completion backends.
//
// A provider wraps a remote or local model API (OpenAI directly, or any
// backend reachable through any-llm-go) and exposes a uniform interface for
// sending assembled conversation turns without coupling the rest of the
// application to a specific SDK.
//
// Implementations must be safe for concurrent use. Channels returned by
// StreamCompletion must be closed by the implementation when the stream ends
// or when the supplied context is cancelled.
package llm

import "context"

// CompletionRequest carries everything the backend needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation: knowledge-base turns, history,
	// and the new user content last. The order is significant and must be
	// delivered to the backend unchanged.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full (non-streamed) reply.
type CompletionResponse struct {
	// Content is the assistant's reply text. Callers are expected to trim
	// surrounding whitespace before display or storage.
	Content string

	// Usage holds token accounting when the backend reports it.
	Usage Usage
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Chunk is a single fragment emitted by a streaming completion.
type Chunk struct {
	// Text is the incremental text content. May be empty on the final chunk.
	Text string

	// FinishReason is set on the final chunk: "stop", "length", or "error".
	// An "error" chunk carries the error message in Text.
	FinishReason string
}

// Provider is the abstraction over any chat-completion backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Provider interface {
	// Complete sends req and waits for the full reply. Returns an error if
	// the request fails, the backend reports an error, or ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion sends req and returns a read-only channel emitting
	// Chunk values as they arrive. The channel is closed when generation
	// finishes or ctx is cancelled. Errors after the stream opens surface as
	// a Chunk with FinishReason "error"; the error return is non-nil only
	// when the stream cannot start. Callers must drain the channel.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)
}
