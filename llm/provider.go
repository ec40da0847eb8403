package llm

import "context"

// Request is a single provider completion invocation: ordered canonical
// messages plus sampling parameters and optional tool declarations.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
	Tools       []ToolDef
	ToolChoice  ToolChoice
}

// StreamChunk is one partial fragment of an incremental response. Usage
// is non-nil only on the terminal chunk when the provider reports it.
type StreamChunk struct {
	Delta string
	Usage *Usage
}

// Stream is a pull-based, forward-only, single-pass sequence of partial
// response chunks. Recv blocks on I/O readiness and returns io.EOF when
// the provider signals completion. A Stream is not restartable.
type Stream interface {
	Recv() (StreamChunk, error)
	Close() error
}

// Provider is the outbound completion endpoint. Implementations must be
// safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (Stream, error)
}
