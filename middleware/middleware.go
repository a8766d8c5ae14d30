// Package middleware provides a hook pipeline around model calls: request
// rewriting before dispatch, observation of completed results, and stream
// decoration. Built-ins cover logging, response caching, input/output
// guardrails, and client-side rate limiting.
package middleware

import (
	"context"

	"github.com/aschepis/chatkit/llm"
)

// Params is the mutable call state threaded through the pipeline. Hooks may
// rewrite the request and stash private state in the scratch space; scratch
// never reaches the provider wire request.
type Params struct {
	Request *llm.Request

	scratch map[string]interface{}
}

// NewParams wraps a request for a trip through the pipeline.
func NewParams(req *llm.Request) *Params {
	return &Params{Request: req, scratch: make(map[string]interface{})}
}

// Set stores a scratch value under key.
func (p *Params) Set(key string, value interface{}) {
	p.scratch[key] = value
}

// Get reads a scratch value.
func (p *Params) Get(key string) (interface{}, bool) {
	v, ok := p.scratch[key]
	return v, ok
}

// Pop reads and removes a scratch value.
func (p *Params) Pop(key string) (interface{}, bool) {
	v, ok := p.scratch[key]
	if ok {
		delete(p.scratch, key)
	}
	return v, ok
}

// Result is what AfterGenerate observes about a completed call: the
// assembled content, any tool calls, and the provider's usage totals.
type Result struct {
	Content   string
	ToolCalls []llm.ToolCall
	Usage     llm.Usage
}

// Middleware hooks into the lifecycle of a model call. Implementations
// embed Nop and override what they need.
type Middleware interface {
	// Name identifies the middleware in logs and config.
	Name() string

	// TransformParams may rewrite the request before dispatch.
	TransformParams(ctx context.Context, p *Params) error

	// BeforeGenerate runs immediately before the provider call.
	BeforeGenerate(ctx context.Context, p *Params) error

	// AfterGenerate observes the completed call.
	AfterGenerate(ctx context.Context, p *Params, res *Result) error

	// WrapStream may decorate the event stream.
	WrapStream(p *Params, next llm.Stream) llm.Stream
}

// Nop is a no-op Middleware for embedding.
type Nop struct{}

func (Nop) Name() string                                          { return "nop" }
func (Nop) TransformParams(context.Context, *Params) error        { return nil }
func (Nop) BeforeGenerate(context.Context, *Params) error         { return nil }
func (Nop) AfterGenerate(context.Context, *Params, *Result) error { return nil }
func (Nop) WrapStream(_ *Params, next llm.Stream) llm.Stream      { return next }
