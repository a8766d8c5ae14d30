package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

// recorder appends its tag to a shared log from every hook.
type recorder struct {
	Nop
	tag          string
	calls        *[]string
	transformErr error
}

func (r *recorder) Name() string { return r.tag }

func (r *recorder) TransformParams(ctx context.Context, p *Params) error {
	*r.calls = append(*r.calls, "transform:"+r.tag)
	return r.transformErr
}

func (r *recorder) BeforeGenerate(ctx context.Context, p *Params) error {
	*r.calls = append(*r.calls, "before:"+r.tag)
	return nil
}

func (r *recorder) AfterGenerate(ctx context.Context, p *Params, res *Result) error {
	*r.calls = append(*r.calls, "after:"+r.tag)
	return nil
}

func (r *recorder) WrapStream(p *Params, next llm.Stream) llm.Stream {
	*r.calls = append(*r.calls, "wrap:"+r.tag)
	return next
}

func newTestParams() *Params {
	return NewParams(&llm.Request{
		Model:    "test-model",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	})
}

func TestPipeline_Ordering(t *testing.T) {
	var calls []string
	pl := NewPipeline(zerolog.Nop(),
		&recorder{tag: "A", calls: &calls},
		&recorder{tag: "B", calls: &calls},
		&recorder{tag: "C", calls: &calls},
	)
	p := newTestParams()
	ctx := context.Background()

	if err := pl.TransformParams(ctx, p); err != nil {
		t.Fatalf("TransformParams failed: %v", err)
	}
	if err := pl.BeforeGenerate(ctx, p); err != nil {
		t.Fatalf("BeforeGenerate failed: %v", err)
	}
	pl.AfterGenerate(ctx, p, &Result{})

	want := []string{
		"transform:A", "transform:B", "transform:C",
		"before:A", "before:B", "before:C",
		"after:C", "after:B", "after:A",
	}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d calls, got %d: %v", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Call %d: expected %q, got %q", i, want[i], calls[i])
		}
	}
}

func TestPipeline_WrapStreamFirstOutermost(t *testing.T) {
	var calls []string
	pl := NewPipeline(zerolog.Nop(),
		&recorder{tag: "A", calls: &calls},
		&recorder{tag: "B", calls: &calls},
	)
	s := llm.NewEventStream(nil)
	s.Done()
	pl.WrapStream(newTestParams(), s)

	// The first-registered middleware wraps last so it sits outermost.
	if len(calls) != 2 || calls[0] != "wrap:B" || calls[1] != "wrap:A" {
		t.Errorf("Unexpected wrap order: %v", calls)
	}
}

func TestPipeline_SuppressesHookFailures(t *testing.T) {
	var calls []string
	pl := NewPipeline(zerolog.Nop(),
		&recorder{tag: "A", calls: &calls, transformErr: errors.New("broken")},
		&recorder{tag: "B", calls: &calls},
	)
	if err := pl.TransformParams(context.Background(), newTestParams()); err != nil {
		t.Fatalf("Expected hook failure to be suppressed, got %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("Expected both middlewares to run, got %v", calls)
	}
}

func TestPipeline_ContentBlockedAborts(t *testing.T) {
	var calls []string
	pl := NewPipeline(zerolog.Nop(),
		&recorder{tag: "A", calls: &calls, transformErr: llm.NewContentBlockedError("blocked")},
		&recorder{tag: "B", calls: &calls},
	)
	err := pl.TransformParams(context.Background(), newTestParams())
	if err == nil {
		t.Fatal("Expected content-blocked error to propagate")
	}
	if !llm.IsKind(err, llm.KindContentBlocked) {
		t.Errorf("Expected content_blocked kind, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("Expected later middleware to be skipped, got %v", calls)
	}
}

func TestParams_ScratchIsolation(t *testing.T) {
	p := newTestParams()
	p.Set("k", 42)
	if v, ok := p.Get("k"); !ok || v != 42 {
		t.Errorf("Expected scratch value 42, got %v", v)
	}
	if v, ok := p.Pop("k"); !ok || v != 42 {
		t.Errorf("Expected Pop to return 42, got %v", v)
	}
	if _, ok := p.Get("k"); ok {
		t.Error("Expected key to be gone after Pop")
	}
}
