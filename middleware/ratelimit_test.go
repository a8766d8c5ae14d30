package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

// fakeClock lets tests drive refill without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRateLimit(rpm, tpm float64) (*RateLimit, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{t: time.Unix(1000000, 0)}
	var slept []time.Duration
	r := NewRateLimit(zerolog.Nop(), rpm, tpm)
	r.now = clock.now
	r.lastRefill = clock.now()
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock.advance(d)
		return nil
	}
	return r, clock, &slept
}

func TestRateLimit_DrainThenWait(t *testing.T) {
	r, _, slept := newTestRateLimit(2, 1000)
	ctx := context.Background()
	p := NewParams(&llm.Request{})

	// Two requests fit the budget without waiting.
	for i := 0; i < 2; i++ {
		if err := r.BeforeGenerate(ctx, p); err != nil {
			t.Fatalf("BeforeGenerate %d failed: %v", i, err)
		}
	}
	if len(*slept) != 0 {
		t.Fatalf("Expected no waits inside the budget, got %v", *slept)
	}

	// The third must wait for a full slot: 1 / (2/60) = 30s.
	if err := r.BeforeGenerate(ctx, p); err != nil {
		t.Fatalf("BeforeGenerate failed: %v", err)
	}
	if len(*slept) != 1 {
		t.Fatalf("Expected one wait, got %v", *slept)
	}
	if (*slept)[0] != 30*time.Second {
		t.Errorf("Expected 30s wait, got %v", (*slept)[0])
	}
}

func TestRateLimit_RefillRestoresBudget(t *testing.T) {
	r, clock, slept := newTestRateLimit(2, 1000)
	ctx := context.Background()
	p := NewParams(&llm.Request{})

	for i := 0; i < 2; i++ {
		if err := r.BeforeGenerate(ctx, p); err != nil {
			t.Fatalf("BeforeGenerate failed: %v", err)
		}
	}
	// A full minute refills the bucket to its cap.
	clock.advance(time.Minute)
	if err := r.BeforeGenerate(ctx, p); err != nil {
		t.Fatalf("BeforeGenerate after refill failed: %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no wait after refill, got %v", *slept)
	}
}

func TestRateLimit_TokenDebitGoesNegative(t *testing.T) {
	r, _, _ := newTestRateLimit(30, 100)
	ctx := context.Background()
	p := NewParams(&llm.Request{})

	res := &Result{Usage: llm.Usage{PromptTokens: 90, CompletionTokens: 60}}
	if err := r.AfterGenerate(ctx, p, res); err != nil {
		t.Fatalf("AfterGenerate failed: %v", err)
	}
	r.mu.Lock()
	balance := r.tokens
	r.mu.Unlock()
	if balance >= 0 {
		t.Errorf("Expected token balance to go negative, got %v", balance)
	}

	// The overdraft is soft: the next call still succeeds.
	if err := r.BeforeGenerate(ctx, p); err != nil {
		t.Fatalf("Expected overdrawn tokens not to block requests, got %v", err)
	}
}
