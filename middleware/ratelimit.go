package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRequestsPerMinute is the default request budget.
	DefaultRequestsPerMinute = 30
	// DefaultTokensPerMinute is the default token budget.
	DefaultTokensPerMinute = 100000
)

// RateLimit enforces a client-side requests-per-minute budget and tracks a
// tokens-per-minute budget. The request bucket blocks BeforeGenerate until a
// slot is available; the token bucket is debited after the fact from real
// usage and may go negative, which only slows the next refill rather than
// failing the call.
type RateLimit struct {
	Nop
	logger zerolog.Logger

	mu         sync.Mutex
	rpm        float64
	tpm        float64
	requests   float64
	tokens     float64
	lastRefill time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimit creates the rate limit middleware. Non-positive limits fall
// back to the defaults.
func NewRateLimit(logger zerolog.Logger, requestsPerMinute, tokensPerMinute float64) *RateLimit {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if tokensPerMinute <= 0 {
		tokensPerMinute = DefaultTokensPerMinute
	}
	r := &RateLimit{
		logger:   logger.With().Str("component", "rateLimit").Logger(),
		rpm:      requestsPerMinute,
		tpm:      tokensPerMinute,
		requests: requestsPerMinute,
		tokens:   tokensPerMinute,
		now:      time.Now,
	}
	r.lastRefill = r.now()
	r.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return r
}

func (r *RateLimit) Name() string { return "rate_limit" }

// refillLocked tops up both buckets from elapsed time, capped at the limits.
func (r *RateLimit) refillLocked() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.requests += elapsed * (r.rpm / 60)
	if r.requests > r.rpm {
		r.requests = r.rpm
	}
	r.tokens += elapsed * (r.tpm / 60)
	if r.tokens > r.tpm {
		r.tokens = r.tpm
	}
}

// BeforeGenerate takes one request slot, waiting for refill if the bucket
// is empty.
func (r *RateLimit) BeforeGenerate(ctx context.Context, p *Params) error {
	r.mu.Lock()
	r.refillLocked()
	if r.requests < 1 {
		wait := time.Duration((1 - r.requests) / (r.rpm / 60) * float64(time.Second))
		r.mu.Unlock()
		r.logger.Debug().Dur("wait", wait).Msg("Request budget exhausted, waiting")
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
		r.mu.Lock()
		r.refillLocked()
	}
	r.requests--
	r.mu.Unlock()
	return nil
}

// AfterGenerate debits real token usage. The balance may go negative.
func (r *RateLimit) AfterGenerate(ctx context.Context, p *Params, res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	r.tokens -= float64(res.Usage.Total())
	if r.tokens < 0 {
		r.logger.Warn().
			Float64("token_balance", r.tokens).
			Int("spent", res.Usage.Total()).
			Msg("Token budget overdrawn")
	}
	return nil
}
