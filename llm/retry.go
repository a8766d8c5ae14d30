package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryProvider wraps a Provider with exponential backoff on retryable
// errors. The core never retries on its own; callers that want retries wrap
// their provider explicitly.
type RetryProvider struct {
	inner      Provider
	maxElapsed time.Duration
}

var _ Provider = (*RetryProvider)(nil)

// WithRetry wraps p so transport-class failures are retried with
// exponential backoff for at most maxElapsed.
func WithRetry(p Provider, maxElapsed time.Duration) *RetryProvider {
	return &RetryProvider{inner: p, maxElapsed: maxElapsed}
}

func (r *RetryProvider) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed
	return backoff.WithContext(b, ctx)
}

// Generate implements Provider.Generate with retries.
func (r *RetryProvider) Generate(ctx context.Context, req *Request) (*GenerateResult, error) {
	var result *GenerateResult
	op := func() error {
		var err error
		result, err = r.inner.Generate(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, r.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// Stream implements Provider.Stream. Only establishing the stream is
// retried; events already delivered are never replayed.
func (r *RetryProvider) Stream(ctx context.Context, req *Request) (Stream, error) {
	var stream Stream
	op := func() error {
		var err error
		stream, err = r.inner.Stream(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, r.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return stream, nil
}
