package llm

import (
	"context"
	"time"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

// WithRetry calls fn up to attempts times while it fails with RATE_LIMITED.
// Each wait uses the provider reset hint when present, otherwise delay
// doubled per attempt. Any other error is returned immediately.
func WithRetry[T any](ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		uErr, ok := errors.As(err)
		if !ok || uErr.Code != errors.ErrRateLimited || i == attempts-1 {
			break
		}

		wait := uErr.RetryAfter
		if wait <= 0 {
			wait = delay << i
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Retrying routes a Client's calls through WithRetry.
type Retrying struct {
	Client   *Client
	Attempts int
	Delay    time.Duration
}

// Chat calls Client.Chat, retrying while rate limited.
func (r *Retrying) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return WithRetry(ctx, r.Attempts, r.Delay, func(ctx context.Context) (*ChatResponse, error) {
		return r.Client.Chat(ctx, req)
	})
}

// Embed calls Client.Embed, retrying while rate limited.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float64, error) {
	return WithRetry(ctx, r.Attempts, r.Delay, func(ctx context.Context) ([]float64, error) {
		return r.Client.Embed(ctx, text)
	})
}
