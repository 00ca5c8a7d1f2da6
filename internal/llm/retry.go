package llm

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// RetryPolicy configures retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxRetries        int     // retries after the first attempt
	BaseDelay         float64 // seconds
	MaxDelay          float64 // seconds
	BackoffMultiplier float64
	Jitter            bool
	OnRetry           func(err error, attempt int, delay time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         1.0,
		MaxDelay:          30.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay calculates the delay before retry n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.BackoffMultiplier, float64(attempt)), p.MaxDelay)
	if p.Jitter {
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry runs fn until it succeeds, returns a non-retryable error or the
// policy is exhausted.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}
	return zero, err
}

type retryInvoker struct {
	next   Invoker
	policy RetryPolicy
}

// WithRetry retries failed invocations under policy. An invocation that has
// already streamed text is not retried, so no token is shown twice.
func WithRetry(next Invoker, policy RetryPolicy) Invoker {
	return &retryInvoker{next: next, policy: policy}
}

func (r *retryInvoker) Invoke(ctx context.Context, req Request) (models.Message, error) {
	var streamed atomic.Bool
	onDelta := req.OnDelta
	req.OnDelta = func(text string) {
		streamed.Store(true)
		if onDelta != nil {
			onDelta(text)
		}
	}

	return Retry(ctx, r.policy, func(ctx context.Context) (models.Message, error) {
		msg, err := r.next.Invoke(ctx, req)
		if err != nil && streamed.Load() {
			return msg, &noRetry{err}
		}
		return msg, err
	})
}

// noRetry marks an error as final while preserving its chain.
type noRetry struct{ err error }

func (n *noRetry) Error() string { return n.err.Error() }
func (n *noRetry) Unwrap() error { return n.err }
