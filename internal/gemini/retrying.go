package gemini

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/logfields"
	"git.home.luguber.info/inful/docgen/internal/metrics"
	"git.home.luguber.info/inful/docgen/internal/retry"
	"git.home.luguber.info/inful/docgen/internal/throttle"
)

// RetryingClient wraps a Client with throttle acquisition and bounded
// exponential-backoff retry. Each attempt, including retries, re-acquires the
// throttle: a retried call still consumes quota.
type RetryingClient struct {
	inner    Client
	throttle *throttle.Throttle
	policy   retry.Policy
	recorder metrics.Recorder
	sleep    func(time.Duration)
}

// RetryingOption configures the retrying wrapper.
type RetryingOption func(*RetryingClient)

// WithSleeper injects the backoff sleep function (tests).
func WithSleeper(sleep func(time.Duration)) RetryingOption {
	return func(c *RetryingClient) { c.sleep = sleep }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) RetryingOption {
	return func(c *RetryingClient) { c.recorder = r }
}

// NewRetryingClient wraps inner with throttling and retry behavior.
func NewRetryingClient(inner Client, th *throttle.Throttle, policy retry.Policy, opts ...RetryingOption) *RetryingClient {
	c := &RetryingClient{
		inner:    inner,
		throttle: th,
		policy:   policy,
		recorder: metrics.NoopRecorder{},
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke performs one logical call of the given category. Transient outcomes
// (quota, network) are retried up to the policy's MaxRetries with backoff
// delays of base*2^attempt; non-transient outcomes propagate immediately.
// Exhaustion yields a RetryExhausted error carrying the last transient cause.
func (c *RetryingClient) Invoke(ctx context.Context, category throttle.Category, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt)
			slog.Warn("Retrying AI call",
				logfields.Category(string(category)),
				logfields.Attempt(attempt),
				slog.Duration("backoff", delay),
				logfields.Error(lastErr))
			c.recorder.IncCallRetry(string(category))
			c.sleep(delay)
		}

		c.throttle.Acquire(category)

		start := time.Now()
		text, err := c.inner.Generate(ctx, prompt)
		c.recorder.ObserveCallDuration(string(category), time.Since(start))
		if err == nil {
			c.recorder.IncCallResult(string(category), metrics.ResultSuccess)
			return text, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			slog.Error("Non-retryable AI call failure",
				logfields.Category(string(category)),
				logfields.Error(err))
			c.recorder.IncCallResult(string(category), metrics.ResultFatal)
			return "", err
		}
	}

	slog.Error("AI call retries exhausted",
		logfields.Category(string(category)),
		slog.Int("attempts", c.policy.MaxRetries+1),
		logfields.Error(lastErr))
	c.recorder.IncCallExhausted(string(category))
	return "", errors.RetryExhausted(string(category), c.policy.MaxRetries+1, lastErr)
}
