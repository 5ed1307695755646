package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"claimassist/internal/logger"
)

// RetryPolicy bounds how a retryable failure is repeated.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // upper bound for a single delay
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    20 * time.Second,
	}
}

// Delay returns the backoff before the given attempt (2 = first retry).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << (attempt - 2)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

type retryBackend struct {
	next   Backend
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	log    zerolog.Logger
}

// WithRetry wraps a backend so that retryable failures are repeated with
// exponential backoff. Permanent failures are returned at once.
func WithRetry(next Backend, policy RetryPolicy) Backend {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryBackend{
		next:   next,
		policy: policy,
		sleep:  sleepContext,
		log:    logger.WithComponent("llm").With().Str("backend", next.Name()).Logger(),
	}
}

func (r *retryBackend) Name() string { return r.next.Name() }

func (r *retryBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	const op = "llm.WithRetry"

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, r.policy.Delay(attempt)); err != nil {
				return "", fmt.Errorf("%s: %w (last error: %v)", op, err, lastErr)
			}
		}

		text, err := r.next.Invoke(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return "", err
		}

		r.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.policy.MaxAttempts).
			Msg("Model call failed, retrying")
	}

	return "", fmt.Errorf("%s: all %d attempts failed: %w", op, r.policy.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
