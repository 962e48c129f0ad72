package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"uploadai/internal/logging"
)

// retryPolicy bounds retries of idempotent backend calls. Delays double from
// baseDelay and never exceed maxDelay, including server Retry-After hints.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts:  defaultRetryAttempts,
		baseDelay: defaultRetryBaseDelay,
		maxDelay:  defaultRetryMaxDelay,
	}
}

func (p retryPolicy) maxAttempts() int {
	return max(p.attempts, 1)
}

// backoff returns the delay before retrying after the given 1-based attempt.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.baseDelay <= 0 {
		return 0
	}
	attempt = max(attempt, 1)
	delay := p.baseDelay
	for range attempt - 1 {
		delay *= 2
		if delay >= p.ceiling() {
			break
		}
	}
	return p.clamp(delay)
}

func (p retryPolicy) ceiling() time.Duration {
	if p.maxDelay > 0 {
		return p.maxDelay
	}
	return defaultRetryMaxDelay
}

func (p retryPolicy) clamp(delay time.Duration) time.Duration {
	return min(max(delay, 0), p.ceiling())
}

// delayFor classifies err. It reports whether the call is worth repeating
// and how long to wait first.
func (p retryPolicy) delayFor(err error, attempt int) (time.Duration, bool) {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.Canceled):
		return 0, false
	case errors.As(err, &statusErr):
		if !statusErr.Temporary() {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return p.clamp(statusErr.RetryAfter), true
		}
		return p.backoff(attempt), true
	case errors.Is(err, context.DeadlineExceeded):
		return p.backoff(attempt), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.backoff(attempt), true
	}
	return 0, false
}

// withRetry runs fn under the client's retry policy. Only idempotent calls
// go through here.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := c.retry.maxAttempts()
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts || ctx.Err() != nil {
			if attempt == 1 {
				return err
			}
			return fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		delay, ok := c.retry.delayFor(err, attempt)
		if !ok {
			return err
		}
		c.logger.Warn("retrying backend request",
			logging.String("op", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.pause(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Client) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
