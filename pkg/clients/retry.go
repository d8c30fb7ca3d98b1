package clients

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior with exponential backoff.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so a
	// policy with MaxRetries 3 makes up to 4 attempts in total.
	MaxRetries int
	// BaseDelay seeds the backoff schedule. The delay before retry n
	// (1-based) is BaseDelay * Multiplier^n, so with a 2s base and the
	// default multiplier the schedule runs 4s, 8s, 16s.
	BaseDelay time.Duration
	// MaxDelay caps any single backoff wait.
	MaxDelay time.Duration
	// Multiplier scales the delay between consecutive retries.
	Multiplier float64
	// Jitter randomizes each delay by up to the given fraction. Zero
	// keeps the schedule deterministic.
	Jitter float64
}

// NewRetryPolicy creates a retry policy with a deterministic exponential
// backoff schedule.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   5 * time.Minute,
		Multiplier: 2.0,
		Jitter:     0,
	}
}

// Execute runs fn, retrying every failure until the retry budget is
// spent.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	return rp.ExecuteWithCondition(ctx, fn, func(error) bool { return true })
}

// ExecuteWithCondition runs fn, retrying only failures shouldRetry
// accepts. Non-retryable errors return immediately and unchanged; a
// spent retry budget returns the last error wrapped with the attempt
// count.
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error
	attempts := rp.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == attempts-1 {
			break
		}

		delay := rp.calculateDelay(attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// calculateDelay calculates the backoff before retry attempt+1.
func (rp *RetryPolicy) calculateDelay(attempt int) time.Duration {
	delay := float64(rp.BaseDelay) * math.Pow(rp.Multiplier, float64(attempt+1))

	if delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	if rp.Jitter > 0 {
		delta := delay * rp.Jitter
		delay = delay - delta + rand.Float64()*2*delta
	}

	return time.Duration(delay)
}

// GetDelay returns the delay that would precede the given retry (0-based).
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	return rp.calculateDelay(attempt)
}
