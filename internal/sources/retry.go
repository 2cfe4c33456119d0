package sources

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// RetryConfig bounds how often and how patiently a source call is repeated.
// Zero fields fall back to DefaultRetryConfig.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig allows three attempts with 100ms doubling backoff capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2,
	}
}

func (c RetryConfig) normalize() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts < 1 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	return c
}

// backoff is the pause after the given 1-based failed attempt.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffMultiplier
		if d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	return time.Duration(d)
}

// RetryResult records every attempt made by ExecuteWithRetry.
type RetryResult struct {
	Attempts  int
	LastError error
	Errors    []error
	Success   bool
}

func (r RetryResult) String() string {
	switch {
	case r.Success && r.Attempts == 1:
		return "succeeded on first attempt"
	case r.Success:
		return fmt.Sprintf("succeeded after %d attempts", r.Attempts)
	default:
		return fmt.Sprintf("failed after %d attempts: %v", r.Attempts, r.LastError)
	}
}

func (r *RetryResult) fail(err error) {
	r.LastError = err
	r.Errors = append(r.Errors, err)
}

// RetryableError is returned once a transient failure outlives its attempts.
type RetryableError struct {
	Result RetryResult
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Result.Attempts, e.Result.LastError)
}

func (e *RetryableError) Unwrap() error { return e.Result.LastError }

// IsRetryable reports whether err looks transient: a broken pooled
// connection or a network timeout. Context errors never are.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return false
	case stderrors.Is(err, driver.ErrBadConn):
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// ExecuteWithRetry calls fn until it succeeds, returns a non-transient
// error, the attempts run out, or ctx ends.
//
//	result := sources.ExecuteWithRetry(ctx, sources.DefaultRetryConfig(), func() error {
//	    return src.Ping(ctx)
//	})
func ExecuteWithRetry(ctx context.Context, config RetryConfig, fn func() error) RetryResult {
	config = config.normalize()
	result := RetryResult{Errors: make([]error, 0, config.MaxAttempts)}

	for result.Attempts < config.MaxAttempts {
		result.Attempts++
		if err := ctx.Err(); err != nil {
			result.fail(err)
			return result
		}

		err := fn()
		if err == nil {
			result.Success, result.LastError = true, nil
			return result
		}
		result.fail(err)
		if !IsRetryable(err) || result.Attempts == config.MaxAttempts {
			return result
		}
		if err := sleep(ctx, config.backoff(result.Attempts)); err != nil {
			result.fail(err)
			return result
		}
	}
	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoadWithRetry loads query from src, retrying transient failures. A failure
// that took more than one attempt is wrapped in a RetryableError.
func LoadWithRetry(ctx context.Context, src Source, query string, config RetryConfig) (*frame.Table, RetryResult, error) {
	var t *frame.Table
	result := ExecuteWithRetry(ctx, config, func() (err error) {
		t, err = src.Load(ctx, query)
		return err
	})
	switch {
	case result.Success:
		return t, result, nil
	case result.Attempts > 1:
		return nil, result, &RetryableError{Result: result}
	default:
		return nil, result, result.LastError
	}
}
