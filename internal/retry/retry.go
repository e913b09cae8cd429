// Package retry implements the bounded exponential backoff policy applied to
// embedding and generation provider calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/domain"
)

// Policy describes a retry budget. The zero value retries nothing; use
// Default for the standard provider policy.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the first retry; each further retry
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the doubled delay.
	MaxDelay time.Duration

	// Jitter randomizes each delay by up to +/- this fraction (0-1).
	Jitter float64
}

// Default returns the policy used for provider calls.
func Default() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the policy gives up on it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether err is worth another attempt. Caller errors,
// configuration errors, and explicit Permanent errors are not; everything
// else (timeouts, rate limits, transport failures) is.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Do runs fn until it succeeds, fails permanently, or the attempt budget is
// spent. A spent budget wraps the last error in ErrProviderUnavailable. The
// op name is used only for logging.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.delay(attempt - 2)
			log.Debug("Retrying after transient failure", "op", op, "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", op, domain.ErrProviderUnavailable, attempts, err)
}

// delay computes the backoff for the n-th retry (0-based).
func (p Policy) delay(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter > 0 {
		spread := 1 + p.Jitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * spread)
	}

	return d
}
