package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for WithExponentialBackoff.
type Option func(*Policy)

// WithExponentialBackoff executes the operation until it succeeds, returns a
// fatal error, or the policy's retry budget is spent. Context cancellation is
// respected between attempts.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	p := Policy{
		MaxRetries: 5,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(&p)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}

		delay, ok := p.Next(err, attempt)
		if !ok {
			break
		}

		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, err)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", p.MaxRetries+1, lastErr)
}

// WithMaxRetries sets the maximum number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(p *Policy) {
		p.MaxRetries = n
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.BaseDelay = d
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.MaxDelay = d
	}
}

// WithJitter sets the jitter fraction applied to each delay.
func WithJitter(f float64) Option {
	return func(p *Policy) {
		p.Jitter = f
	}
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf formats an error and marks it as fatal.
func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
