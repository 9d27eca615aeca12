package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks failures to reach a remote backend (Redis, or the
	// layout database when it is dialled through RetryWithBackoff).
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss reports a key with no live entry.
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks a backend failure worth another attempt.
type RetryableError struct{ Err error }

// Retryable wraps err so that RetryWithBackoff tries again. It returns nil
// for a nil err, so dial results can be passed straight through.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff retries an operation with a doubling delay.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// dialBackoff is used when backends connect at startup.
var dialBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Do calls fn until it succeeds, returns an error not marked Retryable, or
// the attempts run out. The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt >= b.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// RetryWithBackoff dials a store or cache backend, retrying failures marked
// Retryable three times starting at one second.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return dialBackoff.Do(ctx, fn)
}
