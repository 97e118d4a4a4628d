package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultAttempts is the total number of tries per operation.
	DefaultAttempts = 3
	// DefaultBaseDelay is the wait before the second attempt; it doubles for each later one.
	DefaultBaseDelay = time.Second
)

// ErrRateLimited marks a backend response with HTTP 429 semantics.
var ErrRateLimited = errors.New("rate limited")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Backend, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

// Retry is an exponential backoff policy: attempt i (0-based) failing waits
// BaseDelay * 2^i before attempt i+1.
type Retry struct {
	Attempts  int
	BaseDelay time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (r Retry) attempts() int {
	if r.Attempts <= 0 {
		return DefaultAttempts
	}
	return r.Attempts
}

func (r Retry) delay(attempt int) time.Duration {
	base := r.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return base << attempt
}

// Do runs fn until it succeeds or the attempt budget is spent, returning the last error.
func (r Retry) Do(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	n := r.attempts()
	for attempt := 0; attempt < n; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == n-1 {
			break
		}

		wait := r.delay(attempt)
		if errors.Is(err, ErrRateLimited) {
			logger.Warn("rate limited, backing off", "attempt", attempt+1, "wait", wait)
		} else {
			logger.Warn("request failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
