package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Class decides what a failure means for the loop.
type Class int

const (
	// Retryable errors go through backoff and another attempt.
	Retryable Class = iota
	// Fatal errors abort immediately.
	Fatal
)

// Policy configures the backoff loop. Delay grows exponentially from
// BaseDelay, capped at MaxDelay, with up to Jitter of random spread so
// concurrent workers hitting the same rate limit do not retry in lockstep.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration

	// Classify decides whether an error is retryable. Nil retries every
	// non-nil error.
	Classify func(error) Class

	// OnRetry is an optional hook for logging each scheduled retry.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Do runs fn until it succeeds, returns a fatal error, exhausts MaxAttempts,
// or the context is done. The last error is returned on exhaustion.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}

	classify := p.Classify
	if classify == nil {
		classify = func(error) Class { return Retryable }
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == Fatal {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.BaseDelay << (attempt - 1)
		if wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = errors.New("retry: exhausted with no error")
	}
	return lastErr
}
