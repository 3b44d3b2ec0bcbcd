package retry

import (
	"context"
	"fmt"
	"time"
)

const defaultAttempts = 3

// DefaultDelays is the inter-attempt delay schedule; the last entry repeats
// for any further attempt.
var DefaultDelays = []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond, 3500 * time.Millisecond}

// Executor runs an operation up to a fixed number of attempts with an
// increasing delay between attempts. Exhausting the budget surfaces the last
// error.
type Executor struct {
	attempts int
	delays   []time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewExecutor(attempts int, delays []time.Duration) *Executor {
	return newExecutor(attempts, delays, sleepWithContext)
}

func newExecutor(attempts int, delays []time.Duration, sleepFn func(ctx context.Context, d time.Duration) error) *Executor {
	if attempts < 1 {
		attempts = defaultAttempts
	}
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &Executor{
		attempts: attempts,
		delays:   delays,
		sleep:    sleepFn,
	}
}

// Do invokes fn until it succeeds or the attempt budget is exhausted. The
// delay after attempt i is delays[i], repeating the last delay past the end
// of the schedule. Context cancellation aborts between attempts.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if e == nil {
		return fmt.Errorf("retry executor is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == e.attempts-1 {
			break
		}
		if err := e.sleep(ctx, e.delayFor(attempt)); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func (e *Executor) delayFor(attempt int) time.Duration {
	if attempt < len(e.delays) {
		return e.delays[attempt]
	}
	return e.delays[len(e.delays)-1]
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
