package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestExecutorSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	executor := newExecutor(3, DefaultDelays, noSleep)

	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() unexpected error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecutorExhaustionSurfacesLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	var slept []time.Duration
	executor := newExecutor(3, DefaultDelays, func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	wantErr := errors.New("send failed 3")
	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return wantErr
		}
		return errors.New("earlier failure")
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want last error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	wantDelays := []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond}
	if len(slept) != len(wantDelays) {
		t.Fatalf("sleeps = %d, want %d", len(slept), len(wantDelays))
	}
	for i, want := range wantDelays {
		if slept[i] != want {
			t.Fatalf("sleep[%d] = %v, want %v", i, slept[i], want)
		}
	}
}

func TestExecutorRepeatsLastDelay(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	executor := newExecutor(5, DefaultDelays, func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	_ = executor.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("always failing")
	})

	want := []time.Duration{
		500 * time.Millisecond,
		1500 * time.Millisecond,
		3500 * time.Millisecond,
		3500 * time.Millisecond,
	}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %d, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestExecutorRecoversMidSchedule(t *testing.T) {
	t.Parallel()

	calls := 0
	executor := newExecutor(3, DefaultDelays, noSleep)

	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() unexpected error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestExecutorContextCanceledBetweenAttempts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	executor := newExecutor(3, DefaultDelays, func(sleepCtx context.Context, d time.Duration) error {
		cancel()
		return sleepCtx.Err()
	})

	wantErr := errors.New("first failure")
	err := executor.Do(ctx, func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want first failure", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
