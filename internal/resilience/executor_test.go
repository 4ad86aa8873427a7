package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BreakerEnabled: false,
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	e := NewExecutor(testConfig(), nil)

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return MarkRetryable(errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnTerminalError(t *testing.T) {
	e := NewExecutor(testConfig(), nil)

	terminal := errors.New("bad request")
	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("err = %v, want terminal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on terminal errors)", calls)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	e := NewExecutor(testConfig(), nil)

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return MarkRetryable(errors.New("still down"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	e := NewExecutor(Config{
		MaxAttempts:    5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		BreakerEnabled: false,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Do(ctx, "op", func(ctx context.Context) error {
			return MarkRetryable(errors.New("transient"))
		})
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("cancelled Do returned nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestBreakerOpensAfterFailureRun(t *testing.T) {
	e := NewExecutor(Config{
		MaxAttempts:         1,
		InitialBackoff:      time.Millisecond,
		MaxBackoff:          time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  4,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}, nil)

	boom := errors.New("provider down")
	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = e.Do(context.Background(), "flaky", func(ctx context.Context) error {
			return boom
		})
	}
	if !IsCircuitOpen(lastErr) {
		t.Errorf("breaker never opened, last error: %v", lastErr)
	}
}

func TestIsRetryableUnwraps(t *testing.T) {
	inner := errors.New("io timeout")
	wrapped := MarkRetryable(inner)
	if !isRetryable(wrapped) {
		t.Error("marked error not detected as retryable")
	}
	if !errors.Is(wrapped, inner) {
		t.Error("wrapping must preserve errors.Is")
	}
	if isRetryable(inner) {
		t.Error("unmarked error detected as retryable")
	}
	if MarkRetryable(nil) != nil {
		t.Error("MarkRetryable(nil) should stay nil")
	}
}
