package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker() *CircuitBreaker {
	return NewCircuitBreaker("test", Config{
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 2,
		SuccessThreshold: 2,
	})
}

func fail() error { return errBoom }
func ok() error   { return nil }

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker()
	if cb.State() != StateClosed {
		t.Fatalf("initial state = %v, want closed", cb.State())
	}

	cb.Execute(context.Background(), fail)
	if cb.State() != StateClosed {
		t.Fatalf("state after one failure = %v, want closed", cb.State())
	}

	cb.Execute(context.Background(), fail)
	if cb.State() != StateOpen {
		t.Fatalf("state after threshold failures = %v, want open", cb.State())
	}

	ran := false
	err := cb.Execute(context.Background(), func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Fatalf("operation must not run while the breaker is open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker()
	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), ok)
	cb.Execute(context.Background(), fail)
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed (failures are not consecutive)", cb.State())
	}
}

func TestClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := newTestBreaker()
	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after first probe success = %v, want half-open", cb.State())
	}

	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after success threshold = %v, want closed", cb.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker()
	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), fail)

	time.Sleep(30 * time.Millisecond)

	cb.Execute(context.Background(), fail)
	if cb.State() != StateOpen {
		t.Fatalf("state after half-open failure = %v, want open", cb.State())
	}
}

func TestCancelledContextSkipsOperation(t *testing.T) {
	cb := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := cb.Execute(ctx, func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatalf("operation must not run with a cancelled context")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateHalfOpen: "half-open",
		StateOpen:     "open",
		State(42):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
