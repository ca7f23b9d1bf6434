package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(_ context.Context) error { return errBoom }
func pass(_ context.Context) error { return nil }

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())

	var calls int
	err := b.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	if b.State() != CircuitOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	err := b.Execute(context.Background(), func(_ context.Context) error {
		t.Error("fn must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessClearsFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	if got := b.Failures(); got != 2 {
		t.Fatalf("expected 2 failures, got %d", got)
	}

	_ = b.Execute(context.Background(), pass)
	if got := b.Failures(); got != 0 {
		t.Errorf("expected failures reset, got %d", got)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Execute(context.Background(), fail)
	if b.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	b.now = func() time.Time { return now.Add(2 * time.Second) }
	if b.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", b.State())
	}

	if err := b.Execute(context.Background(), pass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed after probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Execute(context.Background(), fail)
	b.now = func() time.Time { return now.Add(2 * time.Second) }

	_ = b.Execute(context.Background(), fail)
	if b.State() != CircuitOpen {
		t.Errorf("expected reopened, got %s", b.State())
	}
}

func TestBreaker_ShouldTripIgnoresPermanentErrors(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ShouldTrip: IsTransient})

	_ = b.Execute(context.Background(), func(_ context.Context) error {
		return errors.New("bad request")
	})
	if b.State() != CircuitClosed {
		t.Fatalf("permanent error must not trip, got %s", b.State())
	}

	_ = b.Execute(context.Background(), func(_ context.Context) error {
		return NewTransientError(errBoom, 503)
	})
	if b.State() != CircuitOpen {
		t.Errorf("transient error should trip, got %s", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Execute(context.Background(), fail)
	b.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = b.Execute(context.Background(), fail)
				return
			}
			_ = b.Execute(context.Background(), pass)
		}(i)
	}
	wg.Wait()

	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestExecuteVal(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1})

	v, err := ExecuteVal(context.Background(), b, func(_ context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("expected 7, nil; got %d, %v", v, err)
	}

	_, _ = ExecuteVal(context.Background(), b, func(_ context.Context) (int, error) {
		return 0, errBoom
	})
	v, err = ExecuteVal(context.Background(), b, func(_ context.Context) (int, error) {
		return 9, nil
	})
	if !errors.Is(err, ErrCircuitOpen) || v != 0 {
		t.Errorf("expected zero value and ErrCircuitOpen, got %d, %v", v, err)
	}
}

func TestBreakers_ForReusesPerProvider(t *testing.T) {
	s := NewBreakers(BreakerConfig{FailureThreshold: 1})

	a := s.For("anthropic")
	if a != s.For("anthropic") {
		t.Error("expected same breaker for same provider")
	}
	if a == s.For("openai") {
		t.Error("expected distinct breakers per provider")
	}

	_ = a.Execute(context.Background(), fail)
	states := s.States()
	if states["anthropic"] != CircuitOpen {
		t.Errorf("expected anthropic open, got %s", states["anthropic"])
	}
	if states["openai"] != CircuitClosed {
		t.Errorf("expected openai closed, got %s", states["openai"])
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(99): "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d: expected %q, got %q", s, want, s.String())
		}
	}
}
