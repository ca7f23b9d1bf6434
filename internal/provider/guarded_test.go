package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestGuarded_RetriesTransient(t *testing.T) {
	inner := &stubProvider{name: "anthropic"}
	inner.fn = func(_ context.Context, _ Identity) (*Result, error) {
		if inner.calls < 3 {
			return nil, resilience.NewTransientError(errors.New("overloaded"), 529)
		}
		return &Result{Provider: "anthropic", Confidence: 70}, nil
	}

	g := Guard(inner, GuardOptions{Retry: fastRetry()})
	res, err := g.Enrich(context.Background(), Identity{Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.Confidence)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "anthropic", g.Name())
}

func TestGuarded_MalformedNotRetried(t *testing.T) {
	inner := &stubProvider{name: "openai", fn: func(_ context.Context, _ Identity) (*Result, error) {
		return nil, ErrMalformedResponse
	}}

	g := Guard(inner, GuardOptions{Retry: fastRetry()})
	_, err := g.Enrich(context.Background(), Identity{Company: "Acme"})
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, 1, inner.calls)
}

func TestGuarded_OpenBreakerShortCircuits(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	inner := &stubProvider{name: "perplexity", fn: func(_ context.Context, _ Identity) (*Result, error) {
		return nil, errors.New("boom")
	}}

	g := Guard(inner, GuardOptions{Breaker: breaker, Retry: resilience.RetryConfig{MaxAttempts: 1}})
	_, err := g.Enrich(context.Background(), Identity{})
	require.Error(t, err)

	_, err = g.Enrich(context.Background(), Identity{})
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
}

func TestGuarded_RateLimitRespectsDeadline(t *testing.T) {
	inner := &stubProvider{name: "openai", fn: func(_ context.Context, _ Identity) (*Result, error) {
		return &Result{Provider: "openai"}, nil
	}}
	g := Guard(inner, GuardOptions{RPS: 0.01, Burst: 1, Retry: resilience.RetryConfig{MaxAttempts: 1}})

	_, err := g.Enrich(context.Background(), Identity{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Enrich(ctx, Identity{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, 1, inner.calls)
}
