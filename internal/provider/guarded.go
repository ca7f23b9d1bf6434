package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-engine/internal/resilience"
)

// GuardOptions configures a Guarded provider.
type GuardOptions struct {
	// RPS caps request rate. Zero disables limiting.
	RPS     float64
	Burst   int
	Breaker *resilience.Breaker
	Retry   resilience.RetryConfig
}

// Guarded wraps a provider with rate limiting, circuit breaking and
// transient-error retries.
type Guarded struct {
	inner   Provider
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// Guard wraps p.
func Guard(p Provider, opts GuardOptions) *Guarded {
	g := &Guarded{inner: p, breaker: opts.Breaker, retry: opts.Retry}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	if g.breaker == nil {
		g.breaker = resilience.NewBreaker(resilience.DefaultBreakerConfig())
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.RetryLogger(p.Name(), "enrich")
	}
	return g
}

// Name implements Provider.
func (g *Guarded) Name() string { return g.inner.Name() }

// Enrich implements Provider.
func (g *Guarded) Enrich(ctx context.Context, id Identity) (*Result, error) {
	return resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Result, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrapf(err, "%s: rate limit wait", g.Name())
			}
		}
		return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*Result, error) {
			return g.inner.Enrich(ctx, id)
		})
	})
}
