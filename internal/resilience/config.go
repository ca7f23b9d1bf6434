package resilience

import (
	"time"

	"github.com/sells-group/lead-engine/internal/config"
)

// FromConfig builds the retry and breaker policies from application config.
// Zero values fall back to the defaults.
func FromConfig(c config.ResilienceConfig) (RetryConfig, BreakerConfig) {
	retry := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		retry.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	if c.Multiplier > 0 {
		retry.Multiplier = c.Multiplier
	}
	if c.JitterFraction >= 0 {
		retry.JitterFraction = c.JitterFraction
	}

	breaker := DefaultBreakerConfig()
	if c.FailureThreshold > 0 {
		breaker.FailureThreshold = c.FailureThreshold
	}
	if c.ResetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(c.ResetTimeoutSecs) * time.Second
	}
	// Bad requests and malformed responses are the caller's problem, not the
	// provider's health.
	breaker.ShouldTrip = IsTransient
	return retry, breaker
}
