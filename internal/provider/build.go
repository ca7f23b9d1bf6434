package provider

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/config"
	"github.com/sells-group/lead-engine/internal/resilience"
	"github.com/sells-group/lead-engine/pkg/anthropic"
	"github.com/sells-group/lead-engine/pkg/openai"
	"github.com/sells-group/lead-engine/pkg/perplexity"
)

// FromConfig registers a guarded provider for every configured API key, in
// the order anthropic, openai, perplexity. No keys yields an empty registry.
func FromConfig(cfg *config.Config) (*Registry, error) {
	retry, breakerCfg := resilience.FromConfig(cfg.Resilience)
	breakers := resilience.NewBreakers(breakerCfg)

	guard := func(p Provider, pc config.ProviderConfig) Provider {
		return Guard(p, GuardOptions{
			RPS:     pc.RateRPS,
			Burst:   1,
			Breaker: breakers.For(p.Name()),
			Retry:   retry,
		})
	}

	reg := &Registry{}
	if cfg.Anthropic.Configured() {
		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		if err := reg.Register(guard(NewAnthropic(client, cfg.Anthropic.Model), cfg.Anthropic)); err != nil {
			return nil, eris.Wrap(err, "provider: build from config")
		}
	}
	if cfg.OpenAI.Configured() {
		client := openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
		)
		if err := reg.Register(guard(NewOpenAI(client, cfg.OpenAI.Model), cfg.OpenAI)); err != nil {
			return nil, eris.Wrap(err, "provider: build from config")
		}
	}
	if cfg.Perplexity.Configured() {
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		if err := reg.Register(guard(NewPerplexity(client, cfg.Perplexity.Model), cfg.Perplexity)); err != nil {
			return nil, eris.Wrap(err, "provider: build from config")
		}
	}
	return reg, nil
}

// MockFromConfig returns the fallback mock, seeded when a seed is configured.
func MockFromConfig(cfg *config.Config) *Mock {
	if cfg.Enrichment.Seed != 0 {
		return NewSeededMock(cfg.Enrichment.Seed)
	}
	return NewMock()
}
