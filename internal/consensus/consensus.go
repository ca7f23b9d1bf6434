// Package consensus reconciles answers from several enrichment providers into
// one company profile.
package consensus

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-engine/internal/metrics"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/provider"
	"github.com/sells-group/lead-engine/internal/resilience"
)

const defaultProviderTimeout = 30 * time.Second

// Config controls reconciliation.
type Config struct {
	// MockMode skips real providers entirely.
	MockMode        bool
	ProviderTimeout time.Duration
}

// Attempt records one provider call.
type Attempt struct {
	Provider   string
	Err        error
	Duration   time.Duration
	Confidence float64
}

// Outcome is a reconciled profile plus how it was obtained.
type Outcome struct {
	Profile  model.EnrichedCompany
	Attempts []Attempt
	// Fallback is true when every real provider failed (or none exist) and
	// the mock produced the profile.
	Fallback bool
}

// Reconciler fans a contact out to every provider and merges the answers.
// The provider set is fixed at construction.
type Reconciler struct {
	cfg       Config
	providers []provider.Provider
	mock      provider.Provider
	metrics   *metrics.Recorder
	now       func() time.Time
}

// New creates a reconciler over a snapshot of providers. rec may be nil.
func New(cfg Config, providers []provider.Provider, mock provider.Provider, rec *metrics.Recorder) *Reconciler {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	snap := make([]provider.Provider, len(providers))
	copy(snap, providers)
	return &Reconciler{
		cfg:       cfg,
		providers: snap,
		mock:      mock,
		metrics:   rec,
		now:       time.Now,
	}
}

// Providers returns the names of the real providers in use.
func (r *Reconciler) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Reconcile produces a profile for id. Provider failures never surface as
// errors; the only error is a failure of the mock itself, which happens
// only when ctx is done.
func (r *Reconciler) Reconcile(ctx context.Context, id provider.Identity) (*Outcome, error) {
	if r.cfg.MockMode {
		return r.fromMock(ctx, id, nil, false)
	}

	results, attempts := r.fanOut(ctx, id)

	var out *Outcome
	switch len(results) {
	case 0:
		return r.fromMock(ctx, id, attempts, true)
	case 1:
		res := results[0]
		profile := res.Company
		profile.EnrichmentSource = model.SourceSingleLLM
		profile.ProvidersUsed = []string{res.Provider}
		profile.Confidence = model.Float(res.Confidence)
		out = &Outcome{Profile: profile, Attempts: attempts}
	default:
		profile := Merge(results)
		out = &Outcome{Profile: profile, Attempts: attempts}
	}

	r.finish(&out.Profile, id)
	return out, nil
}

// fanOut calls every provider concurrently under its own timeout. Results
// come back in completion order.
func (r *Reconciler) fanOut(ctx context.Context, id provider.Identity) ([]*provider.Result, []Attempt) {
	var (
		mu       sync.Mutex
		results  []*provider.Result
		attempts []Attempt
	)

	// Provider goroutines never return errors, so one failure cannot cancel
	// the others through the group context.
	var g errgroup.Group
	for _, p := range r.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
			defer cancel()

			start := r.now()
			res, err := p.Enrich(pctx, id)
			elapsed := r.now().Sub(start)
			if err == nil && res == nil {
				err = eris.Wrapf(provider.ErrMalformedResponse, "%s: empty result", p.Name())
			}

			r.metrics.ObserveProvider(p.Name(), resilience.Classify(err), elapsed)

			a := Attempt{Provider: p.Name(), Err: err, Duration: elapsed}
			if err != nil {
				zap.L().Warn("consensus: provider failed",
					zap.String("provider", p.Name()),
					zap.String("company", id.Company),
					zap.Duration("duration", elapsed),
					zap.Error(err),
				)
			} else {
				res.Provider = p.Name()
				a.Confidence = res.Confidence
			}

			mu.Lock()
			defer mu.Unlock()
			attempts = append(attempts, a)
			if err == nil {
				results = append(results, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, attempts
}

func (r *Reconciler) fromMock(ctx context.Context, id provider.Identity, attempts []Attempt, fallback bool) (*Outcome, error) {
	if r.mock == nil {
		return nil, eris.New("consensus: no mock provider configured")
	}
	res, err := r.mock.Enrich(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "consensus: mock enrichment")
	}

	profile := res.Company
	profile.EnrichmentSource = model.SourceMock
	profile.ProvidersUsed = nil
	profile.Confidence = model.Float(res.Confidence)
	profile.Fallback = fallback
	if fallback {
		zap.L().Warn("consensus: all providers failed, using mock profile",
			zap.String("company", id.Company),
			zap.Int("attempts", len(attempts)),
		)
	}

	out := &Outcome{Profile: profile, Attempts: attempts, Fallback: fallback}
	r.finish(&out.Profile, id)
	return out, nil
}

// finish fills derived fields shared by every path.
func (r *Reconciler) finish(p *model.EnrichedCompany, id provider.Identity) {
	if p.Name == "" {
		p.Name = id.Company
	}
	if p.Domain == "" {
		if d := id.EmailDomain(); d != "" && !freemail[d] {
			p.Domain = d
		} else if p.Name != "" {
			p.Domain = provider.DomainFor(p.Name)
		}
	}
	if p.Size == "" && p.EmployeeCount != nil {
		p.Size = model.SizeForEmployees(*p.EmployeeCount)
	}
	p.EnrichedAt = r.now().UTC()
	r.metrics.ObserveSource(string(p.EnrichmentSource))
}

var freemail = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true, "outlook.com": true,
	"icloud.com": true, "aol.com": true, "proton.me": true, "protonmail.com": true,
}

// Merge combines two or more results field by field. Scalars come from the
// most confident provider that has a value (earlier completion wins ties);
// lists are the case-insensitive union, visiting providers by descending
// confidence; confidence is the self-weighted mean Σc²/Σc.
func Merge(results []*provider.Result) model.EnrichedCompany {
	ranked := make([]*provider.Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var out model.EnrichedCompany
	out.Name = firstString(ranked, func(c *model.EnrichedCompany) string { return c.Name })
	out.Domain = firstString(ranked, func(c *model.EnrichedCompany) string { return c.Domain })
	out.Industry = firstString(ranked, func(c *model.EnrichedCompany) string { return c.Industry })
	out.Description = firstString(ranked, func(c *model.EnrichedCompany) string { return c.Description })
	out.Headquarters = firstString(ranked, func(c *model.EnrichedCompany) string { return c.Headquarters })
	out.BusinessModel = firstString(ranked, func(c *model.EnrichedCompany) string { return c.BusinessModel })
	out.TargetMarket = firstString(ranked, func(c *model.EnrichedCompany) string { return c.TargetMarket })
	out.FundingStage = firstString(ranked, func(c *model.EnrichedCompany) string { return c.FundingStage })
	out.Size = model.SizeClass(firstString(ranked, func(c *model.EnrichedCompany) string { return string(c.Size) }))

	for _, r := range ranked {
		if r.Company.EmployeeCount != nil {
			out.EmployeeCount = model.Int(*r.Company.EmployeeCount)
			break
		}
	}
	for _, r := range ranked {
		if r.Company.Revenue != nil {
			out.Revenue = model.Float(*r.Company.Revenue)
			break
		}
	}

	out.Technologies = union(ranked, func(c *model.EnrichedCompany) []string { return c.Technologies })
	out.KeyProducts = union(ranked, func(c *model.EnrichedCompany) []string { return c.KeyProducts })

	var sum, sumSq float64
	for _, r := range results {
		sum += r.Confidence
		sumSq += r.Confidence * r.Confidence
	}
	conf := 0.0
	if sum > 0 {
		conf = sumSq / sum
	}
	out.Confidence = model.Float(conf)

	out.EnrichmentSource = model.SourceMultiLLM
	out.ProvidersUsed = make([]string, len(results))
	for i, r := range results {
		out.ProvidersUsed[i] = r.Provider
	}
	return out
}

func firstString(ranked []*provider.Result, get func(*model.EnrichedCompany) string) string {
	for _, r := range ranked {
		if v := strings.TrimSpace(get(&r.Company)); v != "" {
			return v
		}
	}
	return ""
}

func union(ranked []*provider.Result, get func(*model.EnrichedCompany) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range ranked {
		for _, v := range get(&r.Company) {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}
