package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-engine/internal/model"
)

var (
	mockIndustries = []string{
		"Software", "Financial Services", "Healthcare", "Manufacturing", "Retail",
		"Education", "Logistics", "Media", "Energy", "Telecommunications",
	}
	mockBusinessModels = []string{"B2B SaaS", "B2B Services", "B2C", "Marketplace", "Hardware", "Consulting"}
	mockFundingStages  = []string{"Bootstrapped", "Seed", "Series A", "Series B", "Series C", "Public", "Private Equity"}
	mockHeadquarters   = []string{
		"San Francisco, CA, USA", "New York, NY, USA", "Austin, TX, USA", "Chicago, IL, USA",
		"London, United Kingdom", "Berlin, Germany", "Toronto, ON, Canada", "Sydney, NSW, Australia",
	}
	mockTargetMarkets = []string{"SMB", "Mid-Market", "Enterprise", "Consumer", "Public Sector"}
	mockTechnologies  = []string{
		"Salesforce", "HubSpot", "AWS", "Azure", "Google Cloud", "Kubernetes", "Snowflake",
		"React", "Python", "Go", "PostgreSQL", "Stripe", "Slack", "Zendesk",
	}

	// employee bands per size class, inclusive
	mockBands = map[model.SizeClass][2]int{
		model.SizeSmall:      {5, 49},
		model.SizeMedium:     {50, 249},
		model.SizeLarge:      {250, 999},
		model.SizeEnterprise: {1000, 20000},
	}

	legalSuffixes = map[string]bool{
		"inc": true, "incorporated": true, "llc": true, "llp": true, "ltd": true, "limited": true,
		"corp": true, "corporation": true, "co": true, "company": true, "gmbh": true, "ag": true,
		"sa": true, "plc": true, "bv": true, "nv": true, "pty": true, "srl": true, "oy": true, "ab": true,
	}

	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

const (
	mockMinConfidence = 30
	mockMaxConfidence = 60
)

// Mock synthesizes plausible profiles without any network access. With a
// seed the output depends only on the seed and the identity, so concurrent
// calls stay reproducible.
type Mock struct {
	seed   uint64
	seeded bool
}

// NewMock returns an unseeded mock.
func NewMock() *Mock { return &Mock{} }

// NewSeededMock returns a mock whose output is a pure function of seed and
// identity.
func NewSeededMock(seed int64) *Mock {
	return &Mock{seed: uint64(seed), seeded: true}
}

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

// Enrich implements Provider. It fails only when ctx is already done.
func (m *Mock) Enrich(ctx context.Context, id Identity) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "mock: enrich")
	}

	rng := m.rng(id)
	name := strings.TrimSpace(id.Company)
	if name == "" {
		name = "Unknown Company"
	}

	size := model.SizeClasses[rng.IntN(len(model.SizeClasses))]
	band := mockBands[size]
	employees := band[0] + rng.IntN(band[1]-band[0]+1)
	perHead := 80_000 + rng.Float64()*220_000
	revenue := math.Round(float64(employees)*perHead/1000) * 1000
	industry := pick(rng, mockIndustries)
	conf := float64(mockMinConfidence + rng.IntN(mockMaxConfidence-mockMinConfidence+1))

	company := model.EnrichedCompany{
		Name:          name,
		Domain:        DomainFor(name),
		Size:          size,
		Industry:      industry,
		Description:   fmt.Sprintf("%s is a %s %s company.", name, strings.ToLower(string(size)), strings.ToLower(industry)),
		EmployeeCount: model.Int(employees),
		Revenue:       model.Float(revenue),
		Headquarters:  pick(rng, mockHeadquarters),
		Technologies:  sample(rng, mockTechnologies, 2+rng.IntN(3)),
		BusinessModel: pick(rng, mockBusinessModels),
		KeyProducts:   []string{name + " Platform", name + " Analytics"},
		TargetMarket:  pick(rng, mockTargetMarkets),
		FundingStage:  pick(rng, mockFundingStages),
		Confidence:    model.Float(conf),
	}
	return &Result{Provider: m.Name(), Company: company, Confidence: conf}, nil
}

func (m *Mock) rng(id Identity) *rand.Rand {
	if !m.seeded {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(id.Company))) //nolint:errcheck
	h.Write([]byte{0})                           //nolint:errcheck
	h.Write([]byte(strings.ToLower(id.Name)))    //nolint:errcheck
	return rand.New(rand.NewPCG(m.seed, h.Sum64()))
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

// sample returns n distinct values in pool order.
func sample(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))[:n]
	chosen := make([]bool, len(pool))
	for _, i := range idx {
		chosen[i] = true
	}
	out := make([]string, 0, n)
	for i, v := range pool {
		if chosen[i] {
			out = append(out, v)
		}
	}
	return out
}

// DomainFor guesses a web domain from a company name: accents folded, legal
// suffixes dropped, everything outside [a-z0-9] removed, ".com" appended.
func DomainFor(company string) string {
	folded, _, err := transform.String(foldMarks, company)
	if err != nil {
		folded = company
	}
	folded = strings.ToLower(folded)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for len(words) > 1 && legalSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	base := strings.Join(words, "")
	if base == "" {
		base = "example"
	}
	return base + ".com"
}
