// Package persona scores enriched profiles against weighted ideal-customer
// personas and manages persona configuration.
package persona

import (
	"strings"

	"github.com/sells-group/lead-engine/internal/model"
)

// Kind selects how a criterion is matched.
type Kind string

const (
	// KindRange matches a numeric attribute inside an inclusive range.
	KindRange Kind = "range"
	// KindSet matches a scalar attribute against a set of values.
	KindSet Kind = "set"
	// KindAnySet matches when a multi-valued attribute intersects the set.
	KindAnySet Kind = "any_set"
	// KindKeyword matches whole-word titles.
	KindKeyword Kind = "keyword"
)

// Dimension names as they appear in criteria matches.
const (
	DimCompanySize   = "companySize"
	DimRevenue       = "revenue"
	DimIndustry      = "industry"
	DimTechnologies  = "technologies"
	DimGeography     = "geography"
	DimDecisionMaker = "decisionMaker"
	DimFundingStage  = "fundingStage"
)

// Criterion is one populated persona dimension.
type Criterion struct {
	Dimension string
	Kind      Kind
	Weight    float64
	Range     *model.Range
	Values    []string
}

type dimension struct {
	name   string
	kind   Kind
	weight func(model.PersonaWeights) float64
	rng    func(model.PersonaCriteria) *model.Range
	values func(model.PersonaCriteria) []string
}

// dimensions is the fixed evaluation order.
var dimensions = []dimension{
	{
		name:   DimCompanySize,
		kind:   KindRange,
		weight: func(w model.PersonaWeights) float64 { return w.CompanySize },
		rng:    func(c model.PersonaCriteria) *model.Range { return c.CompanySizeRange },
	},
	{
		name:   DimRevenue,
		kind:   KindRange,
		weight: func(w model.PersonaWeights) float64 { return w.Revenue },
		rng:    func(c model.PersonaCriteria) *model.Range { return c.RevenueRange },
	},
	{
		name:   DimIndustry,
		kind:   KindSet,
		weight: func(w model.PersonaWeights) float64 { return w.Industry },
		values: func(c model.PersonaCriteria) []string { return c.Industries },
	},
	{
		name:   DimTechnologies,
		kind:   KindAnySet,
		weight: func(w model.PersonaWeights) float64 { return w.Technologies },
		values: func(c model.PersonaCriteria) []string { return c.Technologies },
	},
	{
		name:   DimGeography,
		kind:   KindAnySet,
		weight: func(w model.PersonaWeights) float64 { return w.Geography },
		values: func(c model.PersonaCriteria) []string { return c.Geographies },
	},
	{
		name:   DimDecisionMaker,
		kind:   KindKeyword,
		weight: func(w model.PersonaWeights) float64 { return w.DecisionMaker },
		values: func(c model.PersonaCriteria) []string { return c.DecisionMakerTitles },
	},
	{
		name:   DimFundingStage,
		kind:   KindSet,
		weight: func(w model.PersonaWeights) float64 { return w.FundingStage },
		values: func(c model.PersonaCriteria) []string { return c.FundingStages },
	},
}

// Criteria expands a persona into its populated criteria, in dimension order.
func Criteria(p model.Persona) []Criterion {
	var out []Criterion
	for _, d := range dimensions {
		c := Criterion{Dimension: d.name, Kind: d.kind, Weight: d.weight(p.Weights)}
		if d.rng != nil {
			c.Range = d.rng(p.Criteria)
			if c.Range == nil {
				continue
			}
		} else {
			c.Values = nonBlank(d.values(p.Criteria))
			if len(c.Values) == 0 {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func nonBlank(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
