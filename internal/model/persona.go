package model

import "time"

// Range is an inclusive numeric bound.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// PersonaCriteria holds the optional criteria of a persona. Unset criteria
// are excluded from scoring.
type PersonaCriteria struct {
	CompanySizeRange    *Range   `json:"companySizeRange,omitempty" yaml:"companySizeRange,omitempty"`
	RevenueRange        *Range   `json:"revenueRange,omitempty" yaml:"revenueRange,omitempty"`
	Industries          []string `json:"industries,omitempty" yaml:"industries,omitempty"`
	Technologies        []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Geographies         []string `json:"geographies,omitempty" yaml:"geographies,omitempty"`
	DecisionMakerTitles []string `json:"decisionMakerTitles,omitempty" yaml:"decisionMakerTitles,omitempty"`
	FundingStages       []string `json:"fundingStages,omitempty" yaml:"fundingStages,omitempty"`
}

// PersonaWeights holds one weight per criterion dimension.
type PersonaWeights struct {
	CompanySize   float64 `json:"companySize" yaml:"companySize"`
	Revenue       float64 `json:"revenue" yaml:"revenue"`
	Industry      float64 `json:"industry" yaml:"industry"`
	Technologies  float64 `json:"technologies" yaml:"technologies"`
	Geography     float64 `json:"geography" yaml:"geography"`
	DecisionMaker float64 `json:"decisionMaker" yaml:"decisionMaker"`
	FundingStage  float64 `json:"fundingStage" yaml:"fundingStage"`
}

// Sum returns the total of all weights.
func (w PersonaWeights) Sum() float64 {
	return w.CompanySize + w.Revenue + w.Industry + w.Technologies +
		w.Geography + w.DecisionMaker + w.FundingStage
}

// Persona is a named, weighted definition of an ideal customer profile.
type Persona struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	IsDefault   bool            `json:"isDefault" yaml:"-"`
	Criteria    PersonaCriteria `json:"criteria" yaml:"criteria"`
	Weights     PersonaWeights  `json:"weights" yaml:"weights"`
	CreatedAt   time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time       `json:"updatedAt" yaml:"-"`
}
