package model

import "time"

// EnrichmentSource describes how an enriched profile was produced.
type EnrichmentSource string

const (
	SourceMultiLLM  EnrichmentSource = "multi-llm"
	SourceSingleLLM EnrichmentSource = "single-llm"
	SourceMock      EnrichmentSource = "mock"
)

// SizeClass is the coarse company size bucket.
type SizeClass string

const (
	SizeSmall      SizeClass = "Small"
	SizeMedium     SizeClass = "Medium"
	SizeLarge      SizeClass = "Large"
	SizeEnterprise SizeClass = "Enterprise"
)

// SizeClasses lists every size class in ascending order.
var SizeClasses = []SizeClass{SizeSmall, SizeMedium, SizeLarge, SizeEnterprise}

// SizeForEmployees buckets an employee count into a size class.
func SizeForEmployees(n int) SizeClass {
	switch {
	case n < 50:
		return SizeSmall
	case n < 250:
		return SizeMedium
	case n < 1000:
		return SizeLarge
	default:
		return SizeEnterprise
	}
}

// EnrichedCompany is the firmographic profile derived for one contact record.
type EnrichedCompany struct {
	Name             string           `json:"name"`
	Domain           string           `json:"domain"`
	Tier             Tier             `json:"tier"`
	Size             SizeClass        `json:"size"`
	Industry         string           `json:"industry"`
	Description      string           `json:"description,omitempty"`
	EmployeeCount    *int             `json:"employeeCount,omitempty"`
	Revenue          *float64         `json:"revenue,omitempty"`
	Headquarters     string           `json:"headquarters,omitempty"`
	Technologies     []string         `json:"technologies,omitempty"`
	BusinessModel    string           `json:"businessModel,omitempty"`
	KeyProducts      []string         `json:"keyProducts,omitempty"`
	TargetMarket     string           `json:"targetMarket,omitempty"`
	FundingStage     string           `json:"fundingStage,omitempty"`
	EnrichmentSource EnrichmentSource `json:"enrichmentSource"`
	ProvidersUsed    []string         `json:"providersUsed,omitempty"`
	Confidence       *float64         `json:"confidence,omitempty"`

	// Fallback is set when every real provider failed and the profile was
	// synthesized; the record should be re-enriched.
	Fallback   bool      `json:"fallback,omitempty"`
	EnrichedAt time.Time `json:"enrichedAt,omitempty"`
}

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
