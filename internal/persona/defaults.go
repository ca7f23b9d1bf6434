package persona

import "github.com/sells-group/lead-engine/internal/model"

// Defaults returns the built-in personas. IDs are stable so stored matches
// keep pointing at the same persona across restarts.
func Defaults() []model.Persona {
	return []model.Persona{
		{
			ID:          "default-enterprise-tech-buyer",
			Name:        "Enterprise Technology Buyer",
			Description: "Large organisations with an established cloud footprint and a technical executive at the booth.",
			IsDefault:   true,
			Criteria: model.PersonaCriteria{
				CompanySizeRange:    &model.Range{Min: 1000, Max: 100_000},
				RevenueRange:        &model.Range{Min: 100_000_000, Max: 1e12},
				Industries:          []string{"Software", "Financial Services", "Telecommunications", "Healthcare"},
				Technologies:        []string{"AWS", "Azure", "Google Cloud", "Kubernetes", "Snowflake"},
				DecisionMakerTitles: []string{"CTO", "CIO", "Chief Technology Officer", "Chief Information Officer", "VP Engineering", "Head of IT"},
			},
			Weights: model.PersonaWeights{
				CompanySize:   0.25,
				Revenue:       0.10,
				Industry:      0.20,
				Technologies:  0.20,
				DecisionMaker: 0.25,
			},
		},
		{
			ID:          "default-growth-saas",
			Name:        "Growth-Stage SaaS",
			Description: "Venture-backed software companies scaling past product-market fit.",
			IsDefault:   true,
			Criteria: model.PersonaCriteria{
				CompanySizeRange:    &model.Range{Min: 50, Max: 999},
				Industries:          []string{"Software"},
				DecisionMakerTitles: []string{"CEO", "Founder", "Co-Founder", "VP", "Head of Growth"},
				FundingStages:       []string{"Series A", "Series B", "Series C"},
			},
			Weights: model.PersonaWeights{
				CompanySize:   0.30,
				Industry:      0.20,
				DecisionMaker: 0.20,
				FundingStage:  0.30,
			},
		},
		{
			ID:          "default-smb-owner",
			Name:        "SMB Owner-Operator",
			Description: "Small North American and UK businesses where the owner signs the contract.",
			IsDefault:   true,
			Criteria: model.PersonaCriteria{
				CompanySizeRange:    &model.Range{Min: 1, Max: 49},
				Geographies:         []string{"USA", "Canada", "United Kingdom"},
				DecisionMakerTitles: []string{"Owner", "Founder", "CEO", "President", "General Manager"},
			},
			Weights: model.PersonaWeights{
				CompanySize:   0.40,
				Geography:     0.20,
				DecisionMaker: 0.40,
			},
		},
	}
}
