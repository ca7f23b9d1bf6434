package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

func TestCriteria_OnlyPopulatedInOrder(t *testing.T) {
	p := model.Persona{
		Criteria: model.PersonaCriteria{
			FundingStages:       []string{"Series A"},
			CompanySizeRange:    &model.Range{Min: 10, Max: 100},
			Industries:          []string{"  ", ""},
			DecisionMakerTitles: []string{" CTO "},
		},
		Weights: model.PersonaWeights{CompanySize: 0.5, DecisionMaker: 0.3, FundingStage: 0.2},
	}

	got := Criteria(p)
	require.Len(t, got, 3)
	assert.Equal(t, DimCompanySize, got[0].Dimension)
	assert.Equal(t, KindRange, got[0].Kind)
	assert.InDelta(t, 0.5, got[0].Weight, 1e-9)
	assert.Equal(t, DimDecisionMaker, got[1].Dimension)
	assert.Equal(t, []string{"CTO"}, got[1].Values)
	assert.Equal(t, DimFundingStage, got[2].Dimension)
	assert.Equal(t, KindSet, got[2].Kind)
}

func TestCriteria_Empty(t *testing.T) {
	assert.Empty(t, Criteria(model.Persona{Name: "empty"}))
}

func TestDefaults_AreValid(t *testing.T) {
	defaults := Defaults()
	require.Len(t, defaults, 3)
	ids := map[string]bool{}
	for _, p := range defaults {
		assert.NoError(t, Validate(p), p.ID)
		assert.True(t, p.IsDefault, p.ID)
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
	}
	assert.True(t, ids["default-enterprise-tech-buyer"])
	assert.True(t, ids["default-growth-saas"])
	assert.True(t, ids["default-smb-owner"])
}
