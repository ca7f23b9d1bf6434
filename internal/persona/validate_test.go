package persona

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-engine/internal/model"
)

func TestValidate(t *testing.T) {
	valid := sizeIndustryPersona

	tests := []struct {
		name    string
		mutate  func(p *model.Persona)
		wantErr string
	}{
		{name: "valid", mutate: func(*model.Persona) {}},
		{
			name:   "within tolerance",
			mutate: func(p *model.Persona) { p.Weights.Industry = 0.509 },
		},
		{
			name:    "missing name",
			mutate:  func(p *model.Persona) { p.Name = "  " },
			wantErr: "name is required",
		},
		{
			name:    "weights off",
			mutate:  func(p *model.Persona) { p.Weights.Industry = 0.3 },
			wantErr: "weights must sum to 1.0",
		},
		{
			name:    "inverted range",
			mutate:  func(p *model.Persona) { p.Criteria.CompanySizeRange = &model.Range{Min: 500, Max: 50} },
			wantErr: "companySizeRange: min",
		},
		{
			name:    "equal bounds",
			mutate:  func(p *model.Persona) { p.Criteria.RevenueRange = &model.Range{Min: 1, Max: 1} },
			wantErr: "revenueRange: min",
		},
		{
			name:    "negative weight",
			mutate:  func(p *model.Persona) { p.Weights.CompanySize = -0.5; p.Weights.Industry = 1.5 },
			wantErr: "weights.companySize must not be negative",
		},
		{
			name:    "NaN weight",
			mutate:  func(p *model.Persona) { p.Weights.Industry = math.NaN() },
			wantErr: "weights.industry must be a finite number",
		},
		{
			name: "weight on unset dimension",
			mutate: func(p *model.Persona) {
				p.Weights = model.PersonaWeights{CompanySize: 0.5, Industry: 0.3, Revenue: 0.2}
			},
			wantErr: "weights.revenue is 0.2 but no revenue criterion is set",
		},
		{
			name: "no criteria",
			mutate: func(p *model.Persona) {
				p.Criteria = model.PersonaCriteria{}
				p.Weights = model.PersonaWeights{}
			},
			wantErr: "at least one criterion is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := Validate(p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrInvalid))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.NotEmpty(t, ve.Problems)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := Validate(model.Persona{})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 3)
}
