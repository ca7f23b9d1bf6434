package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personasYAML = `
personas:
  - id: fintech-ops
    name: Fintech Operations
    criteria:
      companySizeRange: {min: 100, max: 2000}
      industries: [Financial Services]
      decisionMakerTitles: [COO, VP Operations]
    weights:
      companySize: 0.4
      industry: 0.3
      decisionMaker: 0.3
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(personasYAML), 0o644))

	personas, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, personas, 1)

	p := personas[0]
	assert.Equal(t, "fintech-ops", p.ID)
	require.NotNil(t, p.Criteria.CompanySizeRange)
	assert.Equal(t, float64(2000), p.Criteria.CompanySizeRange.Max)
	assert.Equal(t, []string{"COO", "VP Operations"}, p.Criteria.DecisionMakerTitles)
	assert.InDelta(t, 1.0, p.Weights.Sum(), 1e-9)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persona: read")
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("personas: [:"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persona: parse yaml")

	_, err = Parse([]byte("personas: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no personas")

	_, err = Parse([]byte(`
personas:
  - name: Broken
    criteria: {industries: [Software]}
    weights: {industry: 0.4}
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `entry 0 ("Broken")`)
}
