package tier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-engine/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Tier
	}{
		{100, model.TierHot},
		{70, model.TierHot},
		{69.99, model.TierWarm},
		{40, model.TierWarm},
		{39.99, model.TierCold},
		{0, model.TierCold},
		{-1, model.TierUnscored},
		{math.NaN(), model.TierUnscored},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestClassify_PureFunction(t *testing.T) {
	for s := 0.0; s <= 100; s += 0.25 {
		assert.Equal(t, Classify(s), Classify(s))
	}
}

func TestClassify_Monotonic(t *testing.T) {
	prev := Classify(0).Rank()
	for s := 0.0; s <= 100; s += 0.5 {
		r := Classify(s).Rank()
		assert.GreaterOrEqual(t, r, prev, "score %v", s)
		prev = r
	}
}

func TestForMatch(t *testing.T) {
	assert.Equal(t, model.TierUnscored, ForMatch(nil))
	assert.Equal(t, model.TierWarm, ForMatch(&model.PersonaMatch{FitScore: 55}))
}
