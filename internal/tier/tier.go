// Package tier maps fit scores to lead tiers. Classify is the only place the
// thresholds live.
package tier

import (
	"math"

	"github.com/sells-group/lead-engine/internal/model"
)

// Thresholds are inclusive lower bounds.
const (
	HotThreshold  = 70.0
	WarmThreshold = 40.0
)

// Classify returns the tier for a fit score. NaN and negative scores are
// Unscored.
func Classify(score float64) model.Tier {
	switch {
	case math.IsNaN(score) || score < 0:
		return model.TierUnscored
	case score >= HotThreshold:
		return model.TierHot
	case score >= WarmThreshold:
		return model.TierWarm
	default:
		return model.TierCold
	}
}

// ForMatch classifies a match; nil means the contact was never scored.
func ForMatch(m *model.PersonaMatch) model.Tier {
	if m == nil {
		return model.TierUnscored
	}
	return Classify(m.FitScore)
}
