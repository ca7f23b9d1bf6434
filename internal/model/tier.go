package model

// Tier is the ordinal lead-quality classification.
type Tier string

const (
	TierHot      Tier = "Hot"
	TierWarm     Tier = "Warm"
	TierCold     Tier = "Cold"
	TierUnscored Tier = "Unscored"
)

// Rank orders tiers from best (3) to unscored (0).
func (t Tier) Rank() int {
	switch t {
	case TierHot:
		return 3
	case TierWarm:
		return 2
	case TierCold:
		return 1
	default:
		return 0
	}
}
