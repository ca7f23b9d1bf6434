package model

import "time"

// CriterionMatch explains how one persona dimension scored.
type CriterionMatch struct {
	CriterionName string  `json:"criterionName"`
	Kind          string  `json:"kind"`
	Matched       bool    `json:"matched"`
	ActualValue   any     `json:"actualValue"`
	Weight        float64 `json:"weight"`
	Contribution  float64 `json:"contribution"`
}

// PersonaMatch is the result of scoring one profile against one persona.
type PersonaMatch struct {
	PersonaID       string           `json:"personaId"`
	BadgeScanID     string           `json:"badgeScanId"`
	FitScore        float64          `json:"fitScore"`
	CriteriaMatches []CriterionMatch `json:"criteriaMatches"`
	Tier            Tier             `json:"tier"`
	CalculatedAt    time.Time        `json:"calculatedAt"`
}

// Criterion returns the named criterion match, if present.
func (m *PersonaMatch) Criterion(name string) (CriterionMatch, bool) {
	if m == nil {
		return CriterionMatch{}, false
	}
	for _, cm := range m.CriteriaMatches {
		if cm.CriterionName == name {
			return cm, true
		}
	}
	return CriterionMatch{}, false
}
