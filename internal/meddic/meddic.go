// Package meddic derives a six-dimension MEDDIC qualification score from an
// enriched profile and the contact's best persona match.
package meddic

import (
	"strings"
	"time"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/persona"
)

// Sub-score levels. The rules are binary placeholders until richer signal
// sources exist.
const (
	High    = 80.0
	Low     = 20.0
	Neutral = 50.0
)

// Qualification thresholds on the overall score.
const (
	QualifiedThreshold  = 70.0
	DevelopingThreshold = 50.0
)

// DecisionProcessEmployees is the headcount above which a formal decision
// process is assumed.
const DecisionProcessEmployees = 100

// Gap labels used in MissingDecisionMakers.
const (
	GapEconomicBuyer     = "Economic Buyer"
	GapTechnicalChampion = "Technical Champion"
)

var strategies = map[model.QualificationStatus]string{
	model.Qualified: "Prioritize for immediate follow-up: book a discovery call with the economic buyer " +
		"within 48 hours and tailor the demo to the matched persona's priorities.",
	model.Developing: "Nurture toward qualification: share relevant case studies, identify the missing " +
		"stakeholders and schedule a follow-up within two weeks.",
	model.Unqualified: "Add to the long-term nurture track: send event follow-up content and revisit " +
		"when new buying signals appear.",
}

// Strategy returns the engagement template for status.
func Strategy(status model.QualificationStatus) string {
	return strategies[status]
}

// Status maps an overall score to a qualification status. The threshold
// value itself qualifies for the higher status.
func Status(overall float64) model.QualificationStatus {
	switch {
	case overall >= QualifiedThreshold:
		return model.Qualified
	case overall >= DevelopingThreshold:
		return model.Developing
	default:
		return model.Unqualified
	}
}

// Score computes the MEDDIC score for contact. best may be nil when no
// persona has been matched. It has no side effects and can be recomputed
// at any time.
func Score(contact model.Contact, profile model.EnrichedCompany, best *model.PersonaMatch, now time.Time) model.MEDDICScore {
	s := model.MEDDICScore{
		BadgeScanID:              contact.ID,
		CompanyID:                companyID(profile),
		IdentifiedDecisionMakers: []string{},
		MissingDecisionMakers:    []string{},
		CalculatedAt:             now.UTC(),
	}

	s.MetricsScore = level(profile.Revenue != nil && *profile.Revenue > 0)
	s.DecisionCriteriaScore = level(strings.TrimSpace(profile.Industry) != "")
	s.DecisionProcessScore = level(profile.EmployeeCount != nil && *profile.EmployeeCount > DecisionProcessEmployees)

	economicBuyer := false
	if cm, ok := best.Criterion(persona.DimDecisionMaker); ok && cm.Matched {
		economicBuyer = true
	}
	s.EconomicBuyerScore = level(economicBuyer)
	if economicBuyer {
		s.EconomicBuyer = buyerLabel(contact)
		s.IdentifiedDecisionMakers = append(s.IdentifiedDecisionMakers, s.EconomicBuyer)
	} else {
		s.MissingDecisionMakers = append(s.MissingDecisionMakers, GapEconomicBuyer)
	}

	s.IdentifyPainScore = Neutral
	if best != nil {
		s.IdentifyPainScore = best.FitScore
	}

	champion := best != nil && best.Tier == model.TierHot
	s.ChampionScore = level(champion)
	if !champion {
		s.MissingDecisionMakers = append(s.MissingDecisionMakers, GapTechnicalChampion)
	}

	s.OverallScore = mean(s.SubScores())
	s.QualificationStatus = Status(s.OverallScore)
	s.EngagementStrategy = Strategy(s.QualificationStatus)
	return s
}

func level(ok bool) float64 {
	if ok {
		return High
	}
	return Low
}

func mean(scores [6]float64) float64 {
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

func companyID(p model.EnrichedCompany) string {
	if d := strings.TrimSpace(p.Domain); d != "" {
		return d
	}
	return strings.TrimSpace(p.Name)
}

func buyerLabel(c model.Contact) string {
	name := strings.TrimSpace(c.Name)
	title := strings.TrimSpace(c.Title)
	switch {
	case name == "":
		return title
	case title == "":
		return name
	default:
		return name + " (" + title + ")"
	}
}
