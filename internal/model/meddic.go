package model

import "time"

// QualificationStatus is the MEDDIC qualification outcome.
type QualificationStatus string

const (
	Qualified   QualificationStatus = "Qualified"
	Developing  QualificationStatus = "Developing"
	Unqualified QualificationStatus = "Unqualified"
)

// MEDDICScore is the six-dimension sales qualification score of one contact.
type MEDDICScore struct {
	BadgeScanID              string              `json:"badgeScanId"`
	CompanyID                string              `json:"companyId"`
	MetricsScore             float64             `json:"metricsScore"`
	EconomicBuyerScore       float64             `json:"economicBuyerScore"`
	DecisionCriteriaScore    float64             `json:"decisionCriteriaScore"`
	DecisionProcessScore     float64             `json:"decisionProcessScore"`
	IdentifyPainScore        float64             `json:"identifyPainScore"`
	ChampionScore            float64             `json:"championScore"`
	OverallScore             float64             `json:"overallScore"`
	QualificationStatus      QualificationStatus `json:"qualificationStatus"`
	EconomicBuyer            string              `json:"economicBuyer,omitempty"`
	IdentifiedDecisionMakers []string            `json:"identifiedDecisionMakers"`
	MissingDecisionMakers    []string            `json:"missingDecisionMakers"`
	EngagementStrategy       string              `json:"engagementStrategy"`
	CalculatedAt             time.Time           `json:"calculatedAt"`
}

// SubScores returns the six dimension scores in MEDDIC order.
func (s MEDDICScore) SubScores() [6]float64 {
	return [6]float64{
		s.MetricsScore,
		s.EconomicBuyerScore,
		s.DecisionCriteriaScore,
		s.DecisionProcessScore,
		s.IdentifyPainScore,
		s.ChampionScore,
	}
}
