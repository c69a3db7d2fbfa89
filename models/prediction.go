package models

import "time"

// Predicted outcome categories
const (
	PredictedOutcomeFavorable   = "FAVORABLE"
	PredictedOutcomeSettlement  = "SETTLEMENT"
	PredictedOutcomeUnfavorable = "UNFAVORABLE"
	PredictedOutcomeUncertain   = "UNCERTAIN"
)

// CasePrediction is the cached outcome estimate for one case
type CasePrediction struct {
	CaseID      string    `json:"case_id"`
	TenantID    string    `json:"tenant_id"`
	GeneratedAt time.Time `json:"generated_at"`

	EstimatedOutcome      string   `json:"estimated_outcome"`
	Confidence            float64  `json:"confidence"` // 0..1
	EstimatedDurationDays int      `json:"estimated_duration_days"`
	EstimatedCost         float64  `json:"estimated_cost"`
	Currency              string   `json:"currency"`
	RiskFactors           []string `json:"risk_factors"`
	RecommendedStrategy   []string `json:"recommended_strategy"`

	SimilarCases []SimilarCase `json:"similar_cases"`
	Model        string        `json:"model"` // Name of the strategy that produced it
}

// SimilarCase is a resolved case of the same type used as context
type SimilarCase struct {
	CaseID       string  `json:"case_id"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	DurationDays float64 `json:"duration_days"`
	Cost         float64 `json:"cost"`
}
