package services

import (
	"testing"
	"time"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicInsightsLowComplexity(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := InsightInput{
		Case: models.LegalCase{
			Stage:     models.CaseStageInvestigation,
			Priority:  models.CasePriorityMedium,
			LawyerID:  "LAWYER-1",
			Currency:  "OMR",
			CreatedAt: now.Add(-24 * time.Hour),
		},
		Expenses: []models.Expense{
			{Category: models.ExpenseCategoryCourtFee, Amount: 40},
			{Category: models.ExpenseCategoryLegalFee, Amount: 900},
			{Category: models.ExpenseCategoryTravel, Amount: 60, Voided: true},
		},
		Now: now,
	}

	out := HeuristicInsights{}.Insights(in)

	assert.Equal(t, models.ComplexityLow, out.Complexity)
	assert.Equal(t, 0.6, out.SuccessProbability)
	assert.Equal(t, []string{"No evidence recorded", "No supporting documents attached"}, out.RiskFactors)
	assert.Equal(t, stageActions[models.CaseStageInvestigation], out.RecommendedActions)
	// Only non-fee, non-voided spend counts
	assert.Equal(t, 415.0, out.CostRange.Min)
	assert.Equal(t, 790.0, out.CostRange.Max)
	assert.Equal(t, "OMR", out.CostRange.Currency)

	// Negotiation through judgment, appeal skipped
	stages := make([]string, len(out.Timeline))
	for i, p := range out.Timeline {
		stages[i] = p.Stage
	}
	assert.Equal(t, []string{
		models.CaseStageNegotiation, models.CaseStageSettlement, models.CaseStageFiling,
		models.CaseStageHearing, models.CaseStageJudgment,
	}, stages)
	assert.Equal(t, 30, out.Timeline[0].EstimatedDays)
}

func TestHeuristicInsightsHighComplexity(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := InsightInput{
		Case: models.LegalCase{
			Stage:       models.CaseStageAppeal,
			Priority:    models.CasePriorityUrgent,
			ClaimAmount: 25000,
			Evidence:    "Bank transfers",
			CreatedAt:   now.AddDate(-1, 0, 0),
		},
		Documents: 3,
		Now:       now,
		Currency:  "USD",
	}

	out := HeuristicInsights{}.Insights(in)

	assert.Equal(t, models.ComplexityHigh, out.Complexity)
	assert.Equal(t, 0.5, out.SuccessProbability)
	assert.Contains(t, out.RiskFactors, "High claim amount")
	assert.Contains(t, out.RiskFactors, "Case open for more than 180 days")
	assert.Contains(t, out.RiskFactors, "Case is under appeal")
	assert.Contains(t, out.RecommendedActions, "Assign a responsible lawyer")
	assert.Equal(t, "USD", out.CostRange.Currency)
	assert.Equal(t, 3000.0, out.CostRange.Min)
	assert.Len(t, out.Timeline, 1)
	assert.Equal(t, 45, out.Timeline[0].EstimatedDays)
}

func TestHeuristicInsightsTerminalStage(t *testing.T) {
	out := HeuristicInsights{}.Insights(InsightInput{Case: models.LegalCase{Stage: models.CaseStageExecution}})
	assert.NotNil(t, out.Timeline)
	assert.Empty(t, out.Timeline)
	assert.NotNil(t, out.RiskFactors)
}
