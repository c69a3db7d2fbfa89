package services

import (
	"math"
	"time"

	"ain_oman_legal/models"
)

// InsightInput is everything an InsightStrategy may look at for one case
type InsightInput struct {
	Case         models.LegalCase
	Expenses     []models.Expense
	Documents    int
	StageHistory []models.CaseStageHistory
	Now          time.Time
	Currency     string
}

// InsightStrategy scores a case. Implementations must be deterministic for the same input
// and always fill every field of the result.
type InsightStrategy interface {
	Name() string
	Insights(in InsightInput) models.AIInsights
}

// HeuristicInsights is the built-in rule-based InsightStrategy
type HeuristicInsights struct{}

func (HeuristicInsights) Name() string { return "heuristic-v1" }

// typical days spent in each stage
var stageDurations = map[string]int{
	models.CaseStageInvestigation: 21,
	models.CaseStageNegotiation:   30,
	models.CaseStageSettlement:    14,
	models.CaseStageFiling:        10,
	models.CaseStageHearing:       45,
	models.CaseStageAppeal:        90,
	models.CaseStageJudgment:      30,
	models.CaseStageExecution:     60,
}

// base remaining spend by complexity, before what has already been spent
var complexityBaseCost = map[string]float64{
	models.ComplexityLow:    500,
	models.ComplexityMedium: 1500,
	models.ComplexityHigh:   4000,
}

var stageActions = map[string][]string{
	models.CaseStageInvestigation: {"Collect the tenancy contract and payment records", "Interview the client and witnesses"},
	models.CaseStageNegotiation:   {"Send a formal demand letter", "Propose a payment or settlement schedule"},
	models.CaseStageSettlement:    {"Draft the settlement agreement", "Confirm settlement terms in writing"},
	models.CaseStageFiling:        {"Prepare the statement of claim", "Pay court filing fees"},
	models.CaseStageHearing:       {"Prepare witness statements", "Organise the evidence bundle"},
	models.CaseStageAppeal:        {"Review the judgment for grounds of appeal", "File the appeal within the deadline"},
	models.CaseStageJudgment:      {"Review the judgment with the client"},
	models.CaseStageExecution:     {"Apply for enforcement of the judgment", "Track recovered amounts"},
}

func (h HeuristicInsights) Insights(in InsightInput) models.AIInsights {
	c := in.Case
	complexity := classifyComplexity(in)

	probability := 0.6
	if c.Evidence != "" {
		probability += 0.1
	}
	if in.Documents > 0 {
		probability += 0.05
	}
	switch complexity {
	case models.ComplexityHigh:
		probability -= 0.15
	case models.ComplexityMedium:
		probability -= 0.05
	}
	if c.Stage == models.CaseStageAppeal {
		probability -= 0.1
	}
	probability = round2(math.Min(0.95, math.Max(0.05, probability)))

	var risks []string
	if c.Evidence == "" {
		risks = append(risks, "No evidence recorded")
	}
	if in.Documents == 0 {
		risks = append(risks, "No supporting documents attached")
	}
	if c.ClaimAmount > 10000 {
		risks = append(risks, "High claim amount")
	}
	if !c.CreatedAt.IsZero() && in.Now.Sub(c.CreatedAt) > 180*24*time.Hour && !c.IsClosed() {
		risks = append(risks, "Case open for more than 180 days")
	}
	if c.Stage == models.CaseStageAppeal {
		risks = append(risks, "Case is under appeal")
	}
	if risks == nil {
		risks = []string{}
	}

	actions := append([]string(nil), stageActions[c.Stage]...)
	if c.LawyerID == "" {
		actions = append(actions, "Assign a responsible lawyer")
	}
	if actions == nil {
		actions = []string{}
	}

	spent := 0.0
	for _, e := range in.Expenses {
		if !e.Voided && !e.IsLegalFee() {
			spent += e.Amount
		}
	}
	base := complexityBaseCost[complexity]
	currency := in.Currency
	if currency == "" {
		currency = c.Currency
	}

	return models.AIInsights{
		Complexity:         complexity,
		SuccessProbability: probability,
		RecommendedActions: actions,
		RiskFactors:        risks,
		CostRange: models.CostRange{
			Min:      round2(spent + base*0.75),
			Max:      round2(spent + base*1.5),
			Currency: currency,
		},
		Timeline: remainingTimeline(c.Stage, complexity),
	}
}

func classifyComplexity(in InsightInput) string {
	score := 0
	switch {
	case in.Case.ClaimAmount > 10000:
		score += 2
	case in.Case.ClaimAmount > 2000:
		score++
	}
	if models.StageIndex(in.Case.Stage) >= models.StageIndex(models.CaseStageHearing) {
		score++
	}
	if in.Documents > 10 {
		score++
	}
	if len(in.StageHistory) > 3 {
		score++
	}
	if in.Case.Priority == models.CasePriorityHigh || in.Case.Priority == models.CasePriorityUrgent {
		score++
	}

	switch {
	case score >= 4:
		return models.ComplexityHigh
	case score >= 2:
		return models.ComplexityMedium
	}
	return models.ComplexityLow
}

// remainingTimeline estimates the stages after the current one, up to judgment
func remainingTimeline(stage, complexity string) []models.PhaseEstimate {
	out := []models.PhaseEstimate{}
	idx := models.StageIndex(stage)
	last := models.StageIndex(models.CaseStageJudgment)
	if idx < 0 || idx >= last {
		return out
	}
	factor := 1.0
	switch complexity {
	case models.ComplexityMedium:
		factor = 1.25
	case models.ComplexityHigh:
		factor = 1.5
	}
	for _, next := range models.CaseStages[idx+1 : last+1] {
		if next == models.CaseStageAppeal {
			continue
		}
		out = append(out, models.PhaseEstimate{
			Stage:         next,
			EstimatedDays: int(math.Round(float64(stageDurations[next]) * factor)),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
