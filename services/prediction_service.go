package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"ain_oman_legal/models"
)

var ErrPredictionNotFound = errors.New("prediction not found")

const maxSimilarCases = 5

// PredictionInput is the context handed to a PredictionStrategy
type PredictionInput struct {
	Case         models.LegalCase
	SimilarCases []models.SimilarCase
	Expenses     []models.Expense
	Now          time.Time
}

// PredictionStrategy estimates a case outcome. Output shape is fixed; the scoring is not.
type PredictionStrategy interface {
	Name() string
	Predict(in PredictionInput) models.CasePrediction
}

// PredictionService produces and caches per-case outcome predictions
type PredictionService struct {
	store    *RecordStore
	strategy PredictionStrategy
}

// NewPredictionService creates the generator; a nil strategy uses HeuristicPredictor
func NewPredictionService(store *RecordStore, strategy PredictionStrategy) *PredictionService {
	if strategy == nil {
		strategy = HeuristicPredictor{}
	}
	return &PredictionService{store: store, strategy: strategy}
}

// Generate predicts the outcome of caseID and overwrites its cached prediction
func (p *PredictionService) Generate(ctx context.Context, ac AuditContext, caseID string) (*models.CasePrediction, error) {
	var prediction models.CasePrediction
	err := p.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}

		input := PredictionInput{
			Case:         *c,
			SimilarCases: similarCases(snap, c),
			Expenses:     snap.ExpensesFor(c.ID),
			Now:          p.store.Now(),
		}
		prediction = p.strategy.Predict(input)
		prediction.CaseID = c.ID
		prediction.TenantID = ac.TenantID
		prediction.GeneratedAt = input.Now
		prediction.SimilarCases = input.SimilarCases
		prediction.Model = p.strategy.Name()
		if prediction.Currency == "" {
			prediction.Currency = c.Currency
		}
		if prediction.RiskFactors == nil {
			prediction.RiskFactors = []string{}
		}
		if prediction.RecommendedStrategy == nil {
			prediction.RecommendedStrategy = []string{}
		}

		snap.PutPrediction(prediction)
		return p.store.LogAuditEvent(snap, ac, models.AuditActionGenerate, models.EntityKindPrediction, c.ID, c.Title,
			"Outcome prediction generated by "+prediction.Model, nil, map[string]interface{}{
				"estimated_outcome": prediction.EstimatedOutcome,
				"confidence":        prediction.Confidence,
				"similar_cases":     len(prediction.SimilarCases),
			})
	})
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// Cached returns the last prediction generated for caseID
func (p *PredictionService) Cached(ctx context.Context, tenantID, caseID string) (*models.CasePrediction, error) {
	var prediction models.CasePrediction
	err := p.store.View(ctx, tenantID, func(snap *Snapshot) error {
		cached, err := snap.Prediction(caseID)
		if err != nil {
			return err
		}
		prediction = *cached
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// similarCases picks up to five resolved cases of the same type, most recently closed first
func similarCases(snap *Snapshot, target *models.LegalCase) []models.SimilarCase {
	candidates := snap.CasesWhere(func(c *models.LegalCase) bool {
		return c.ID != target.ID && c.Type == target.Type && c.Status == models.CaseStatusResolved
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return closedTime(&candidates[i]).After(closedTime(&candidates[j]))
	})
	if len(candidates) > maxSimilarCases {
		candidates = candidates[:maxSimilarCases]
	}

	out := make([]models.SimilarCase, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		days, _ := c.ResolutionDays()
		cost := 0.0
		for _, e := range snap.ExpensesFor(c.ID) {
			if !e.Voided {
				cost += e.Amount
			}
		}
		out = append(out, models.SimilarCase{
			CaseID:       c.ID,
			Title:        c.Title,
			Outcome:      c.Outcome,
			DurationDays: round2(days),
			Cost:         round2(cost),
		})
	}
	return out
}

func closedTime(c *models.LegalCase) time.Time {
	if c.ClosedAt != nil {
		return *c.ClosedAt
	}
	return c.UpdatedAt
}

// HeuristicPredictor votes over the outcomes of similar cases
type HeuristicPredictor struct{}

func (HeuristicPredictor) Name() string { return "similar-cases-v1" }

const (
	defaultPredictedDays = 90
	defaultPredictedCost = 1500
)

func (HeuristicPredictor) Predict(in PredictionInput) models.CasePrediction {
	out := models.CasePrediction{
		EstimatedOutcome:      models.PredictedOutcomeUncertain,
		Confidence:            0.3,
		EstimatedDurationDays: defaultPredictedDays,
		EstimatedCost:         defaultPredictedCost,
		Currency:              in.Case.Currency,
	}

	n := len(in.SimilarCases)
	votes := map[string]int{}
	var totalDays, totalCost float64
	for _, sc := range in.SimilarCases {
		switch sc.Outcome {
		case models.CaseOutcomeSettled:
			votes[models.PredictedOutcomeSettlement]++
		case models.CaseOutcomeLost, models.CaseOutcomeDismissed:
			votes[models.PredictedOutcomeUnfavorable]++
		default:
			// resolved without a recorded outcome counts as a win
			votes[models.PredictedOutcomeFavorable]++
		}
		totalDays += sc.DurationDays
		totalCost += sc.Cost
	}

	if n > 0 {
		best, bestVotes := models.PredictedOutcomeUncertain, 0
		for _, outcome := range []string{models.PredictedOutcomeFavorable, models.PredictedOutcomeSettlement, models.PredictedOutcomeUnfavorable} {
			if votes[outcome] > bestVotes {
				best, bestVotes = outcome, votes[outcome]
			}
		}
		share := float64(bestVotes) / float64(n)
		out.EstimatedOutcome = best
		out.Confidence = round2(math.Min(0.9, 0.3+0.6*share*float64(n)/maxSimilarCases))
		out.EstimatedDurationDays = int(math.Round(totalDays / float64(n)))
		out.EstimatedCost = round2(totalCost / float64(n))
	}

	var risks []string
	if n < 3 {
		risks = append(risks, "Limited comparable case history")
	}
	if n > 0 && float64(votes[models.PredictedOutcomeUnfavorable])/float64(n) > 0.4 {
		risks = append(risks, "Comparable cases often ended unfavourably")
	}
	if in.Case.ClaimAmount > 10000 {
		risks = append(risks, "High claim amount")
	}
	if in.Case.Evidence == "" {
		risks = append(risks, "No evidence recorded")
	}
	out.RiskFactors = risks

	switch out.EstimatedOutcome {
	case models.PredictedOutcomeFavorable:
		out.RecommendedStrategy = []string{"Proceed to filing with the current evidence", "Keep settlement open as a fallback"}
	case models.PredictedOutcomeSettlement:
		out.RecommendedStrategy = []string{"Open settlement talks early", "Set a minimum acceptable amount with the client"}
	case models.PredictedOutcomeUnfavorable:
		out.RecommendedStrategy = []string{"Strengthen evidence before filing", "Consider mediation to limit costs"}
	default:
		out.RecommendedStrategy = []string{"Gather more evidence", "Review comparable cases manually"}
	}
	return out
}
