package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"ain_oman_legal/models"
)

var ErrAnalyticsNotFound = errors.New("analytics not generated yet")

const (
	topLawyerLimit = 5
	trendMonths    = 12
)

// AnalyticsService recomputes tenant-wide statistics from the full case and expense history
type AnalyticsService struct {
	store *RecordStore
}

func NewAnalyticsService(store *RecordStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Generate rebuilds the tenant analytics and replaces the cached copy
func (a *AnalyticsService) Generate(ctx context.Context, ac AuditContext) (*models.LegalAnalytics, error) {
	var result models.LegalAnalytics
	err := a.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		result = ComputeAnalytics(ac.TenantID, snap.Cases, snap.Expenses, a.store.Now())
		snap.SetAnalytics(result)
		return a.store.LogAuditEvent(snap, ac, models.AuditActionGenerate, models.EntityKindAnalytics, ac.TenantID, "",
			"Legal analytics regenerated", nil, map[string]interface{}{
				"total_cases":   result.TotalCases,
				"total_revenue": result.TotalRevenue,
			})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Cached returns the last generated analytics
func (a *AnalyticsService) Cached(ctx context.Context, tenantID string) (*models.LegalAnalytics, error) {
	var result models.LegalAnalytics
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if snap.Analytics == nil {
			return ErrAnalyticsNotFound
		}
		result = *snap.Analytics
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ComputeAnalytics is the pure aggregation behind Generate
func ComputeAnalytics(tenantID string, cases []models.LegalCase, expenses []models.Expense, now time.Time) models.LegalAnalytics {
	now = now.UTC()
	out := models.LegalAnalytics{
		TenantID:      tenantID,
		GeneratedAt:   now,
		TotalCases:    len(cases),
		CasesByStatus: make(map[string]int),
		CasesByType:   make(map[string]int),
		CasesByStage:  make(map[string]int),
	}

	// Counts
	var resolutionDays float64
	var resolvedWithDates int
	for i := range cases {
		c := &cases[i]
		out.CasesByStatus[c.Status]++
		out.CasesByType[c.Type]++
		out.CasesByStage[c.Stage]++

		switch c.Status {
		case models.CaseStatusOpen:
			out.OpenCases++
		case models.CaseStatusOnHold:
			out.OnHoldCases++
		case models.CaseStatusPending:
			out.PendingCases++
		case models.CaseStatusInProgress:
			out.InProgressCases++
		case models.CaseStatusResolved:
			out.ResolvedCases++
		case models.CaseStatusClosed:
			out.ClosedCases++
		case models.CaseStatusArchived:
			out.ArchivedCases++
		}

		if days, ok := c.ResolutionDays(); ok {
			resolutionDays += days
			resolvedWithDates++
		}
	}
	if resolvedWithDates > 0 {
		out.AverageResolutionDays = round2(resolutionDays / float64(resolvedWithDates))
	}
	if out.TotalCases > 0 {
		out.SuccessRate = round2(float64(out.ResolvedCases) / float64(out.TotalCases) * 100)
	}

	// Money
	feesByCase := make(map[string]float64)
	for i := range expenses {
		e := &expenses[i]
		if e.Voided {
			continue
		}
		out.TotalExpenses += e.Amount
		if e.IsLegalFee() {
			out.TotalRevenue += e.Amount
			feesByCase[e.CaseID] += e.Amount
		}
	}
	out.NetProfit = out.TotalRevenue - out.TotalExpenses

	out.TopLawyers = rankLawyers(cases, feesByCase)
	out.MonthlyTrend = monthlyTrend(cases, expenses, now)
	return out
}

func rankLawyers(cases []models.LegalCase, feesByCase map[string]float64) []models.LawyerPerformance {
	byLawyer := make(map[string]*models.LawyerPerformance)
	for i := range cases {
		c := &cases[i]
		if c.LawyerID == "" {
			continue
		}
		perf, ok := byLawyer[c.LawyerID]
		if !ok {
			perf = &models.LawyerPerformance{LawyerID: c.LawyerID}
			byLawyer[c.LawyerID] = perf
		}
		perf.TotalCases++
		if c.Status == models.CaseStatusResolved {
			perf.Wins++
		}
		perf.Revenue += feesByCase[c.ID]
	}

	ranking := make([]models.LawyerPerformance, 0, len(byLawyer))
	for _, perf := range byLawyer {
		perf.SuccessRate = round2(float64(perf.Wins) / float64(perf.TotalCases) * 100)
		ranking = append(ranking, *perf)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].SuccessRate != ranking[j].SuccessRate {
			return ranking[i].SuccessRate > ranking[j].SuccessRate
		}
		if ranking[i].TotalCases != ranking[j].TotalCases {
			return ranking[i].TotalCases > ranking[j].TotalCases
		}
		return ranking[i].LawyerID < ranking[j].LawyerID
	})
	if len(ranking) > topLawyerLimit {
		ranking = ranking[:topLawyerLimit]
	}
	return ranking
}

// monthlyTrend covers the trailing twelve calendar months ending with now's month, oldest first
func monthlyTrend(cases []models.LegalCase, expenses []models.Expense, now time.Time) []models.MonthlyTrend {
	const layout = "2006-01"
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)

	trend := make([]models.MonthlyTrend, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := 0; i < trendMonths; i++ {
		key := first.AddDate(0, i, 0).Format(layout)
		trend[i] = models.MonthlyTrend{Month: key}
		index[key] = i
	}

	bucket := func(t time.Time) (int, bool) {
		i, ok := index[t.UTC().Format(layout)]
		return i, ok
	}

	for i := range cases {
		c := &cases[i]
		if m, ok := bucket(c.CreatedAt); ok {
			trend[m].CasesOpened++
		}
		if c.ClosedAt != nil {
			if m, ok := bucket(*c.ClosedAt); ok {
				trend[m].CasesClosed++
			}
		}
	}
	for i := range expenses {
		e := &expenses[i]
		if e.Voided {
			continue
		}
		m, ok := bucket(e.IncurredAt)
		if !ok {
			continue
		}
		trend[m].Expenses += e.Amount
		if e.IsLegalFee() {
			trend[m].Revenue += e.Amount
		}
	}
	return trend
}
