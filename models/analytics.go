package models

import "time"

// LegalAnalytics is the per-tenant aggregate recomputed from the full case and
// expense history. Each regeneration replaces the cached value wholesale.
type LegalAnalytics struct {
	TenantID    string    `json:"tenant_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalCases      int `json:"total_cases"`
	OpenCases       int `json:"open_cases"`
	OnHoldCases     int `json:"on_hold_cases"`
	PendingCases    int `json:"pending_cases"`
	InProgressCases int `json:"in_progress_cases"`
	ResolvedCases   int `json:"resolved_cases"`
	ClosedCases     int `json:"closed_cases"`
	ArchivedCases   int `json:"archived_cases"`

	CasesByStatus map[string]int `json:"cases_by_status"`
	CasesByType   map[string]int `json:"cases_by_type"`
	CasesByStage  map[string]int `json:"cases_by_stage"`

	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`

	AverageResolutionDays float64 `json:"average_resolution_days"`
	SuccessRate           float64 `json:"success_rate"` // Percent, 2 decimals

	TopLawyers   []LawyerPerformance `json:"top_lawyers"`
	MonthlyTrend []MonthlyTrend      `json:"monthly_trend"`
}

// LawyerPerformance ranks a lawyer by resolved cases
type LawyerPerformance struct {
	LawyerID    string  `json:"lawyer_id"`
	TotalCases  int     `json:"total_cases"`
	Wins        int     `json:"wins"`
	SuccessRate float64 `json:"success_rate"`
	Revenue     float64 `json:"revenue"`
}

// MonthlyTrend aggregates one calendar month
type MonthlyTrend struct {
	Month       string  `json:"month"` // YYYY-MM
	CasesOpened int     `json:"cases_opened"`
	CasesClosed int     `json:"cases_closed"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
}
