package models

import (
	"time"
)

// Case status constants (administrative lifecycle)
const (
	CaseStatusOpen       = "OPEN"
	CaseStatusOnHold     = "ON_HOLD"
	CaseStatusPending    = "PENDING"
	CaseStatusInProgress = "IN_PROGRESS"
	CaseStatusResolved   = "RESOLVED"
	CaseStatusClosed     = "CLOSED"
	CaseStatusArchived   = "ARCHIVED"
)

// Case stage constants (procedural phase)
const (
	CaseStageInvestigation = "INVESTIGATION"
	CaseStageNegotiation   = "NEGOTIATION"
	CaseStageSettlement    = "SETTLEMENT"
	CaseStageFiling        = "FILING"
	CaseStageHearing       = "HEARING"
	CaseStageAppeal        = "APPEAL"
	CaseStageJudgment      = "JUDGMENT"
	CaseStageExecution     = "EXECUTION"
	CaseStageArchived      = "ARCHIVED"
)

// Case priority constants
const (
	CasePriorityLow    = "LOW"
	CasePriorityMedium = "MEDIUM"
	CasePriorityHigh   = "HIGH"
	CasePriorityUrgent = "URGENT"
)

// Case type constants. Types are open-ended; these are the ones the app ships with.
const (
	CaseTypeRentalDispute  = "RENTAL_DISPUTE"
	CaseTypeEviction       = "EVICTION"
	CaseTypeContract       = "CONTRACT"
	CaseTypePropertyDamage = "PROPERTY_DAMAGE"
	CaseTypeDebtCollection = "DEBT_COLLECTION"
	CaseTypeCommercial     = "COMMERCIAL"
	CaseTypeLabor          = "LABOR"
	CaseTypeOther          = "OTHER"
)

// Case outcome constants (set when a case is resolved)
const (
	CaseOutcomeWon       = "WON"
	CaseOutcomeLost      = "LOST"
	CaseOutcomeSettled   = "SETTLED"
	CaseOutcomeDismissed = "DISMISSED"
)

// CaseStages lists the procedural phases in their natural order
var CaseStages = []string{
	CaseStageInvestigation,
	CaseStageNegotiation,
	CaseStageSettlement,
	CaseStageFiling,
	CaseStageHearing,
	CaseStageAppeal,
	CaseStageJudgment,
	CaseStageExecution,
	CaseStageArchived,
}

// CaseStatuses lists every lifecycle status
var CaseStatuses = []string{
	CaseStatusOpen,
	CaseStatusOnHold,
	CaseStatusPending,
	CaseStatusInProgress,
	CaseStatusResolved,
	CaseStatusClosed,
	CaseStatusArchived,
}

// LegalCase represents a legal case (e.g. a rental dispute) tracked by a tenant
type LegalCase struct {
	ID        string    `json:"id"` // Allocator-issued, e.g. LEGAL-000042
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`

	// Identification
	Title    string `json:"title"`
	ClientID string `json:"client_id"`
	LawyerID string `json:"lawyer_id"`
	Type     string `json:"type"`
	Priority string `json:"priority"`

	// Status and stage are tracked independently
	Status       string     `json:"status"`
	Stage        string     `json:"stage"`
	Outcome      string     `json:"outcome,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ClosedReason string     `json:"closed_reason,omitempty"`

	// Property references
	PropertyID string `json:"property_id,omitempty"`
	UnitID     string `json:"unit_id,omitempty"`

	// Free-text details
	Summary        string  `json:"summary,omitempty"`
	Parties        string  `json:"parties,omitempty"`
	CourtName      string  `json:"court_name,omitempty"`
	CourtReference string  `json:"court_reference,omitempty"`
	ReliefSought   string  `json:"relief_sought,omitempty"`
	Evidence       string  `json:"evidence,omitempty"`
	ClaimAmount    float64 `json:"claim_amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	Notes          string  `json:"notes,omitempty"`

	Tags  []string          `json:"tags,omitempty"`
	Extra map[string]string `json:"extra,omitempty"` // Forward-compatible metadata

	AIInsights *AIInsights `json:"ai_insights,omitempty"`
}

// AIInsights is a derived snapshot embedded on a case
type AIInsights struct {
	GeneratedAt        time.Time       `json:"generated_at"`
	Complexity         string          `json:"complexity"` // LOW, MEDIUM, HIGH
	SuccessProbability float64         `json:"success_probability"`
	RecommendedActions []string        `json:"recommended_actions"`
	RiskFactors        []string        `json:"risk_factors"`
	CostRange          CostRange       `json:"cost_range"`
	Timeline           []PhaseEstimate `json:"timeline"`
}

// CostRange is an estimated min/max spend for a case
type CostRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// PhaseEstimate is the expected duration of one remaining stage
type PhaseEstimate struct {
	Stage         string `json:"stage"`
	EstimatedDays int    `json:"estimated_days"`
}

// Complexity classes
const (
	ComplexityLow    = "LOW"
	ComplexityMedium = "MEDIUM"
	ComplexityHigh   = "HIGH"
)

// Clone returns a deep copy so callers never share maps or pointers with the store
func (c LegalCase) Clone() LegalCase {
	out := c
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		out.ClosedAt = &t
	}
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	if c.AIInsights != nil {
		ins := *c.AIInsights
		ins.RecommendedActions = append([]string(nil), c.AIInsights.RecommendedActions...)
		ins.RiskFactors = append([]string(nil), c.AIInsights.RiskFactors...)
		ins.Timeline = append([]PhaseEstimate(nil), c.AIInsights.Timeline...)
		out.AIInsights = &ins
	}
	return out
}

// IsOpen checks if the case is open
func (c *LegalCase) IsOpen() bool {
	return c.Status == CaseStatusOpen
}

// IsClosed checks if the case reached a closing status
func (c *LegalCase) IsClosed() bool {
	return c.Status == CaseStatusClosed || c.Status == CaseStatusResolved
}

// ResolutionDays returns the days between creation and closing, if closed
func (c *LegalCase) ResolutionDays() (float64, bool) {
	if c.ClosedAt == nil || c.CreatedAt.IsZero() {
		return 0, false
	}
	return c.ClosedAt.Sub(c.CreatedAt).Hours() / 24, true
}

// IsValidCaseStatus checks if the status is valid
func IsValidCaseStatus(status string) bool {
	for _, s := range CaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidCaseStage checks if the stage is valid
func IsValidCaseStage(stage string) bool {
	for _, s := range CaseStages {
		if s == stage {
			return true
		}
	}
	return false
}

// IsValidCasePriority checks if the priority is valid
func IsValidCasePriority(priority string) bool {
	switch priority {
	case CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityUrgent:
		return true
	}
	return false
}

// IsValidCaseOutcome checks if the outcome is valid
func IsValidCaseOutcome(outcome string) bool {
	switch outcome {
	case CaseOutcomeWon, CaseOutcomeLost, CaseOutcomeSettled, CaseOutcomeDismissed:
		return true
	}
	return false
}

// IsClosingStatus reports whether moving to status stamps closedAt
func IsClosingStatus(status string) bool {
	return status == CaseStatusClosed || status == CaseStatusResolved
}

// StageIndex returns the position of a stage in CaseStages, or -1
func StageIndex(stage string) int {
	for i, s := range CaseStages {
		if s == stage {
			return i
		}
	}
	return -1
}

// GetCaseStatusDisplayName returns human-readable status name
func GetCaseStatusDisplayName(status string) string {
	names := map[string]string{
		CaseStatusOpen:       "Open",
		CaseStatusOnHold:     "On Hold",
		CaseStatusPending:    "Pending",
		CaseStatusInProgress: "In Progress",
		CaseStatusResolved:   "Resolved",
		CaseStatusClosed:     "Closed",
		CaseStatusArchived:   "Archived",
	}
	if name, ok := names[status]; ok {
		return name
	}
	return status
}
