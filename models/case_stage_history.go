package models

import "time"

// CaseStageHistory is one append-only row per stage transition.
// Rows are corrected by voiding, never deleted.
type CaseStageHistory struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	CaseID     string     `json:"case_id"`
	FromStage  string     `json:"from_stage"`
	ToStage    string     `json:"to_stage"`
	ChangedAt  time.Time  `json:"changed_at"`
	ChangedBy  string     `json:"changed_by,omitempty"`
	Note       string     `json:"note,omitempty"`
	Voided     bool       `json:"voided"`
	VoidReason *string    `json:"void_reason,omitempty"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	VoidedBy   string     `json:"voided_by,omitempty"`
}
