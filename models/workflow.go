package models

import "time"

// DefaultWorkflowID is the seeded rental dispute template
const DefaultWorkflowID = "WORKFLOW-RENTAL-DISPUTE"

// LegalWorkflow is a reusable template of task steps for a case type
type LegalWorkflow struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Name        string         `json:"name"`
	CaseType    string         `json:"case_type,omitempty"`
	Description string         `json:"description,omitempty"`
	Steps       []WorkflowStep `json:"steps"`
}

// WorkflowStep becomes one task when a workflow is applied to a case
type WorkflowStep struct {
	Title      string `json:"title"`
	Stage      string `json:"stage,omitempty"`
	Priority   string `json:"priority,omitempty"`
	OffsetDays int    `json:"offset_days"` // Due date relative to the day the workflow is applied
}
