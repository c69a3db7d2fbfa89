package models

import (
	"time"
)

// Task status constants
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusBlocked    = "BLOCKED"
	TaskStatusDone       = "DONE"
	TaskStatusCancelled  = "CANCELLED"
)

// LegalTask is a unit of work on a case
type LegalTask struct {
	ID        string    `json:"id"` // Allocator-issued, e.g. AO-T-000012
	TenantID  string    `json:"tenant_id"`
	CaseID    string    `json:"case_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`

	AssigneeID  string     `json:"assignee_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Stage       string     `json:"stage,omitempty"` // Procedural phase the task belongs to
	DueDate     *time.Time `json:"due_date,omitempty"`

	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`

	WorkflowID string `json:"workflow_id,omitempty"`
}

// IsDone checks if the task is completed
func (t *LegalTask) IsDone() bool {
	return t.Status == TaskStatusDone
}

// IsOverdue checks if the task is past its due date and still open
func (t *LegalTask) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone || t.Status == TaskStatusCancelled {
		return false
	}
	return now.After(*t.DueDate)
}

// IsValidTaskStatus checks if the status is valid
func IsValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}
