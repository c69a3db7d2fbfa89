package models

import "time"

// Assignment role constants
const (
	AssignmentRoleResponsible = "RESPONSIBLE"
	AssignmentRoleSupervisor  = "SUPERVISOR"
	AssignmentRoleViewer      = "VIEWER"
	AssignmentRoleCounsel     = "COUNSEL"
)

// CaseAssignment binds a case to a responsible actor with a role
type CaseAssignment struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	CaseID     string    `json:"case_id"`
	ActorID    string    `json:"actor_id"`
	Role       string    `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy string    `json:"assigned_by,omitempty"`
}

// IsValidAssignmentRole checks if the role is valid
func IsValidAssignmentRole(role string) bool {
	switch role {
	case AssignmentRoleResponsible, AssignmentRoleSupervisor, AssignmentRoleViewer, AssignmentRoleCounsel:
		return true
	}
	return false
}
