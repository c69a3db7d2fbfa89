package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
	AuditActionStageChange  AuditAction = "STAGE_CHANGE"
	AuditActionVoid         AuditAction = "VOID"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionUnassign     AuditAction = "UNASSIGN"
	AuditActionTransfer     AuditAction = "TRANSFER"
	AuditActionGenerate     AuditAction = "GENERATE" // Derived data regenerated (analytics, predictions, insights)
	AuditActionSeed         AuditAction = "SEED"
)

// Entity kinds recorded on audit entries
const (
	EntityKindCase        = "LegalCase"
	EntityKindStage       = "CaseStageHistory"
	EntityKindAssignment  = "CaseAssignment"
	EntityKindDocument    = "CaseDocument"
	EntityKindMessage     = "CaseMessage"
	EntityKindExpense     = "Expense"
	EntityKindTransfer    = "CaseTransfer"
	EntityKindAppointment = "LegalAppointment"
	EntityKindTask        = "LegalTask"
	EntityKindContact     = "Contact"
	EntityKindWorkflow    = "LegalWorkflow"
	EntityKindAnalytics   = "LegalAnalytics"
	EntityKindPrediction  = "CasePrediction"
	EntityKindStore       = "RecordStore"
)

// AuditLog represents an immutable record of a data operation.
// Entries are appended by the store and never updated or deleted.
type AuditLog struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TenantID  string    `json:"tenant_id"`

	// Actor identification
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"` // Denormalized for historical accuracy

	// Target entity
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name,omitempty"` // Human-readable identifier (e.g. case title)

	// Operation details
	Action      AuditAction `json:"action"`
	Description string      `json:"description,omitempty"`

	// Change tracking (for UPDATE operations)
	OldValues string `json:"old_values,omitempty"` // JSON encoded
	NewValues string `json:"new_values,omitempty"` // JSON encoded

	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	// Only include fields whose values differ
	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// Clone returns a copy that does not share the metadata map
func (a AuditLog) Clone() AuditLog {
	out := a
	if a.Metadata != nil {
		out.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
