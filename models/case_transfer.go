package models

import "time"

// Transfer status constants
const (
	TransferStatusPending   = "PENDING"
	TransferStatusAccepted  = "ACCEPTED"
	TransferStatusRejected  = "REJECTED"
	TransferStatusCompleted = "COMPLETED"
)

// CaseTransfer is a request to hand a case over to another legal actor or institution.
// Only the timestamps of edges actually taken are set.
type CaseTransfer struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	TransferNumber string `json:"transfer_number"` // Allocator-issued, e.g. TRANSFER-000007
	CaseID         string `json:"case_id"`

	FromActorID   string `json:"from_actor_id,omitempty"`
	ToActorID     string `json:"to_actor_id,omitempty"`
	ToInstitution string `json:"to_institution,omitempty"`
	Reason        string `json:"reason,omitempty"`

	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
	RequestedBy string    `json:"requested_by,omitempty"`

	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy      string     `json:"accepted_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedBy     string     `json:"completed_by,omitempty"`
}

// IsPending checks if the transfer awaits a response
func (t *CaseTransfer) IsPending() bool {
	return t.Status == TransferStatusPending
}

// IsTerminal checks if no further transitions are possible
func (t *CaseTransfer) IsTerminal() bool {
	return t.Status == TransferStatusRejected || t.Status == TransferStatusCompleted
}

// CanTransferTo reports whether the transfer state machine allows from -> to
func CanTransferTo(from, to string) bool {
	switch from {
	case TransferStatusPending:
		return to == TransferStatusAccepted || to == TransferStatusRejected
	case TransferStatusAccepted:
		return to == TransferStatusCompleted
	}
	return false
}
