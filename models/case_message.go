package models

import "time"

// Message type constants
const (
	MessageTypeNote     = "NOTE"
	MessageTypeEmail    = "EMAIL"
	MessageTypeCall     = "CALL"
	MessageTypeMeeting  = "MEETING"
	MessageTypeInternal = "INTERNAL"
)

// CaseMessage is a communication entry logged against a case
type CaseMessage struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CaseID      string    `json:"case_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	MessageType string    `json:"message_type"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	SenderID    string    `json:"sender_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
}

// IsValidMessageType checks if the message type is valid
func IsValidMessageType(t string) bool {
	switch t {
	case MessageTypeNote, MessageTypeEmail, MessageTypeCall, MessageTypeMeeting, MessageTypeInternal:
		return true
	}
	return false
}
