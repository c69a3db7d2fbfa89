package models

import (
	"time"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusCancelled = "CANCELLED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusNoShow    = "NO_SHOW"
)

// LegalAppointment is a hearing, meeting or consultation scheduled for a case
type LegalAppointment struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CaseID    string    `json:"case_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AssigneeID string `json:"assignee_id"`
	Title      string `json:"title"`
	Location   string `json:"location,omitempty"`
	MeetingURL string `json:"meeting_url,omitempty"`

	// Schedule
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`

	// Status
	Status             string     `json:"status"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`

	Notes string `json:"notes,omitempty"`

	// Reminder System
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
}

// IsValidAppointmentStatus checks if the status is valid
func IsValidAppointmentStatus(status string) bool {
	validStatuses := []string{
		AppointmentStatusScheduled,
		AppointmentStatusConfirmed,
		AppointmentStatusCancelled,
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsCancellable checks if the appointment can be cancelled
func (a *LegalAppointment) IsCancellable() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed
}

// Duration returns the duration of the appointment in minutes
func (a *LegalAppointment) Duration() int {
	if a.DurationMinutes > 0 {
		return a.DurationMinutes
	}
	return int(a.EndTime.Sub(a.StartTime).Minutes())
}
