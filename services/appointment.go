package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound      = errors.New("appointment not found")
	ErrAppointmentConflict      = errors.New("appointment time conflicts with an existing appointment")
	ErrAppointmentNotCancelable = errors.New("appointment cannot be cancelled")
	ErrInvalidAppointmentStatus = errors.New("invalid appointment status")
	ErrInvalidAppointmentTime   = errors.New("appointment must end after it starts")
)

const defaultAppointmentMinutes = 60

// AppointmentInput describes a hearing, meeting or consultation
type AppointmentInput struct {
	AssigneeID      string
	Title           string
	Location        string
	MeetingURL      string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Notes           string
}

// AppointmentFilters narrows List results
type AppointmentFilters struct {
	CaseID     string
	AssigneeID string
	Status     string
	From       time.Time
	To         time.Time
}

// AppointmentService schedules case appointments
type AppointmentService struct {
	store *RecordStore
}

func NewAppointmentService(store *RecordStore) *AppointmentService {
	return &AppointmentService{store: store}
}

// Schedule creates a SCHEDULED appointment after checking the assignee's calendar for overlaps
func (a *AppointmentService) Schedule(ctx context.Context, ac AuditContext, caseID string, in AppointmentInput) (*models.LegalAppointment, error) {
	start, end, minutes, err := appointmentWindow(in)
	if err != nil {
		return nil, err
	}

	var apt models.LegalAppointment
	err = a.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		if hasAppointmentConflict(snap, in.AssigneeID, start, end, "") {
			return ErrAppointmentConflict
		}
		now := a.store.Now()
		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = "Appointment for " + c.ID
		}
		apt = models.LegalAppointment{
			ID:              uuid.New().String(),
			TenantID:        ac.TenantID,
			CaseID:          c.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
			AssigneeID:      in.AssigneeID,
			Title:           title,
			Location:        strings.TrimSpace(in.Location),
			MeetingURL:      strings.TrimSpace(in.MeetingURL),
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: minutes,
			Status:          models.AppointmentStatusScheduled,
			Notes:           strings.TrimSpace(in.Notes),
		}
		snap.AddAppointment(apt)
		return a.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment scheduled for "+c.ID, nil, apt)
	})
	if err != nil {
		return nil, err
	}
	return &apt, nil
}

// appointmentWindow normalises start/end/duration: end defaults to start plus duration
func appointmentWindow(in AppointmentInput) (time.Time, time.Time, int, error) {
	if in.StartTime.IsZero() {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: missing start time", ErrInvalidAppointmentTime)
	}
	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	minutes := in.DurationMinutes
	if in.EndTime.IsZero() {
		if minutes <= 0 {
			minutes = defaultAppointmentMinutes
		}
		end = start.Add(time.Duration(minutes) * time.Minute)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, 0, ErrInvalidAppointmentTime
	}
	if minutes <= 0 || !in.EndTime.IsZero() {
		minutes = int(end.Sub(start).Minutes())
	}
	return start, end, minutes, nil
}

// hasAppointmentConflict checks if a time slot overlaps an active appointment of the assignee
func hasAppointmentConflict(snap *Snapshot, assigneeID string, start, end time.Time, excludeID string) bool {
	if assigneeID == "" {
		return false
	}
	for _, apt := range snap.Appointments {
		if apt.AssigneeID != assigneeID || apt.ID == excludeID {
			continue
		}
		if apt.Status == models.AppointmentStatusCancelled || apt.Status == models.AppointmentStatusNoShow {
			continue
		}
		// Overlap check: (StartA < EndB) AND (EndA > StartB)
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			return true
		}
	}
	return false
}

// Reschedule moves an appointment to a new window
func (a *AppointmentService) Reschedule(ctx context.Context, ac AuditContext, appointmentID string, newStart, newEnd time.Time) (*models.LegalAppointment, error) {
	start, end, minutes, err := appointmentWindow(AppointmentInput{StartTime: newStart, EndTime: newEnd})
	if err != nil {
		return nil, err
	}
	return a.mutate(ctx, ac, appointmentID, func(snap *Snapshot, apt *models.LegalAppointment) error {
		if !apt.IsCancellable() {
			return fmt.Errorf("%w: status %s", ErrAppointmentNotCancelable, apt.Status)
		}
		if hasAppointmentConflict(snap, apt.AssigneeID, start, end, apt.ID) {
			return ErrAppointmentConflict
		}
		before := map[string]time.Time{"start_time": apt.StartTime, "end_time": apt.EndTime}
		apt.StartTime = start
		apt.EndTime = end
		apt.DurationMinutes = minutes
		apt.ReminderSentAt = nil
		return a.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment rescheduled", before, map[string]time.Time{"start_time": start, "end_time": end})
	})
}

// Update edits the descriptive fields of an appointment
func (a *AppointmentService) Update(ctx context.Context, ac AuditContext, appointmentID string, title, location, meetingURL, notes *string) (*models.LegalAppointment, error) {
	return a.mutate(ctx, ac, appointmentID, func(snap *Snapshot, apt *models.LegalAppointment) error {
		before := *apt
		if title != nil {
			apt.Title = strings.TrimSpace(*title)
		}
		if location != nil {
			apt.Location = strings.TrimSpace(*location)
		}
		if meetingURL != nil {
			apt.MeetingURL = strings.TrimSpace(*meetingURL)
		}
		if notes != nil {
			apt.Notes = strings.TrimSpace(*notes)
		}
		return a.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment updated", before, *apt)
	})
}

// UpdateStatus updates the status of an appointment
func (a *AppointmentService) UpdateStatus(ctx context.Context, ac AuditContext, appointmentID, status string) (*models.LegalAppointment, error) {
	if !models.IsValidAppointmentStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAppointmentStatus, status)
	}
	if status == models.AppointmentStatusCancelled {
		return a.Cancel(ctx, ac, appointmentID, "")
	}
	return a.mutate(ctx, ac, appointmentID, func(snap *Snapshot, apt *models.LegalAppointment) error {
		from := apt.Status
		if from == status {
			return nil
		}
		apt.Status = status
		return a.store.LogAuditEvent(snap, ac, models.AuditActionStatusChange, models.EntityKindAppointment, apt.ID, apt.Title,
			fmt.Sprintf("Appointment moved from %s to %s", from, status),
			map[string]string{"status": from}, map[string]string{"status": status})
	})
}

// Cancel cancels a scheduled or confirmed appointment
func (a *AppointmentService) Cancel(ctx context.Context, ac AuditContext, appointmentID, reason string) (*models.LegalAppointment, error) {
	return a.mutate(ctx, ac, appointmentID, func(snap *Snapshot, apt *models.LegalAppointment) error {
		if !apt.IsCancellable() {
			return ErrAppointmentNotCancelable
		}
		from := apt.Status
		now := a.store.Now()
		apt.Status = models.AppointmentStatusCancelled
		apt.CancelledAt = &now
		apt.CancelledBy = ac.ActorID
		apt.CancellationReason = strings.TrimSpace(reason)
		return a.store.LogAuditEvent(snap, ac, models.AuditActionStatusChange, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment cancelled", map[string]string{"status": from},
			map[string]string{"status": apt.Status, "cancellation_reason": apt.CancellationReason})
	})
}

// MarkReminderSent stamps reminderSentAt so the reminder job skips the appointment
func (a *AppointmentService) MarkReminderSent(ctx context.Context, ac AuditContext, appointmentID string) (*models.LegalAppointment, error) {
	return a.mutate(ctx, ac, appointmentID, func(snap *Snapshot, apt *models.LegalAppointment) error {
		now := a.store.Now()
		apt.ReminderSentAt = &now
		return a.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment reminder sent", nil, map[string]time.Time{"reminder_sent_at": now})
	})
}

func (a *AppointmentService) mutate(ctx context.Context, ac AuditContext, appointmentID string, fn func(snap *Snapshot, apt *models.LegalAppointment) error) (*models.LegalAppointment, error) {
	var result models.LegalAppointment
	err := a.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		apt, err := snap.Appointment(appointmentID)
		if err != nil {
			return err
		}
		if err := fn(snap, apt); err != nil {
			return err
		}
		apt.UpdatedAt = a.store.Now()
		result = *apt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes an appointment
func (a *AppointmentService) Delete(ctx context.Context, ac AuditContext, appointmentID string) (*models.LegalAppointment, error) {
	var removed models.LegalAppointment
	err := a.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		apt, err := snap.DeleteAppointment(appointmentID)
		if err != nil {
			return err
		}
		removed = apt
		return a.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindAppointment, apt.ID, apt.Title,
			"Appointment deleted", apt, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Get fetches a single appointment
func (a *AppointmentService) Get(ctx context.Context, tenantID, appointmentID string) (*models.LegalAppointment, error) {
	var result models.LegalAppointment
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		apt, err := snap.Appointment(appointmentID)
		if err != nil {
			return err
		}
		result = *apt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns appointments matching filters ordered by start time
func (a *AppointmentService) List(ctx context.Context, tenantID string, filters AppointmentFilters) ([]models.LegalAppointment, error) {
	var out []models.LegalAppointment
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if filters.CaseID != "" {
			if _, err := snap.Case(filters.CaseID); err != nil {
				return err
			}
		}
		out = snap.AppointmentsWhere(func(apt *models.LegalAppointment) bool {
			if filters.CaseID != "" && apt.CaseID != filters.CaseID {
				return false
			}
			if filters.AssigneeID != "" && apt.AssigneeID != filters.AssigneeID {
				return false
			}
			if filters.Status != "" && apt.Status != filters.Status {
				return false
			}
			if !filters.From.IsZero() && apt.StartTime.Before(filters.From) {
				return false
			}
			if !filters.To.IsZero() && apt.StartTime.After(filters.To) {
				return false
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// DueForReminder finds scheduled or confirmed appointments starting between
// now+from and now+to that have not been reminded yet
func (a *AppointmentService) DueForReminder(ctx context.Context, tenantID string, from, to time.Duration) ([]models.LegalAppointment, error) {
	now := a.store.Now()
	windowStart := now.Add(from)
	windowEnd := now.Add(to)

	var out []models.LegalAppointment
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		out = snap.AppointmentsWhere(func(apt *models.LegalAppointment) bool {
			if apt.Status != models.AppointmentStatusScheduled && apt.Status != models.AppointmentStatusConfirmed {
				return false
			}
			if apt.ReminderSentAt != nil {
				return false
			}
			return !apt.StartTime.Before(windowStart) && !apt.StartTime.After(windowEnd)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
