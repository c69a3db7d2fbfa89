package jobs

import (
	"context"
	"log"
	"time"

	"ain_oman_legal/services"
)

// Reminders go out for appointments starting 24 to 48 hours from now
const (
	reminderWindowStart = 24 * time.Hour
	reminderWindowEnd   = 48 * time.Hour
	reminderActor       = "reminder-job"
)

// ReminderResult summarises one run of the reminder job
type ReminderResult struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

// SendAppointmentReminders notifies the assignee of every upcoming appointment that
// has not been reminded yet and stamps reminderSentAt on success.
func SendAppointmentReminders(ctx context.Context, svc *services.LegalServices, tenants []string) ReminderResult {
	log.Println("[JOBS] Starting appointment reminder job...")
	var result ReminderResult

	if svc.Notifier == nil {
		log.Println("[JOBS] No notifier configured, skipping reminders")
		return result
	}

	for _, tenantID := range tenants {
		appointments, err := svc.Appointments.DueForReminder(ctx, tenantID, reminderWindowStart, reminderWindowEnd)
		if err != nil {
			log.Printf("[JOBS] Error fetching appointments for tenant %s: %v", tenantID, err)
			continue
		}
		log.Printf("[JOBS] Found %d appointments to remind for tenant %s", len(appointments), tenantID)
		result.Due += len(appointments)

		for _, apt := range appointments {
			contact, err := svc.Contacts.Get(ctx, tenantID, apt.AssigneeID)
			if err != nil || contact.Email == "" || !contact.Active {
				log.Printf("[JOBS] No reachable contact for appointment %s (assignee %q)", apt.ID, apt.AssigneeID)
				result.Skipped++
				continue
			}

			email, err := services.BuildAppointmentReminderEmail(contact.Email, services.AppointmentReminderEmailData{
				RecipientName: contact.Name,
				Title:         apt.Title,
				CaseID:        apt.CaseID,
				StartTime:     apt.StartTime,
				Location:      apt.Location,
				MeetingURL:    apt.MeetingURL,
			})
			if err == nil {
				err = svc.Notifier.Notify(ctx, email)
			}
			if err != nil {
				log.Printf("[JOBS] Failed to send reminder for appointment %s: %v", apt.ID, err)
				result.Failed++
				continue
			}

			if _, err := svc.Appointments.MarkReminderSent(ctx, services.SystemAuditContext(tenantID, reminderActor), apt.ID); err != nil {
				log.Printf("[JOBS] Reminder sent but stamp failed for appointment %s: %v", apt.ID, err)
				result.Failed++
				continue
			}
			result.Sent++
			log.Printf("[JOBS] Sent reminder for appointment %s", apt.ID)
		}
	}

	log.Printf("[JOBS] Appointment reminder job completed (sent %d, skipped %d, failed %d)", result.Sent, result.Skipped, result.Failed)
	return result
}
