package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"ain_oman_legal/services"

	"github.com/robfig/cron/v3"
)

// StartScheduler runs the reminder job at the top of every hour, Muscat time.
// The caller stops the returned cron when shutting down.
func StartScheduler(svc *services.LegalServices, tenants []string) (*cron.Cron, error) {
	loc, err := time.LoadLocation("Asia/Muscat")
	if err != nil {
		loc = time.FixedZone("GST", 4*60*60)
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc("0 * * * *", func() {
		log.Println("[CRON] Running appointment reminders...")
		SendAppointmentReminders(context.Background(), svc, tenants)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	c.Start()
	log.Println("[CRON] Scheduler started")
	return c, nil
}
