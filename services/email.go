package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log"
	"strings"
	texttemplate "text/template"
	"time"

	"ain_oman_legal/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Notifier delivers an email. Callers treat delivery failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, email *Email) error
}

// EmailNotifier sends through Resend, or logs to the console in test mode
type EmailNotifier struct {
	cfg     *config.Config
	metrics *Metrics
}

// NewEmailNotifier creates a notifier from cfg. metrics may be nil.
func NewEmailNotifier(cfg *config.Config, metrics *Metrics) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, metrics: metrics}
}

// Notify sends email using the Resend API
func (n *EmailNotifier) Notify(ctx context.Context, email *Email) error {
	err := SendEmail(ctx, n.cfg, email)
	n.metrics.notified("email", err)
	return err
}

// SendEmail sends an email using Resend API
func SendEmail(ctx context.Context, cfg *config.Config, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[NOTIFY] Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n[NOTIFY] EMAIL (test mode - not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// TransferRequestEmailData feeds the transfer request templates
type TransferRequestEmailData struct {
	RecipientName  string
	TransferNumber string
	CaseID         string
	CaseTitle      string
	Reason         string
	RequestedBy    string
}

const transferRequestText = `Hello {{.RecipientName}},

A legal case has been transferred to you and awaits your response.

Transfer: {{.TransferNumber}}
Case: {{.CaseID}} - {{.CaseTitle}}
Requested by: {{.RequestedBy}}
{{if .Reason}}Reason: {{.Reason}}
{{end}}`

const transferRequestHTML = `<p>Hello {{.RecipientName}},</p>
<p>A legal case has been transferred to you and awaits your response.</p>
<ul>
<li>Transfer: <strong>{{.TransferNumber}}</strong></li>
<li>Case: {{.CaseID}} - {{.CaseTitle}}</li>
<li>Requested by: {{.RequestedBy}}</li>
{{if .Reason}}<li>Reason: {{.Reason}}</li>{{end}}
</ul>`

// BuildTransferRequestEmail creates the email sent to a transfer's target
func BuildTransferRequestEmail(to string, data TransferRequestEmailData) (*Email, error) {
	htmlBody, textBody, err := renderEmail("transfer_request", transferRequestHTML, transferRequestText, data)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("Case transfer %s: %s", data.TransferNumber, data.CaseTitle),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// AppointmentReminderEmailData feeds the reminder templates
type AppointmentReminderEmailData struct {
	RecipientName string
	Title         string
	CaseID        string
	StartTime     time.Time
	Location      string
	MeetingURL    string
}

const appointmentReminderText = `Hello {{.RecipientName}},

Reminder: "{{.Title}}" for case {{.CaseID}} starts on {{.StartTime.Format "2006-01-02 15:04 MST"}}.
{{if .Location}}Location: {{.Location}}
{{end}}{{if .MeetingURL}}Join: {{.MeetingURL}}
{{end}}`

const appointmentReminderHTML = `<p>Hello {{.RecipientName}},</p>
<p>Reminder: <strong>{{.Title}}</strong> for case {{.CaseID}} starts on {{.StartTime.Format "2006-01-02 15:04 MST"}}.</p>
{{if .Location}}<p>Location: {{.Location}}</p>{{end}}
{{if .MeetingURL}}<p><a href="{{.MeetingURL}}">Join meeting</a></p>{{end}}`

// BuildAppointmentReminderEmail creates the reminder sent ahead of an appointment
func BuildAppointmentReminderEmail(to string, data AppointmentReminderEmailData) (*Email, error) {
	htmlBody, textBody, err := renderEmail("appointment_reminder", appointmentReminderHTML, appointmentReminderText, data)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{to},
		Subject:  "Appointment reminder: " + data.Title,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

func renderEmail(name, htmlSrc, textSrc string, data interface{}) (string, string, error) {
	htmlTmpl, err := htmltemplate.New(name + ".html").Parse(htmlSrc)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	textTmpl, err := texttemplate.New(name + ".txt").Parse(textSrc)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
