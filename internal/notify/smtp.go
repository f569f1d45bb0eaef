package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"gradschool/internal/config"
	"gradschool/internal/models"
)

// Sender delivers one rendered message
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPDispatcher renders events to HTML mail and sends them to every recipient
type SMTPDispatcher struct {
	sender    Sender
	portalURL string
}

// NewSMTPDispatcher creates a dispatcher that sends through the configured SMTP server
func NewSMTPDispatcher(cfg *config.EmailConfig) *SMTPDispatcher {
	return &SMTPDispatcher{sender: &smtpSender{config: cfg}, portalURL: cfg.PortalURL}
}

// NewDispatcherWithSender creates an SMTP-style dispatcher around a custom sender
func NewDispatcherWithSender(sender Sender, portalURL string) *SMTPDispatcher {
	return &SMTPDispatcher{sender: sender, portalURL: portalURL}
}

func (d *SMTPDispatcher) Dispatch(ctx context.Context, event Event) error {
	if len(event.To) == 0 {
		slog.Debug("Notification has no recipients", "event", string(event.Type), "audience", event.Audience)
		return nil
	}

	subject, body, err := Render(event, d.portalURL)
	if err != nil {
		return err
	}

	var errs []error
	for _, to := range event.To {
		if err := d.sender.Send(ctx, to, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("failed to notify %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

type messageData struct {
	Event       Event
	Request     models.DefenseRequest
	Committee   []models.CommitteeSeat
	Total       string
	TotalWords  string
	PortalURL   string
	ScheduledOn string
}

var subjects = map[models.EventType]string{
	models.EventSubmitted:           "Defense request received",
	models.EventSentToAdviser:       "Defense request awaiting adviser review",
	models.EventEndorsedCoordinator: "Defense request endorsed to the coordinator",
	models.EventScheduled:           "Defense scheduled",
	models.EventCompleted:           "Defense completed",
	models.EventReturnedForRevision: "Defense request returned for revision",
	models.EventResubmitted:         "Defense request resubmitted",
	models.EventCommitteeAssigned:   "Defense committee updated",
	models.EventAAStatusChanged:     "Payment verification updated",
	models.EventHonorariaReady:      "Honoraria ready for finance",
}

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1f5c99;">{{.Subject}}</h2>
        <p><strong>{{.Data.Request.StudentName}}</strong> ({{.Data.Request.SchoolID}}), {{.Data.Request.Program}}</p>
        <p>{{.Data.Request.DefenseType}} defense: <em>{{.Data.Request.ThesisTitle}}</em></p>
        {{template "content" .Data}}
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Data.PortalURL}}/defense-requests/{{.Data.Request.ID}}" style="background-color: #1f5c99; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Open defense request</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated message from the Graduate School. Please do not reply.</p>
    </div>
</body>
</html>`

var contents = map[models.EventType]string{
	models.EventSubmitted:           `<p>The defense request was received and is waiting to be routed to the adviser.</p>`,
	models.EventSentToAdviser:       `<p>The request is now with the adviser, {{.Request.AdviserName}}, for review.</p>`,
	models.EventEndorsedCoordinator: `<p>The adviser endorsed the request. It is now waiting for the program coordinator.</p>`,
	models.EventScheduled: `<p>The defense is scheduled{{if .ScheduledOn}} on <strong>{{.ScheduledOn}}</strong>{{end}}{{if .Request.ScheduledTime}} at {{.Request.ScheduledTime}}{{end}}{{if .Request.DefenseMode}} ({{.Request.DefenseMode}}){{end}}.</p>
<ul>{{range .Committee}}<li>{{.Role}}: {{.Name}}</li>{{end}}</ul>`,
	models.EventCompleted: `<p>The defense is marked completed. Payment verification can proceed.</p>`,
	models.EventReturnedForRevision: `<p>The request was returned for revision.</p>
<div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0;">{{.Event.Reason}}</div>`,
	models.EventResubmitted:     `<p>The student resubmitted the revised request.</p>`,
	models.EventAAStatusChanged: `<p>Payment verification status: <strong>{{.Event.AAStatus}}</strong>.</p>`,
	models.EventHonorariaReady: `<p>The following honoraria are ready for finance processing.</p>
<table style="border-collapse: collapse; width: 100%;">
{{range .Event.Honoraria}}<tr><td style="padding: 4px 8px;">{{.Role}}</td><td style="padding: 4px 8px;">{{.PanelistName}}</td><td style="padding: 4px 8px; text-align: right;">{{.Amount}}</td></tr>
{{end}}<tr><td colspan="2" style="padding: 4px 8px;"><strong>Total</strong></td><td style="padding: 4px 8px; text-align: right;"><strong>{{.Total}}</strong></td></tr>
</table>
<p>Amount in words: <em>{{.TotalWords}}</em></p>`,
	models.EventCommitteeAssigned: `<p>The coordinator updated the defense committee.</p>
<ul>{{range .Committee}}<li>{{.Role}}: {{.Name}}</li>{{end}}</ul>`,
}

var templates = func() map[models.EventType]*template.Template {
	out := make(map[models.EventType]*template.Template, len(contents))
	for eventType, content := range contents {
		t := template.Must(template.New("layout").Parse(layout))
		template.Must(t.New("content").Parse(content))
		out[eventType] = t
	}
	return out
}()

// Render produces the subject and HTML body of an event
func Render(event Event, portalURL string) (string, string, error) {
	t, ok := templates[event.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for event %q", event.Type)
	}

	total := event.Total()
	data := messageData{
		Event:      event,
		Request:    event.Request,
		Committee:  event.Request.Committee(),
		Total:      total.String(),
		TotalWords: total.Words(),
		PortalURL:  strings.TrimRight(portalURL, "/"),
	}
	if event.Request.ScheduledDate != nil {
		data.ScheduledOn = event.Request.ScheduledDate.Format("January 2, 2006")
	}

	subject := subjects[event.Type]
	if event.Request.StudentName != "" {
		subject = fmt.Sprintf("%s: %s", subject, event.Request.StudentName)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, struct {
		Subject string
		Data    messageData
	}{subject, data}); err != nil {
		return "", "", fmt.Errorf("failed to render %s notification: %w", event.Type, err)
	}

	return subject, body.String(), nil
}

type smtpSender struct {
	config *config.EmailConfig
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	headers := []string{
		"From: " + s.config.SMTPFrom,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var message bytes.Buffer
	message.WriteString(strings.Join(headers, "\r\n"))
	message.WriteString("\r\n\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Connecting to SMTP server", "address", addr)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		_ = client.Close()
	}(client)

	// Development servers such as Mailpit accept mail without authentication
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := wc.Write(message.Bytes()); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)
	return client.Quit()
}
