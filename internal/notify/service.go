// Package notify sends email notifications via SMTP.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email notification sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new notification service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if SMTP delivery is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends an HTML email
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("notifications not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	// Simple multipart message
	boundary := "boundary-lawchain"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	// Plain text part (fallback)
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	// HTML part
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// HearingNotice holds data for a hearing notification email
type HearingNotice struct {
	AppName     string
	ClientName  string
	CaseTitle   string
	HearingDate string
	HearingTime string
	CourtName   string
	Notes       string
}

// SendHearingNotice notifies a client that a hearing has been scheduled.
func (s *Service) SendHearingNotice(to string, notice HearingNotice) error {
	if notice.AppName == "" {
		notice.AppName = "LawChain AI"
	}

	subject := fmt.Sprintf("Hearing scheduled: %s", notice.CaseTitle)
	html, err := renderTemplate(hearingNoticeTemplate, notice)
	if err != nil {
		return fmt.Errorf("render hearing notice template: %w", err)
	}

	return s.SendHTMLEmail([]string{to}, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("notify").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const hearingNoticeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Hearing scheduled</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .details { background: #f5f7fa; padding: 16px; border-radius: 4px; margin: 20px 0; }
        .details div { margin-bottom: 6px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hearing Scheduled</h2>

    {{if .ClientName}}<p>Dear {{.ClientName}},</p>{{end}}

    <p>A hearing has been scheduled for your case <strong>{{.CaseTitle}}</strong>.</p>

    <div class="details">
        <div><strong>Date:</strong> {{.HearingDate}}</div>
        {{if .HearingTime}}<div><strong>Time:</strong> {{.HearingTime}}</div>{{end}}
        {{if .CourtName}}<div><strong>Court:</strong> {{.CourtName}}</div>{{end}}
        {{if .Notes}}<div><strong>Notes:</strong> {{.Notes}}</div>{{end}}
    </div>

    <p>Please contact your lawyer if you have any questions about this hearing.</p>

    <div class="footer">
        <p>This is an automated notification from {{.AppName}}. Please do not reply to this email.</p>
    </div>
</body>
</html>`
