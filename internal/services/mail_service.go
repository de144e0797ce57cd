package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/yukikurage/issue-tracker-api/internal/config"
)

// Mailer sends a single message to a recipient. Implementations are
// best-effort collaborators; callers log failures and move on.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through the configured SMTP relay. With no host
// configured it silently does nothing, so development setups need no relay.
type SMTPMailer struct {
	cfg *config.Config
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message
func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.cfg.SMTPHost == "" {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("From: " + m.cfg.SMTPFrom + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	return smtp.SendMail(addr, auth, m.cfg.SMTPFrom, []string{to}, []byte(sb.String()))
}
