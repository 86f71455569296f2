package sender

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// SMTPConfig holds connection settings for the live email sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers email entries over SMTP. The message subject is the
// first line of the content; the remainder is the body.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a live email sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

// Send delivers one email entry. Entries without a recipient address and
// non-email channels fail without contacting the server.
func (s *SMTPSender) Send(_ context.Context, e domain.QueueEntry) domain.SendResult {
	if e.Channel != domain.ChannelEmail {
		return domain.SendResult{Success: false, Error: fmt.Sprintf("smtp sender got channel %q", e.Channel)}
	}
	if e.LeadEmail == "" {
		return domain.SendResult{Success: false, Error: "entry has no recipient address"}
	}

	subject, body := splitSubject(e.Content)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.cfg.From, e.LeadEmail, subject, body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{e.LeadEmail}, []byte(msg)); err != nil {
		return domain.SendResult{Success: false, Error: fmt.Sprintf("smtp send: %v", err)}
	}

	logger.Info("sent email", "recipient", e.LeadEmail, "lead", e.LeadName)
	return domain.SendResult{Success: true, SentAt: time.Now()}
}

// splitSubject separates a message into subject and body. The first
// non-empty line is the subject, with a leading "Subject:" prefix removed
// and length capped at 100 characters.
func splitSubject(content string) (string, string) {
	content = strings.TrimSpace(content)
	lines := strings.SplitN(content, "\n", 2)

	subject := strings.TrimSpace(lines[0])
	for _, prefix := range []string{"Subject:", "subject:", "SUBJECT:"} {
		if strings.HasPrefix(subject, prefix) {
			subject = strings.TrimSpace(subject[len(prefix):])
			break
		}
	}
	if len(subject) > 100 {
		subject = subject[:100]
	}

	body := ""
	if len(lines) > 1 {
		body = strings.TrimSpace(lines[1])
	}
	return subject, body
}
