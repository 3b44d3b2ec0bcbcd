package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/recoverly/recovery-engine/internal/domain"
)

// SMTPConfig holds mail relay settings for the email sender.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers the HTML rendition of a message over SMTP.
type EmailSender struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

func NewEmailSender(cfg SMTPConfig) (*EmailSender, error) {
	return newEmailSender(cfg, smtp.SendMail)
}

func newEmailSender(cfg SMTPConfig, sendMail sendMailFunc) (*EmailSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = fmt.Sprintf("no-reply@%s", cfg.Host)
	}
	if sendMail == nil {
		sendMail = smtp.SendMail
	}

	return &EmailSender{cfg: cfg, sendMail: sendMail}, nil
}

func (s *EmailSender) Send(ctx context.Context, recipient string, message domain.Message) (*ProviderResponse, error) {
	if s == nil {
		return nil, fmt.Errorf("email sender is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Pass != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	body := message.HTML
	contentType := "text/html; charset=UTF-8"
	if strings.TrimSpace(body) == "" {
		body = message.Text
		contentType = "text/plain; charset=UTF-8"
	}

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", s.cfg.From, recipient, message.Subject) +
			"MIME-Version: 1.0\r\n" +
			fmt.Sprintf("Content-Type: %s\r\n\r\n", contentType) +
			body,
	)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, s.cfg.From, []string{recipient}, msg); err != nil {
		return nil, &SenderError{Message: "smtp send failed", Cause: err}
	}

	// SMTP yields no provider correlation id.
	return &ProviderResponse{}, nil
}
