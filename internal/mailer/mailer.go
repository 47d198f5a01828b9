// Package mailer sends transactional email to users.
package mailer

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Sender defines the interface for sending transactional email.
type Sender interface {
	// SendVerificationCode delivers an account verification code to the address.
	SendVerificationCode(ctx context.Context, toEmail, code string) error
}

// SMTPConfig holds SMTP delivery configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends email over SMTP using gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a new SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendVerificationCode delivers an account verification code to the address.
func (s *SMTPSender) SendVerificationCode(_ context.Context, toEmail, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Verify your account")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your verification code is %s. It expires in 10 minutes.", code,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	return nil
}
