package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes email to the log instead of delivering it. Used in
// development environments where no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendVerificationCode logs the code instead of emailing it.
func (s *LogSender) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	s.logger.InfoContext(ctx, "verification email (log sender)",
		slog.String("to", toEmail),
		slog.String("code", code),
	)
	return nil
}
