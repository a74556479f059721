package otp

import (
	"context"
	"log/slog"
)

// Sender delivers a code to its owner.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// LogSender writes codes to the log instead of mailing them. Meant for local
// development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, email, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "otp issued", "email", email, "code", code)
	return nil
}
