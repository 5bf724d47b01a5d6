package mailer

import (
	"context"
	"log/slog"
)

var _ Sender = (*Log)(nil)

// Log is the development transport: it records what would have been sent
// instead of sending it. Used when no SMTP host is configured.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Send(_ context.Context, to, subject, htmlBody string) error {
	slog.Info("Email suppressed (no SMTP host configured)", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}
