package mailer

import "context"

// Sender delivers one rendered digest email. Implementations own their
// timeouts; the runner treats any returned error as a per-subscriber
// transport failure.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
