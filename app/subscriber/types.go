package subscriber

import (
	"slices"
	"time"
)

const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
	StatusBounced      = "bounced"
)

// Subscriber is one record in the subscriber collection document. Records
// are never deleted; unsubscribing flips the status.
type Subscriber struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"` // normalized lowercase, unique
	Region      string     `json:"region"`
	Disciplines []string   `json:"disciplines"`
	SendDay     string     `json:"send_day"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastSentAt  *time.Time `json:"last_sent_at"`
	LastError   *string    `json:"last_error"`
}

func (s Subscriber) HasDiscipline(discipline string) bool {
	return slices.Contains(s.Disciplines, discipline)
}
