package digest

import (
	"time"

	"github.com/letsrace/digest/app/events"
)

// Result partitions a subscriber's matching events. The two lists are
// deduplicated and sorted independently; an event may legitimately appear in
// both.
type Result struct {
	NewThisWeek []events.Event
	Upcoming    []events.Event
}

func (r Result) HasContent() bool {
	return len(r.NewThisWeek) > 0 || len(r.Upcoming) > 0
}

// Email is a rendered digest, ready for the mail transport.
type Email struct {
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
	HasContent bool   `json:"hasContent"`
}

// ParseDay parses a calendar date, truncating any time-of-day component to
// midnight UTC. Comparing whole days this way avoids the timezone and DST
// off-by-one errors that plague wall-clock comparisons.
func ParseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// Day normalizes a timestamp to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
