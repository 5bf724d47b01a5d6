package tasks

import (
	"testing"
	"time"
)

func newTestScheduler(now func() time.Time) *Scheduler {
	s := NewScheduler(nil, nil, time.Minute, 7, 1)
	s.now = now
	return s
}

func TestDigestNotDueBeforeSendHour(t *testing.T) {
	clock := time.Date(2025, 6, 20, 6, 59, 0, 0, time.Local)
	s := newTestScheduler(func() time.Time { return clock })

	if s.digestDue() {
		t.Error("Expected no digest run before the send hour")
	}
}

func TestDigestDueOncePerCalendarDay(t *testing.T) {
	clock := time.Date(2025, 6, 20, 7, 0, 0, 0, time.Local)
	s := newTestScheduler(func() time.Time { return clock })

	if !s.digestDue() {
		t.Fatal("Expected the first check at the send hour to claim the run")
	}
	if s.digestDue() {
		t.Error("Expected the second check to see the day already claimed")
	}

	clock = time.Date(2025, 6, 20, 18, 30, 0, 0, time.Local)
	if s.digestDue() {
		t.Error("Expected later checks on the same day to be no-ops")
	}

	clock = time.Date(2025, 6, 21, 7, 5, 0, 0, time.Local)
	if !s.digestDue() {
		t.Error("Expected the next calendar day to claim a new run")
	}
}

func TestResetLastRunReArmsTheDay(t *testing.T) {
	clock := time.Date(2025, 6, 20, 8, 0, 0, 0, time.Local)
	s := newTestScheduler(func() time.Time { return clock })

	if !s.digestDue() {
		t.Fatal("Expected the first check to claim the run")
	}

	// A failed enqueue resets the claim so the next tick retries the day.
	s.resetLastRun()
	if !s.digestDue() {
		t.Error("Expected a reset claim to be claimable again")
	}
}
