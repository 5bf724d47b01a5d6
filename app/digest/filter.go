package digest

import (
	"slices"
	"strings"
	"time"

	"github.com/letsrace/digest/app/events"
	"github.com/letsrace/digest/app/subscriber"
)

const (
	newWindow      = 7 * 24 * time.Hour  // added_at within the last week
	upcomingWindow = 42 * 24 * time.Hour // start_date within the next six weeks
)

// Filter partitions the event corpus for one subscriber against a reference
// date. "New this week" tests added_at over [today-7d, today]; "upcoming"
// tests start_date over [today, today+42d]; both windows are inclusive. An
// event with an unparseable date is excluded only from the window that
// depends on that field.
func Filter(corpus []events.Event, sub subscriber.Subscriber, today time.Time) Result {
	today = Day(today)
	weekAgo := today.Add(-newWindow)
	sixWeeksOut := today.Add(upcomingWindow)

	var newThisWeek, upcoming []events.Event

	for _, ev := range corpus {
		if ev.Region != sub.Region || !sub.HasDiscipline(ev.Discipline) {
			continue
		}

		if added, ok := ParseDay(ev.AddedAt); ok && within(added, weekAgo, today) {
			newThisWeek = append(newThisWeek, ev)
		}
		if start, ok := ParseDay(ev.StartDate); ok && within(start, today, sixWeeksOut) {
			upcoming = append(upcoming, ev)
		}
	}

	return Result{
		NewThisWeek: dedupeAndSort(newThisWeek),
		Upcoming:    dedupeAndSort(upcoming),
	}
}

func within(day, lo, hi time.Time) bool {
	return !day.Before(lo) && !day.After(hi)
}

// dedupeAndSort keeps the first occurrence per event id and orders by
// (start_date, name) ascending. Always returns a non-nil slice.
func dedupeAndSort(list []events.Event) []events.Event {
	out := make([]events.Event, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, ev := range list {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}

	slices.SortFunc(out, func(a, b events.Event) int {
		dayA, _ := ParseDay(a.StartDate)
		dayB, _ := ParseDay(b.StartDate)
		if c := dayA.Compare(dayB); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	return out
}
