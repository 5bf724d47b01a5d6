package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/letsrace/digest/app/digest"
	"github.com/letsrace/digest/app/events"
	"github.com/letsrace/digest/app/store"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/token"
)

// refNow is a Friday so subscribers with send_day Friday are selected.
var refNow = time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC)

type fakeLoader struct {
	events []events.Event
	err    error
	calls  int
}

func (f *fakeLoader) Load(context.Context) ([]events.Event, error) {
	f.calls++
	return f.events, f.err
}

type fakeSender struct {
	sent    []string
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

func matchingEvent(id string) events.Event {
	return events.Event{
		ID:         id,
		Name:       "Event " + id,
		Discipline: "Road",
		Region:     "Scotland",
		StartDate:  "2025-06-25",
		AddedAt:    "2025-06-18",
	}
}

func fridayRider(email string) subscriber.Subscriber {
	return subscriber.Subscriber{
		Email:       email,
		Region:      "Scotland",
		Disciplines: []string{"Road"},
		SendDay:     "Friday",
		Status:      subscriber.StatusActive,
	}
}

func newFixture(t *testing.T, subs []subscriber.Subscriber, loader *fakeLoader, sender *fakeSender) (*Runner, *subscriber.Store) {
	t.Helper()

	docs, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	subStore := subscriber.NewStoreWithClock(docs, "subscribers.json", func() time.Time { return refNow })

	for i := range subs {
		subs[i].ID = fmt.Sprintf("sub-%d", i)
		if subs[i].CreatedAt.IsZero() {
			subs[i].CreatedAt = refNow.Add(-24 * time.Hour)
			subs[i].UpdatedAt = subs[i].CreatedAt
		}
	}
	if err := subStore.Save(context.Background(), subs); err != nil {
		t.Fatal(err)
	}

	renderer := digest.NewRenderer("https://www.letsrace.cc", token.NewIssuer("test-secret"))
	r := NewWithClock(subStore, loader, renderer, sender, func() time.Time { return refNow })
	return r, subStore
}

func TestRunSendsToSelectedSubscribers(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{}

	r, _ := newFixture(t, []subscriber.Subscriber{
		fridayRider("one@example.com"),
		fridayRider("two@example.com"),
	}, loader, sender)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.Sent != 2 || results.Failed != 0 || results.Skipped != 0 {
		t.Errorf("Expected {sent:2 failed:0 skipped:0}, got %+v", results)
	}
	if len(sender.sent) != 2 {
		t.Errorf("Expected 2 emails, got %d", len(sender.sent))
	}
}

func TestRunSelectionPredicate(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{}

	errText := "previous failure"
	unsubscribed := fridayRider("gone@example.com")
	unsubscribed.Status = subscriber.StatusUnsubscribed
	wrongDay := fridayRider("monday@example.com")
	wrongDay.SendDay = "Monday"
	errored := fridayRider("errored@example.com")
	errored.LastError = &errText

	r, _ := newFixture(t, []subscriber.Subscriber{
		fridayRider("selected@example.com"),
		unsubscribed,
		wrongDay,
		errored,
	}, loader, sender)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.Sent != 1 {
		t.Errorf("Expected exactly 1 send, got %+v", results)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "selected@example.com" {
		t.Errorf("Wrong recipients: %v", sender.sent)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{failFor: map[string]error{
		"three@example.com": errors.New("mailbox unavailable"),
	}}

	subs := []subscriber.Subscriber{
		fridayRider("one@example.com"),
		fridayRider("two@example.com"),
		fridayRider("three@example.com"),
		fridayRider("four@example.com"),
		fridayRider("five@example.com"),
	}

	r, subStore := newFixture(t, subs, loader, sender)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.Sent != 4 || results.Failed != 1 || results.Skipped != 0 {
		t.Errorf("Expected {sent:4 failed:1 skipped:0}, got %+v", results)
	}
	if len(results.Errors) != 1 || results.Errors[0].Email != "three@example.com" {
		t.Errorf("Expected one error for three@example.com, got %v", results.Errors)
	}

	// The end-of-batch write includes every subscriber's final state.
	stored, err := subStore.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 5 {
		t.Fatalf("Expected all 5 subscribers in the stored collection, got %d", len(stored))
	}
	for _, sub := range stored {
		if sub.Email == "three@example.com" {
			if sub.LastError == nil || !strings.Contains(*sub.LastError, "mailbox unavailable") {
				t.Errorf("Expected recorded last_error for failed subscriber, got %v", sub.LastError)
			}
			if sub.LastSentAt != nil {
				t.Error("last_sent_at must be untouched on failure")
			}
		} else {
			if sub.LastError != nil {
				t.Errorf("Expected cleared last_error for %s", sub.Email)
			}
			if sub.LastSentAt == nil {
				t.Errorf("Expected last_sent_at stamped for %s", sub.Email)
			}
		}
	}
}

func TestRunSkipsEmptyDigests(t *testing.T) {
	// Corpus has no Scotland Road events, so the digest has no content.
	loader := &fakeLoader{events: []events.Event{
		{ID: "w", Name: "Welsh RR", Discipline: "Road", Region: "Wales", StartDate: "2025-06-25", AddedAt: "2025-06-18"},
	}}
	sender := &fakeSender{}

	r, subStore := newFixture(t, []subscriber.Subscriber{fridayRider("one@example.com")}, loader, sender)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.Skipped != 1 || results.Sent != 0 {
		t.Errorf("Expected {sent:0 skipped:1}, got %+v", results)
	}
	if len(sender.sent) != 0 {
		t.Error("No email must be sent for an empty digest")
	}

	stored, _ := subStore.Load(context.Background())
	if stored[0].LastSentAt != nil || stored[0].LastError != nil {
		t.Error("Skipped subscriber record must be unchanged")
	}
}

func TestRunNoSubscribersSkipsEventFetch(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{}

	// Saturday rider on a Friday run: nothing selected.
	sub := fridayRider("one@example.com")
	sub.SendDay = "Saturday"

	r, _ := newFixture(t, []subscriber.Subscriber{sub}, loader, sender)

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results.Sent != 0 || results.Failed != 0 || results.Skipped != 0 {
		t.Errorf("Expected empty results, got %+v", results)
	}
	if loader.calls != 0 {
		t.Error("Event corpus must not be fetched when nobody is selected")
	}
}

func TestRunAbortsOnManifestFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("manifest unreachable")}
	sender := &fakeSender{}

	r, _ := newFixture(t, []subscriber.Subscriber{fridayRider("one@example.com")}, loader, sender)

	if _, err := r.Run(context.Background()); err == nil {
		t.Error("Expected manifest failure to abort the run")
	}
	if len(sender.sent) != 0 {
		t.Error("No email must be sent when the event corpus is unavailable")
	}
}

func TestRunTruncatesLongErrors(t *testing.T) {
	longErr := strings.Repeat("x", 500)
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{failFor: map[string]error{
		"one@example.com": errors.New(longErr),
	}}

	r, subStore := newFixture(t, []subscriber.Subscriber{fridayRider("one@example.com")}, loader, sender)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	stored, _ := subStore.Load(context.Background())
	if stored[0].LastError == nil {
		t.Fatal("Expected recorded last_error")
	}
	if len(*stored[0].LastError) != 200 {
		t.Errorf("Expected error truncated to 200 chars, got %d", len(*stored[0].LastError))
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	// 80 three-byte runes; the 200-byte limit lands mid-rune, so the cut
	// must back up to 198 bytes.
	long := strings.Repeat("€", 80)

	got := truncate(long, maxErrorLength)
	if len(got) > maxErrorLength {
		t.Errorf("Expected at most %d bytes, got %d", maxErrorLength, len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Expected truncated text to remain valid UTF-8")
	}
	if got != strings.Repeat("€", 66) {
		t.Errorf("Expected 66 whole runes, got %d bytes", len(got))
	}

	if got := truncate("short", maxErrorLength); got != "short" {
		t.Errorf("Expected short text untouched, got %q", got)
	}
}

func TestPreviewDoesNotTouchStoreOrMail(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{}

	r, subStore := newFixture(t, nil, loader, sender)

	email, err := r.Preview(context.Background(), "Scotland", []string{"Road"}, refNow)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !email.HasContent {
		t.Error("Expected preview to have content")
	}
	if len(sender.sent) != 0 {
		t.Error("Preview must not send mail")
	}

	stored, _ := subStore.Load(context.Background())
	if len(stored) != 0 {
		t.Error("Preview must not persist subscribers")
	}
}

func TestSendTestSendsExactlyOneEmail(t *testing.T) {
	loader := &fakeLoader{events: []events.Event{matchingEvent("a")}}
	sender := &fakeSender{}

	r, subStore := newFixture(t, nil, loader, sender)

	email, err := r.SendTest(context.Background(), "Operator@Example.com", "Scotland", []string{"Road"}, refNow)
	if err != nil {
		t.Fatalf("SendTest failed: %v", err)
	}
	if !email.HasContent {
		t.Error("Expected test digest to have content")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "operator@example.com" {
		t.Errorf("Expected one email to the lowercased operator address, got %v", sender.sent)
	}

	stored, _ := subStore.Load(context.Background())
	if len(stored) != 0 {
		t.Error("SendTest must not persist subscribers")
	}
}
