package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/letsrace/digest/app/digest"
	"github.com/letsrace/digest/app/events"
	"github.com/letsrace/digest/app/mailer"
	"github.com/letsrace/digest/app/metrics"
	"github.com/letsrace/digest/app/subscriber"
)

// maxErrorLength bounds the error text recorded on a subscriber record.
const maxErrorLength = 200

type EventLoader interface {
	Load(ctx context.Context) ([]events.Event, error)
}

var _ EventLoader = (*events.Source)(nil)

type SendError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type Results struct {
	Sent    int         `json:"sent"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Errors  []SendError `json:"errors,omitempty"`
}

// Runner drives one digest batch: select today's subscribers, generate and
// send each digest, record per-subscriber outcomes, and write the mutated
// collection back in a single store write. Subscribers are processed
// sequentially so failures stay attributable and the end-of-batch write is
// well-defined.
type Runner struct {
	store    *subscriber.Store
	source   EventLoader
	renderer *digest.Renderer
	sender   mailer.Sender
	now      func() time.Time
}

func New(store *subscriber.Store, source EventLoader, renderer *digest.Renderer, sender mailer.Sender) *Runner {
	return &Runner{
		store:    store,
		source:   source,
		renderer: renderer,
		sender:   sender,
		now:      time.Now,
	}
}

// NewWithClock is used by tests to control the reference date.
func NewWithClock(store *subscriber.Store, source EventLoader, renderer *digest.Renderer, sender mailer.Sender, now func() time.Time) *Runner {
	r := New(store, source, renderer, sender)
	r.now = now
	return r
}

// Run executes the daily batch. One subscriber's send failure never aborts
// the batch; a subscriber store or manifest failure does.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	localNow := r.now().In(time.Local)
	today := digest.Day(localNow)
	weekday := localNow.Weekday().String()

	slog.Info("Starting digest run", "weekday", weekday, "date", today.Format("2006-01-02"))

	subscribers, err := r.store.Load(ctx)
	if err != nil {
		metrics.DigestRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	var selected []int
	for i, sub := range subscribers {
		if sub.Status == subscriber.StatusActive && sub.SendDay == weekday && sub.LastError == nil {
			selected = append(selected, i)
		}
	}

	results := &Results{}

	if len(selected) == 0 {
		slog.Info("No subscribers to process today")
		metrics.DigestRuns.WithLabelValues("empty").Inc()
		return results, nil
	}

	slog.Info("Selected subscribers for processing", "count", len(selected))

	corpus, err := r.source.Load(ctx)
	if err != nil {
		metrics.DigestRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	for _, i := range selected {
		sub := subscribers[i]

		result := digest.Filter(corpus, sub, today)
		email := r.renderer.Run(sub, result, today)

		if !email.HasContent {
			slog.Debug("Skipping subscriber, no matching events", "email", sub.Email)
			results.Skipped++
			metrics.EmailsSkipped.Inc()
			continue
		}

		now := r.now().UTC()
		if err := r.sender.Send(ctx, sub.Email, email.Subject, email.HTML); err != nil {
			slog.Error("Failed to send digest", "email", sub.Email, "error", err)
			results.Failed++
			results.Errors = append(results.Errors, SendError{Email: sub.Email, Error: err.Error()})
			metrics.EmailsFailed.Inc()

			errText := truncate(err.Error(), maxErrorLength)
			subscribers[i].LastError = &errText
			subscribers[i].UpdatedAt = now
			continue
		}

		slog.Info("Sent digest", "email", sub.Email)
		results.Sent++
		metrics.EmailsSent.Inc()

		subscribers[i].LastSentAt = &now
		subscribers[i].LastError = nil
		subscribers[i].UpdatedAt = now
	}

	if err := r.store.Save(ctx, subscribers); err != nil {
		metrics.DigestRuns.WithLabelValues("error").Inc()
		return results, err
	}

	slog.Info("Digest run complete", "sent", results.Sent, "failed", results.Failed, "skipped", results.Skipped)
	metrics.DigestRuns.WithLabelValues("ok").Inc()
	return results, nil
}

// Preview renders a digest for an ad-hoc subscriber without persisting
// anything or sending mail.
func (r *Runner) Preview(ctx context.Context, region string, disciplines []string, today time.Time) (digest.Email, error) {
	email, _, err := r.generateAdHoc(ctx, "preview", "preview@letsrace.cc", region, disciplines, today)
	return email, err
}

// SendTest renders a digest for an ad-hoc subscriber and sends exactly one
// real email to the given address. The subscriber store is never touched.
func (r *Runner) SendTest(ctx context.Context, to, region string, disciplines []string, today time.Time) (digest.Email, error) {
	to = strings.ToLower(strings.TrimSpace(to))

	email, _, err := r.generateAdHoc(ctx, "test", to, region, disciplines, today)
	if err != nil {
		return digest.Email{}, err
	}

	if err := r.sender.Send(ctx, to, email.Subject, email.HTML); err != nil {
		return digest.Email{}, fmt.Errorf("failed to send test email: %w", err)
	}
	return email, nil
}

func (r *Runner) generateAdHoc(ctx context.Context, id, email, region string, disciplines []string, today time.Time) (digest.Email, digest.Result, error) {
	corpus, err := r.source.Load(ctx)
	if err != nil {
		return digest.Email{}, digest.Result{}, fmt.Errorf("failed to load events: %w", err)
	}

	sub := subscriber.Subscriber{
		ID:          id,
		Email:       email,
		Region:      region,
		Disciplines: disciplines,
		Status:      subscriber.StatusActive,
	}

	result := digest.Filter(corpus, sub, digest.Day(today))
	return r.renderer.Run(sub, result, digest.Day(today)), result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the stored text stays valid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
