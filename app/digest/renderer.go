package digest

import (
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/letsrace/digest/app/events"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/token"
)

var titleCaser = cases.Title(language.English)

// Renderer produces the digest email: a subject line and a self-contained
// HTML document with inline styles and no external assets. Every
// interpolated value is escaped; event names and venues come from
// third-party feeds.
type Renderer struct {
	websiteURL string
	tokens     *token.Issuer
}

func NewRenderer(websiteURL string, tokens *token.Issuer) *Renderer {
	return &Renderer{websiteURL: websiteURL, tokens: tokens}
}

func (r *Renderer) Run(sub subscriber.Subscriber, result Result, today time.Time) Email {
	return Email{
		Subject:    r.subject(sub),
		HTML:       r.body(sub, result, today),
		HasContent: result.HasContent(),
	}
}

func (r *Renderer) subject(sub subscriber.Subscriber) string {
	disciplines := sub.Disciplines
	if len(disciplines) > 2 {
		disciplines = disciplines[:2]
	}
	return fmt.Sprintf("LetsRace.cc: %s %s races – new & upcoming", sub.Region, strings.Join(disciplines, " & "))
}

func (r *Renderer) body(sub subscriber.Subscriber, result Result, today time.Time) string {
	var buf strings.Builder

	regionLabel := html.EscapeString(sub.Region)
	disciplinesLabel := html.EscapeString(strings.Join(sub.Disciplines, ", "))

	buf.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>LetsRace.cc Weekly Digest</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px;">
    <h1 style="margin: 0; color: #0066cc; font-size: 24px;">LetsRace.cc</h1>
  </div>
`)

	fmt.Fprintf(&buf, "\n  <p>Hi %s,</p>\n", html.EscapeString(friendlyName(sub.Email)))
	fmt.Fprintf(&buf, "\n  <p>Here's your weekly digest for %s %s races.</p>\n", regionLabel, disciplinesLabel)

	fmt.Fprintf(&buf, "\n  <h2 style=\"color: #0066cc; font-size: 18px; margin-top: 30px; margin-bottom: 15px;\">New this week in %s</h2>\n", regionLabel)
	r.writeEventList(&buf, result.NewThisWeek, "No newly added events this week for your filters.")

	buf.WriteString("\n  <h2 style=\"color: #0066cc; font-size: 18px; margin-top: 30px; margin-bottom: 15px;\">Coming up in the next 6 weeks</h2>\n")
	r.writeEventList(&buf, result.Upcoming, "No upcoming events in the next 6 weeks for your filters.")

	buf.WriteString(`
  <div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 14px; color: #666;">
`)
	fmt.Fprintf(&buf, "    <p style=\"margin: 0.5em 0;\">\n      <a href=\"%s\" style=\"color: #0066cc; text-decoration: none;\">Explore all upcoming events → letsrace.cc</a>\n    </p>\n", html.EscapeString(r.websiteURL))
	buf.WriteString("    <p style=\"margin: 0.5em 0;\">\n      You're receiving this because you subscribed to the LetsRace.cc weekly digest.\n    </p>\n")
	fmt.Fprintf(&buf, "    <p style=\"margin: 0.5em 0;\">\n      <a href=\"%s\" style=\"color: #0066cc; text-decoration: underline;\">Unsubscribe instantly</a>\n    </p>\n", html.EscapeString(r.unsubscribeURL(sub)))
	fmt.Fprintf(&buf, "    <p style=\"margin: 0.5em 0;\">\n      <a href=\"%s/pages/privacy.html\" style=\"color: #666; text-decoration: underline;\">Privacy info</a>\n    </p>\n", html.EscapeString(r.websiteURL))
	buf.WriteString("  </div>\n</body>\n</html>")

	return buf.String()
}

func (r *Renderer) writeEventList(buf *strings.Builder, list []events.Event, emptyMessage string) {
	if len(list) == 0 {
		fmt.Fprintf(buf, "  <p style=\"color: #666; margin: 1em 0;\">%s</p>\n", html.EscapeString(emptyMessage))
		return
	}

	buf.WriteString("  <ul style=\"list-style: none; padding: 0;\">\n")
	for _, ev := range list {
		name := html.EscapeString(ev.Name)
		if ev.URL != "" {
			name = fmt.Sprintf("<a href=\"%s\" style=\"color: #0066cc; text-decoration: none;\">%s</a>", html.EscapeString(ev.URL), name)
		}

		venueText := ""
		if ev.Venue != "" {
			venueText = " — " + html.EscapeString(ev.Venue)
		}

		fmt.Fprintf(buf, "    <li style=\"margin: 0.5em 0;\">\n      <strong>%s</strong> — %s%s\n    </li>\n",
			html.EscapeString(formatEventDate(ev.StartDate)), name, venueText)
	}
	buf.WriteString("  </ul>\n")
}

func (r *Renderer) unsubscribeURL(sub subscriber.Subscriber) string {
	tok, err := r.tokens.Generate(sub.ID, sub.Email)
	if err != nil {
		// The digest must render regardless; the unsubscribe page handles
		// a missing token with its generic failure message.
		slog.Error("Failed to generate unsubscribe token", "subscriber", sub.ID, "error", err)
		tok = ""
	}
	return fmt.Sprintf("%s/pages/email-unsubscribed.html?token=%s", r.websiteURL, url.QueryEscape(tok))
}

// formatEventDate renders "Fri 20 Jun 2025"; an unparseable date falls back
// to the raw string.
func formatEventDate(value string) string {
	day, ok := ParseDay(value)
	if !ok {
		return value
	}
	return day.Format("Mon 2 Jan 2006")
}

// friendlyName derives a greeting from the email local part: separators
// become spaces and the first word is capitalized.
func friendlyName(email string) string {
	localPart, _, _ := strings.Cut(email, "@")
	if localPart == "" {
		return "friend"
	}
	cleaned := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(localPart)
	firstWord, _, _ := strings.Cut(cleaned, " ")
	if firstWord == "" {
		return "friend"
	}
	return titleCaser.String(firstWord)
}
