package events

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// rawEntry is the keyed-object event form. Older category files use
// type/date/last_updated, newer ones discipline/start_date/added_at; both
// are accepted.
type rawEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Discipline  string `json:"discipline"`
	Region      string `json:"region"`
	Venue       string `json:"venue"`
	URL         string `json:"url"`
	Date        string `json:"date"`
	StartDate   string `json:"start_date"`
	LastUpdated string `json:"last_updated"`
	AddedAt     string `json:"added_at"`
}

// Positional layout of the array event form:
// [id, name, discipline, region, venue, start_date, added_at]
const positionalFieldCount = 7

// DecodeEvents decodes one category document. The document is either a bare
// JSON array of entries or an object wrapping the array under "events"; each
// entry is either a keyed object or a positional array. Entries lacking id,
// name or start date after normalization are dropped.
func DecodeEvents(data []byte) ([]Event, error) {
	var entries []json.RawMessage

	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapper struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("document is neither an event array nor an events wrapper: %w", err)
		}
		entries = wrapper.Events
	}

	events := make([]Event, 0, len(entries))
	for _, entry := range entries {
		event, ok := decodeEntry(entry)
		if !ok {
			continue
		}
		if event.ID == "" || event.Name == "" || event.StartDate == "" {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func decodeEntry(raw json.RawMessage) (Event, bool) {
	var entry rawEntry
	if err := json.Unmarshal(raw, &entry); err == nil {
		return Event{
			ID:         entry.ID,
			Name:       entry.Name,
			Discipline: cmp.Or(entry.Type, entry.Discipline, "Road"),
			Region:     entry.Region,
			Venue:      entry.Venue,
			URL:        entry.URL,
			StartDate:  cmp.Or(entry.Date, entry.StartDate),
			AddedAt:    cmp.Or(entry.LastUpdated, entry.AddedAt, entry.Date),
		}, true
	}

	var fields []string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Event{}, false
	}
	for len(fields) < positionalFieldCount {
		fields = append(fields, "")
	}

	return Event{
		ID:         fields[0],
		Name:       fields[1],
		Discipline: cmp.Or(fields[2], "Road"),
		Region:     fields[3],
		Venue:      fields[4],
		StartDate:  fields[5],
		AddedAt:    cmp.Or(fields[6], fields[5]),
	}, true
}
