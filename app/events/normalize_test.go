package events

import (
	"testing"
)

func TestDecodeEventsKeyedObjects(t *testing.T) {
	data := []byte(`[
		{"id":"e1","name":"Kelso Road Race","type":"Road","region":"Scotland",
		 "venue":"Kelso","url":"https://example.com/e1",
		 "date":"2025-06-20","last_updated":"2025-06-12"},
		{"id":"e2","name":"Meadowbank Track League","discipline":"Track","region":"Scotland",
		 "start_date":"2025-06-25","added_at":"2025-06-10"}
	]`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	if events[0].Discipline != "Road" || events[0].StartDate != "2025-06-20" || events[0].AddedAt != "2025-06-12" {
		t.Errorf("Legacy field aliases not applied: %+v", events[0])
	}
	if events[1].Discipline != "Track" || events[1].StartDate != "2025-06-25" || events[1].AddedAt != "2025-06-10" {
		t.Errorf("Current field names not applied: %+v", events[1])
	}
}

func TestDecodeEventsWrapperObject(t *testing.T) {
	data := []byte(`{"events":[{"id":"e1","name":"Crit","start_date":"2025-06-20"}]}`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Fatalf("Expected the wrapped event, got %+v", events)
	}
}

func TestDecodeEventsPositionalArrays(t *testing.T) {
	data := []byte(`[
		["e1","Kelso Road Race","Road","Scotland","Kelso","2025-06-20","2025-06-12"],
		["e2","Short Entry","","Wales","","2025-06-22"]
	]`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	if events[0].Venue != "Kelso" || events[0].AddedAt != "2025-06-12" {
		t.Errorf("Positional fields misaligned: %+v", events[0])
	}

	// Short arrays are padded; missing discipline defaults, missing added_at
	// falls back to the start date.
	if events[1].Discipline != "Road" {
		t.Errorf("Expected default discipline Road, got %q", events[1].Discipline)
	}
	if events[1].AddedAt != "2025-06-22" {
		t.Errorf("Expected added_at to fall back to start date, got %q", events[1].AddedAt)
	}
}

func TestDecodeEventsDefaultsAndFallbacks(t *testing.T) {
	data := []byte(`[{"id":"e1","name":"Club Run","region":"South","date":"2025-07-01"}]`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Discipline != "Road" {
		t.Errorf("Expected default discipline Road, got %q", events[0].Discipline)
	}
	if events[0].AddedAt != "2025-07-01" {
		t.Errorf("Expected added_at fallback to date, got %q", events[0].AddedAt)
	}
}

func TestDecodeEventsStartDateDoesNotBackfillAddedAt(t *testing.T) {
	data := []byte(`[{"id":"e1","name":"Summer Crit","start_date":"2025-07-01"}]`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	// An entry carrying only start_date has no addition timestamp; inventing
	// one would make every such event count as newly added.
	if events[0].AddedAt != "" {
		t.Errorf("Expected empty added_at, got %q", events[0].AddedAt)
	}
	if events[0].StartDate != "2025-07-01" {
		t.Errorf("Expected start date preserved, got %q", events[0].StartDate)
	}
}

func TestDecodeEventsDropsIncompleteEntries(t *testing.T) {
	data := []byte(`[
		{"id":"","name":"No ID","start_date":"2025-06-20"},
		{"id":"e2","name":"","start_date":"2025-06-20"},
		{"id":"e3","name":"No Date"},
		{"id":"e4","name":"Complete","start_date":"2025-06-20"},
		42
	]`)

	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e4" {
		t.Fatalf("Expected only the complete entry to survive, got %+v", events)
	}
}

func TestDecodeEventsRejectsNonArrayDocument(t *testing.T) {
	if _, err := DecodeEvents([]byte(`"not an array"`)); err == nil {
		t.Error("Expected an error for a non-array document")
	}

	// An object without an events key decodes to an empty corpus, not an
	// error, so a category file with a different shape degrades quietly.
	events, err := DecodeEvents([]byte(`{"items":[]}`))
	if err != nil {
		t.Errorf("Unexpected error for object without events key: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected empty corpus, got %+v", events)
	}
}
