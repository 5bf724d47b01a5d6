package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letsrace/digest/app/store"
)

// Store persists the subscriber collection as one JSON array document.
// Every operation reads the whole document and writes it back; concurrent
// writers are not coordinated, which the single-scheduled-run deployment
// accepts as a precondition.
type Store struct {
	docs store.DocumentStore
	key  string
	now  func() time.Time
}

func NewStore(docs store.DocumentStore, key string) *Store {
	return &Store{docs: docs, key: key, now: time.Now}
}

// NewStoreWithClock is used by tests to control timestamps.
func NewStoreWithClock(docs store.DocumentStore, key string, now func() time.Time) *Store {
	return &Store{docs: docs, key: key, now: now}
}

// Load returns all subscriber records. A missing document reads as an empty
// collection.
func (s *Store) Load(ctx context.Context) ([]Subscriber, error) {
	data, err := s.docs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if data == nil {
		return []Subscriber{}, nil
	}

	var subscribers []Subscriber
	if err := json.Unmarshal(data, &subscribers); err != nil {
		return nil, fmt.Errorf("failed to parse subscriber document: %w", err)
	}
	if subscribers == nil {
		subscribers = []Subscriber{}
	}
	return subscribers, nil
}

func (s *Store) Save(ctx context.Context, subscribers []Subscriber) error {
	data, err := json.MarshalIndent(subscribers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal subscribers: %w", err)
	}
	if err := s.docs.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save subscribers: %w", err)
	}
	return nil
}

// Subscribe upserts a record keyed by lowercased email. A repeat subscribe
// replaces the preferences in place and resurrects unsubscribed or bounced
// records to active; a recorded send error is cleared so the subscriber
// re-enters digest selection.
func (s *Store) Subscribe(ctx context.Context, email, region string, disciplines []string, sendDay string) (Subscriber, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	subscribers, err := s.Load(ctx)
	if err != nil {
		return Subscriber{}, err
	}

	now := s.now().UTC()

	for i := range subscribers {
		if strings.ToLower(subscribers[i].Email) != normalized {
			continue
		}

		subscribers[i].Status = StatusActive
		subscribers[i].Region = region
		subscribers[i].Disciplines = disciplines
		subscribers[i].SendDay = sendDay
		subscribers[i].UpdatedAt = now
		subscribers[i].LastError = nil
		if subscribers[i].CreatedAt.IsZero() {
			subscribers[i].CreatedAt = now
		}

		if err := s.Save(ctx, subscribers); err != nil {
			return Subscriber{}, err
		}
		return subscribers[i], nil
	}

	record := Subscriber{
		ID:          uuid.NewString(),
		Email:       normalized,
		Region:      region,
		Disciplines: disciplines,
		SendDay:     sendDay,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	subscribers = append(subscribers, record)

	if err := s.Save(ctx, subscribers); err != nil {
		return Subscriber{}, err
	}
	return record, nil
}

// Unsubscribe flips the record to unsubscribed. The record is kept; the
// boolean reports whether the subscriber existed.
func (s *Store) Unsubscribe(ctx context.Context, id string) (bool, error) {
	subscribers, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	for i := range subscribers {
		if subscribers[i].ID != id {
			continue
		}
		subscribers[i].Status = StatusUnsubscribed
		subscribers[i].UpdatedAt = s.now().UTC()
		if err := s.Save(ctx, subscribers); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}
