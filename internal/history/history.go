package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codeberg.org/snonux/polyglot/internal"
	"codeberg.org/snonux/polyglot/internal/storage"
)

var (
	// ErrDuplicateID is returned when appending a record whose ID is already stored
	ErrDuplicateID = errors.New("history record id already exists")

	// ErrNotFound is returned when deleting an unknown record
	ErrNotFound = errors.New("history record not found")
)

// Record is one completed translation
type Record struct {
	ID           string `json:"id"`
	FromLanguage string `json:"fromLanguage"`
	ToLanguage   string `json:"toLanguage"`
	Text         string `json:"text"`
	Translation  string `json:"translation"`
	CreatedAt    int64  `json:"createdAt"` // Unix milliseconds
}

// NewRecord creates a record with a fresh random ID
func NewRecord(from, to, text, translation string, at time.Time) Record {
	return Record{
		ID:           uuid.NewString(),
		FromLanguage: from,
		ToLanguage:   to,
		Text:         text,
		Translation:  translation,
		CreatedAt:    internal.TimestampMillis(at),
	}
}

// Time returns CreatedAt as a time.Time
func (r Record) Time() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Store is the persisted, newest-first list of records
type Store struct {
	value *storage.Value[[]Record]
}

// NewStore loads the history document from backend
func NewStore(ctx context.Context, backend storage.Backend) (*Store, error) {
	value, err := storage.Load(ctx, backend, storage.KeyHistory, []Record{})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &Store{value: value}, nil
}

// Records returns a copy of all records, newest first
func (s *Store) Records() []Record {
	return cloneRecords(s.value.Get())
}

// Len returns the number of stored records
func (s *Store) Len() int {
	return len(s.value.Get())
}

// Append prepends r to the list
func (s *Store) Append(ctx context.Context, r Record) error {
	err := s.value.Update(ctx, func(prev []Record) ([]Record, error) {
		for _, existing := range prev {
			if existing.ID == r.ID {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
			}
		}
		next := make([]Record, 0, len(prev)+1)
		next = append(next, r)
		return append(next, prev...), nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Replace overwrites the whole list; a nil or empty list clears the history
func (s *Store) Replace(ctx context.Context, records []Record) error {
	next := cloneRecords(records)
	if next == nil {
		next = []Record{}
	}
	if err := s.value.Set(ctx, next); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// Delete removes the record with the given id
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.value.Update(ctx, func(prev []Record) ([]Record, error) {
		next := make([]Record, 0, len(prev))
		for _, r := range prev {
			if r.ID != id {
				next = append(next, r)
			}
		}
		if len(next) == len(prev) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// Subscribe registers fn to receive a copy of the list after every change
func (s *Store) Subscribe(fn func([]Record)) func() {
	return s.value.Subscribe(func(records []Record) {
		fn(cloneRecords(records))
	})
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
