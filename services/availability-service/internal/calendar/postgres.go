package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/storage"
)

// EventStore is the subset of storage.EventRepository the local calendar needs.
type EventStore interface {
	ListOverlapping(ctx context.Context, calendarID string, from, to time.Time) ([]storage.Event, error)
	Create(ctx context.Context, e storage.Event) (string, error)
	Delete(ctx context.Context, calendarID, id string) error
}

// PostgresSource keeps the calendar in the service's own database.
type PostgresSource struct {
	store EventStore
}

func NewPostgresSource(store EventStore) *PostgresSource {
	return &PostgresSource{store: store}
}

// Fetch widens the query by a day on each side because all-day rows are
// stored at UTC midnights and only take a zone once the caller re-anchors them.
func (s *PostgresSource) Fetch(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]availability.BusyInterval, error) {
	events, err := s.store.ListOverlapping(ctx, calendarID, timeMin.Add(-24*time.Hour), timeMax.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	out := make([]availability.BusyInterval, 0, len(events))
	for _, e := range events {
		b := availability.BusyInterval{ID: e.ID, Start: e.Start, End: e.End, AllDay: e.AllDay}
		if touches(b, timeMin, timeMax) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *PostgresSource) CreateEvent(ctx context.Context, calendarID string, interval availability.BusyInterval, summary, description string) (string, error) {
	start, end := interval.Start, interval.End
	if interval.AllDay {
		start, end = utcDate(start), utcDate(end)
	}
	return s.store.Create(ctx, storage.Event{
		CalendarID:  calendarID,
		Start:       start,
		End:         end,
		AllDay:      interval.AllDay,
		Summary:     summary,
		Description: description,
	})
}

func (s *PostgresSource) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := s.store.Delete(ctx, calendarID, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("event %q: %w", eventID, availability.ErrEventNotFound)
	}
	return err
}

// utcDate keeps the calendar date of t and drops its zone.
func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
