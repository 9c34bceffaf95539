package availability

import (
	"context"
	"time"
)

// Source is the boundary to the external calendar. Implementations own
// authentication, transport and retries.
type Source interface {
	// Fetch returns busy intervals overlapping [timeMin, timeMax).
	Fetch(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, calendarID string, interval BusyInterval, summary, description string) (string, error)
	// DeleteEvent returns ErrEventNotFound when the id is unknown.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
