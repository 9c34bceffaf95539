package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/freebusy/libs/db"
)

var ErrNotFound = errors.New("not found")

// Event is a row of calendar_events, the local calendar used when no external
// provider is configured. All-day events are stored at UTC midnights.
type Event struct {
	ID          string
	CalendarID  string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Summary     string
	Description string
	CreatedAt   time.Time
}

type EventRepository struct {
	pool *db.Pool
}

func NewEventRepository(pool *db.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// ListOverlapping returns events of calendarID that intersect [from, to),
// ordered by start.
func (r *EventRepository) ListOverlapping(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, calendar_id, starts_at, ends_at, all_day, summary, description, created_at
		FROM calendar_events
		WHERE calendar_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC, id ASC
	`, calendarID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.CalendarID, &e.Start, &e.End, &e.AllDay, &e.Summary, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *EventRepository) Create(ctx context.Context, e Event) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_events (id, calendar_id, starts_at, ends_at, all_day, summary, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, e.CalendarID, e.Start, e.End, e.AllDay, e.Summary, e.Description)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes one event. Unknown or malformed ids yield ErrNotFound.
func (r *EventRepository) Delete(ctx context.Context, calendarID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	var deleted string
	err := r.pool.QueryRow(ctx, `
		DELETE FROM calendar_events
		WHERE calendar_id = $1 AND id = $2
		RETURNING id::text
	`, calendarID, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
