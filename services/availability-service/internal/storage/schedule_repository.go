package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/freebusy/libs/db"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// WorkingHours is one row of work_days.
type WorkingHours struct {
	Weekday     int
	IsWorking   bool
	StartMinute int
	EndMinute   int
}

// Load returns the stored schedule of calendarID. Weekdays without a row keep
// the default Mon-Fri 09:00-17:00 entry.
func (r *ScheduleRepository) Load(ctx context.Context, calendarID string) (schedule.WorkSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_working, start_minute, end_minute
		FROM work_days
		WHERE calendar_id = $1
		ORDER BY weekday ASC
	`, calendarID)
	if err != nil {
		return schedule.WorkSchedule{}, err
	}
	defer rows.Close()

	var stored []WorkingHours
	for rows.Next() {
		var wh WorkingHours
		if err := rows.Scan(&wh.Weekday, &wh.IsWorking, &wh.StartMinute, &wh.EndMinute); err != nil {
			return schedule.WorkSchedule{}, err
		}
		stored = append(stored, wh)
	}
	if rows.Err() != nil {
		return schedule.WorkSchedule{}, rows.Err()
	}
	return BuildSchedule(stored)
}

func (r *ScheduleRepository) Upsert(ctx context.Context, calendarID string, d schedule.WorkDay) error {
	wh := FromWorkDay(d)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO work_days (calendar_id, weekday, is_working, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (calendar_id, weekday) DO UPDATE
		SET is_working = EXCLUDED.is_working,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			updated_at = now()
	`, calendarID, wh.Weekday, wh.IsWorking, wh.StartMinute, wh.EndMinute)
	return err
}

// BuildSchedule overlays stored rows on the default schedule.
func BuildSchedule(stored []WorkingHours) (schedule.WorkSchedule, error) {
	ws := schedule.Default()
	for _, wh := range stored {
		d, err := wh.WorkDay()
		if err != nil {
			return schedule.WorkSchedule{}, err
		}
		if ws, err = ws.With(d); err != nil {
			return schedule.WorkSchedule{}, err
		}
	}
	return ws, nil
}

func (wh WorkingHours) WorkDay() (schedule.WorkDay, error) {
	if wh.Weekday < 0 || wh.Weekday > 6 {
		return schedule.WorkDay{}, fmt.Errorf("%w: stored weekday %d", schedule.ErrInvalidSchedule, wh.Weekday)
	}
	return schedule.WorkDay{
		Weekday:    time.Weekday(wh.Weekday),
		Start:      time.Duration(wh.StartMinute) * time.Minute,
		End:        time.Duration(wh.EndMinute) * time.Minute,
		NonWorking: !wh.IsWorking,
	}, nil
}

func FromWorkDay(d schedule.WorkDay) WorkingHours {
	wh := WorkingHours{Weekday: int(d.Weekday), IsWorking: !d.NonWorking}
	if wh.IsWorking {
		wh.StartMinute = int(d.Start / time.Minute)
		wh.EndMinute = int(d.End / time.Minute)
	}
	return wh
}
