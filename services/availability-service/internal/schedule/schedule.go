package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidSchedule is returned for malformed work days and for lookups of a
// weekday the schedule has no entry for.
var ErrInvalidSchedule = errors.New("invalid work schedule")

const day = 24 * time.Hour

// WorkDay is the working window of one weekday, as offsets from local midnight.
type WorkDay struct {
	Weekday    time.Weekday
	Start      time.Duration
	End        time.Duration
	NonWorking bool
}

func (d WorkDay) validate() error {
	if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, d.Weekday)
	}
	if d.NonWorking {
		return nil
	}
	if d.Start < 0 || d.End > day || d.Start >= d.End {
		return fmt.Errorf("%w: %s window %s-%s", ErrInvalidSchedule, d.Weekday, d.Start, d.End)
	}
	if d.Start%time.Second != 0 || d.End%time.Second != 0 {
		return fmt.Errorf("%w: %s window %s-%s is not in whole seconds", ErrInvalidSchedule, d.Weekday, d.Start, d.End)
	}
	return nil
}

// Window returns the working window of date (any time on that calendar day)
// in loc. Offsets are applied as wall-clock time, so DST transition days keep
// their nominal opening hours.
func (d WorkDay) Window(date time.Time, loc *time.Location) (time.Time, time.Time) {
	date = date.In(loc)
	y, m, dd := date.Date()
	start := time.Date(y, m, dd, 0, 0, int(d.Start/time.Second), 0, loc)
	end := time.Date(y, m, dd, 0, 0, int(d.End/time.Second), 0, loc)
	return start, end
}

// WorkSchedule is an immutable weekly template.
type WorkSchedule struct {
	days map[time.Weekday]WorkDay
}

// New validates days and builds a schedule. Duplicated weekdays are rejected.
// Weekdays that are not listed are left undefined; looking them up fails with
// ErrInvalidSchedule.
func New(days []WorkDay) (WorkSchedule, error) {
	m := make(map[time.Weekday]WorkDay, len(days))
	for _, d := range days {
		if err := d.validate(); err != nil {
			return WorkSchedule{}, err
		}
		if _, dup := m[d.Weekday]; dup {
			return WorkSchedule{}, fmt.Errorf("%w: duplicate entry for %s", ErrInvalidSchedule, d.Weekday)
		}
		if d.NonWorking {
			d.Start, d.End = 0, 0
		}
		m[d.Weekday] = d
	}
	return WorkSchedule{days: m}, nil
}

// Default is Mon-Fri 09:00-17:00, weekends closed.
func Default() WorkSchedule {
	days := make([]WorkDay, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if wd == time.Saturday || wd == time.Sunday {
			days = append(days, WorkDay{Weekday: wd, NonWorking: true})
			continue
		}
		days = append(days, WorkDay{Weekday: wd, Start: 9 * time.Hour, End: 17 * time.Hour})
	}
	s, _ := New(days)
	return s
}

// Day returns the entry for wd.
func (s WorkSchedule) Day(wd time.Weekday) (WorkDay, error) {
	d, ok := s.days[wd]
	if !ok {
		return WorkDay{}, fmt.Errorf("%w: no entry for %s", ErrInvalidSchedule, wd)
	}
	return d, nil
}

// Days returns all entries ordered Sunday first.
func (s WorkSchedule) Days() []WorkDay {
	out := make([]WorkDay, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out
}

// With returns a copy of s where the entry for d.Weekday is replaced.
func (s WorkSchedule) With(d WorkDay) (WorkSchedule, error) {
	days := make([]WorkDay, 0, len(s.days)+1)
	for wd, existing := range s.days {
		if wd != d.Weekday {
			days = append(days, existing)
		}
	}
	days = append(days, d)
	return New(days)
}
