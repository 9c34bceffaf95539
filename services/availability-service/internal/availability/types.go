package availability

import "time"

type SlotStatus int

const (
	Reserved SlotStatus = iota
	Open
	Closed
)

func (s SlotStatus) String() string {
	switch s {
	case Reserved:
		return "reserved"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// TimeSlot is one cell of a shift grid. Two slots are the same slot when they
// start at the same instant.
type TimeSlot struct {
	Start           time.Time
	End             time.Time
	Status          SlotStatus
	OutsideInterval bool
}

// TimePeriod is a free window confined to a single calendar day.
type TimePeriod struct {
	Start time.Time
	End   time.Time
}

func (p TimePeriod) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// BusyInterval is a committed range from the calendar provider. All-day
// intervals start at local midnight of their first date and end at local
// midnight after their last date.
type BusyInterval struct {
	ID     string
	Start  time.Time
	End    time.Time
	AllDay bool
}

func (b BusyInterval) In(loc *time.Location) BusyInterval {
	if b.AllDay {
		// Dates have no zone; keep the calendar date and re-anchor at local midnight.
		b.Start = dateIn(b.Start, loc)
		b.End = dateIn(b.End, loc)
		return b
	}
	b.Start = b.Start.In(loc)
	b.End = b.End.In(loc)
	return b
}

// Dates returns the calendar dates an all-day interval covers.
func (b BusyInterval) Dates() []time.Time {
	first := midnight(b.Start)
	last := midnight(b.End)
	if !last.After(first) {
		return []time.Time{first}
	}
	var out []time.Time
	for d := first; d.Before(last); d = nextDay(d) {
		out = append(out, d)
	}
	return out
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextDay(d time.Time) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd+1, 0, 0, 0, 0, d.Location())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
