package availability

import (
	"testing"
	"time"
)

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func addDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

func assertContiguous(t *testing.T, slots []TimeSlot) {
	t.Helper()
	for i, s := range slots {
		if !s.End.After(s.Start) {
			t.Fatalf("slot %d has non-positive length: %s-%s", i, s.Start.Format("15:04"), s.End.Format("15:04"))
		}
		if i == 0 {
			continue
		}
		if !slots[i-1].Start.Before(s.Start) {
			t.Fatalf("slots not strictly sorted at %d", i)
		}
		if !slots[i-1].End.Equal(s.Start) {
			t.Fatalf("gap between slot %d (%s) and %d (%s)", i-1, slots[i-1].End.Format("15:04"), i, s.Start.Format("15:04"))
		}
	}
}

func assertPeriods(t *testing.T, got []TimePeriod, want ...TimePeriod) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d periods, got %d: %v", len(want), len(got), formatPeriods(got))
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("period %d: expected %s, got %s", i, formatPeriods(want[i:i+1]), formatPeriods(got[i:i+1]))
		}
	}
}

func formatPeriods(ps []TimePeriod) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Start.Format("Mon 15:04")+"-"+p.End.Format("15:04"))
	}
	return out
}

func period(start, end time.Time) TimePeriod {
	return TimePeriod{Start: start, End: end}
}

func busy(start, end time.Time) BusyInterval {
	return BusyInterval{Start: start, End: end}
}

func allDay(date time.Time) BusyInterval {
	return BusyInterval{Start: date, End: addDays(date, 1), AllDay: true}
}
