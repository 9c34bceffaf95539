package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

func TestFreePeriods_EmptyDayIsWholeWindow(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1), nil)
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got, period(at(monday, 9, 0), at(monday, 17, 0)))
}

func TestFreePeriods_SplitsAroundEvent(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1),
		[]BusyInterval{busy(at(monday, 12, 0), at(monday, 13, 0))})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 12, 0)),
		period(at(monday, 13, 0), at(monday, 17, 0)),
	)
}

func TestFreePeriods_NestedEvents(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1), []BusyInterval{
		busy(at(monday, 10, 0), at(monday, 14, 0)),
		busy(at(monday, 11, 0), at(monday, 12, 0)),
	})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 10, 0)),
		period(at(monday, 14, 0), at(monday, 17, 0)),
	)
}

func TestFreePeriods_OverlappingEvents(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1), []BusyInterval{
		busy(at(monday, 11, 0), at(monday, 13, 0)),
		busy(at(monday, 10, 0), at(monday, 12, 0)),
	})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 10, 0)),
		period(at(monday, 13, 0), at(monday, 17, 0)),
	)
}

func TestFreePeriods_FullyCoveredDay(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1),
		[]BusyInterval{busy(at(monday, 8, 0), at(monday, 18, 0))})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got)
}

func TestFreePeriods_EventPastWindowEnd(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1),
		[]BusyInterval{busy(at(monday, 16, 0), at(monday, 19, 0))})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got, period(at(monday, 9, 0), at(monday, 16, 0)))
}

func TestFreePeriods_AllDayEventBlocksDate(t *testing.T) {
	tuesday := addDays(monday, 1)
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 3),
		[]BusyInterval{allDay(tuesday)})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	wednesday := addDays(monday, 2)
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 17, 0)),
		period(at(wednesday, 9, 0), at(wednesday, 17, 0)),
	)
}

func TestFreePeriods_AllDayDateIgnoresZone(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	local := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)
	// Provider dates arrive as UTC midnights; the date itself must survive.
	got, err := FreePeriods(schedule.Default(), loc, local, addDays(local, 2),
		[]BusyInterval{allDay(monday)})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	tuesday := addDays(local, 1)
	assertPeriods(t, got, period(at(tuesday, 9, 0), at(tuesday, 17, 0)))
}

func TestFreePeriods_MultiDayTimedEvent(t *testing.T) {
	tuesday := addDays(monday, 1)
	got, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 2),
		[]BusyInterval{busy(at(monday, 15, 0), at(tuesday, 10, 0))})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 15, 0)),
		period(at(tuesday, 10, 0), at(tuesday, 17, 0)),
	)
}

func TestFreePeriods_SkipsWeekend(t *testing.T) {
	saturday := addDays(monday, 5)
	got, err := FreePeriods(schedule.Default(), time.UTC, saturday, addDays(saturday, 2), nil)
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got)
}

func TestFreePeriods_ClipsToRange(t *testing.T) {
	got, err := FreePeriods(schedule.Default(), time.UTC, at(monday, 11, 0), at(monday, 15, 30), nil)
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got, period(at(monday, 11, 0), at(monday, 15, 30)))
}

func TestFreePeriods_ResultInServiceZone(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*3600)
	local := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)
	// 12:00-13:00 NZDT expressed in UTC.
	event := busy(time.Date(2026, 1, 4, 23, 0, 0, 0, time.UTC), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	got, err := FreePeriods(schedule.Default(), loc, local, addDays(local, 1), []BusyInterval{event})
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(local, 9, 0), at(local, 12, 0)),
		period(at(local, 13, 0), at(local, 17, 0)),
	)
	for _, p := range got {
		if p.Start.Location() != loc || p.End.Location() != loc {
			t.Fatalf("period %v not expressed in service zone", formatPeriods([]TimePeriod{p}))
		}
	}
}

func TestFreePeriods_Idempotent(t *testing.T) {
	events := []BusyInterval{
		busy(at(monday, 10, 0), at(monday, 11, 30)),
		busy(at(addDays(monday, 1), 16, 0), at(addDays(monday, 1), 18, 0)),
		allDay(addDays(monday, 3)),
	}
	first, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 7), events)
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	second, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 7), events)
	if err != nil {
		t.Fatalf("FreePeriods failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between calls: %v vs %v", formatPeriods(first), formatPeriods(second))
	}
	for i, p := range first {
		if !p.End.After(p.Start) {
			t.Fatalf("empty period at %d", i)
		}
		if p.Start.Hour() < 9 || (p.End.Hour() >= 17 && p.End.Minute() > 0) {
			t.Fatalf("period %v outside working hours", formatPeriods([]TimePeriod{p}))
		}
		if i > 0 && first[i-1].End.After(p.Start) {
			t.Fatalf("periods overlap at %d", i)
		}
	}
}

func TestFreePeriods_MissingWeekday(t *testing.T) {
	ws, err := schedule.New([]schedule.WorkDay{{Weekday: time.Monday, Start: 9 * time.Hour, End: 17 * time.Hour}})
	if err != nil {
		t.Fatalf("schedule.New failed: %v", err)
	}
	_, err = FreePeriods(ws, time.UTC, monday, addDays(monday, 2), nil)
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestFreePeriods_InvalidInputs(t *testing.T) {
	if _, err := FreePeriods(schedule.Default(), time.UTC, monday, monday, nil); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for empty range, got %v", err)
	}
	_, err := FreePeriods(schedule.Default(), time.UTC, monday, addDays(monday, 1),
		[]BusyInterval{busy(at(monday, 12, 0), at(monday, 11, 0))})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for reversed event, got %v", err)
	}
}
