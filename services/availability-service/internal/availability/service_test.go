package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

type fakeSource struct {
	events  []BusyInterval
	err     error
	fetches int

	created     []BusyInterval
	summaries   []string
	description string
	deleted     []string
}

func (f *fakeSource) Fetch(_ context.Context, _ string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	var out []BusyInterval
	for _, e := range f.events {
		if e.Start.Before(timeMax) && e.End.After(timeMin) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) CreateEvent(_ context.Context, _ string, interval BusyInterval, summary, description string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, interval)
	f.summaries = append(f.summaries, summary)
	f.description = description
	return "evt-1", nil
}

func (f *fakeSource) DeleteEvent(_ context.Context, _ string, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func newTestService(t *testing.T, src Source, loc *time.Location) *Service {
	t.Helper()
	svc, err := NewService(src, Options{CalendarID: "primary", Location: loc}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestNewService_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := map[string]struct {
		src  Source
		opts Options
	}{
		"no source":       {nil, Options{CalendarID: "primary", Location: time.UTC}},
		"no location":     {&fakeSource{}, Options{CalendarID: "primary"}},
		"no calendar":     {&fakeSource{}, Options{Location: time.UTC}},
		"negative cutoff": {&fakeSource{}, Options{CalendarID: "primary", Location: time.UTC, SameDayCutoff: -time.Hour}},
	}
	for name, tc := range cases {
		if _, err := NewService(tc.src, tc.opts, logger); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}

	svc, err := NewService(&fakeSource{}, Options{CalendarID: "primary", Location: time.UTC}, logger)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.SlotInterval() != 15*time.Minute {
		t.Fatalf("expected default slot interval, got %s", svc.SlotInterval())
	}
}

func TestLoadLocation_Unknown(t *testing.T) {
	if _, err := LoadLocation("Not/AZone"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestService_FreeTimeSlots(t *testing.T) {
	src := &fakeSource{events: []BusyInterval{busy(at(monday, 12, 0), at(monday, 13, 0))}}
	svc := newTestService(t, src, time.UTC)

	got, err := svc.FreeTimeSlots(context.Background(), schedule.Default(), monday, addDays(monday, 1))
	if err != nil {
		t.Fatalf("FreeTimeSlots failed: %v", err)
	}
	assertPeriods(t, got,
		period(at(monday, 9, 0), at(monday, 12, 0)),
		period(at(monday, 13, 0), at(monday, 17, 0)),
	)
	if src.fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.fetches)
	}
}

func TestService_BookedOutDaysFetchesOnce(t *testing.T) {
	src := &fakeSource{events: []BusyInterval{busy(at(monday, 9, 0), at(monday, 16, 50))}}
	svc := newTestService(t, src, time.UTC)

	days, err := svc.BookedOutDays(context.Background(), schedule.Default(), monday, addDays(monday, 7), 30*time.Minute)
	if err != nil {
		t.Fatalf("BookedOutDays failed: %v", err)
	}
	assertDays(t, days, monday, addDays(monday, 5), addDays(monday, 6))
	if src.fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.fetches)
	}
}

func TestService_AvailableStarts(t *testing.T) {
	src := &fakeSource{events: []BusyInterval{busy(at(monday, 9, 30), at(monday, 9, 45))}}
	svc := newTestService(t, src, time.UTC)

	starts, err := svc.AvailableStarts(context.Background(), at(monday, 9, 0), at(monday, 10, 0), 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("AvailableStarts failed: %v", err)
	}
	if len(starts) != 1 || !starts[0].Start.Equal(at(monday, 9, 0)) {
		t.Fatalf("unexpected starts %v", starts)
	}
}

func TestService_ShiftGridEmptyShiftSkipsFetch(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(t, src, time.UTC)

	grid, err := svc.ShiftGrid(context.Background(), at(monday, 9, 0), at(monday, 9, 0), 0)
	if err != nil {
		t.Fatalf("ShiftGrid failed: %v", err)
	}
	if len(grid) != 0 || src.fetches != 0 {
		t.Fatalf("expected empty grid without fetch, got %d slots and %d fetches", len(grid), src.fetches)
	}
}

func TestService_ProviderFailureIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newTestService(t, &fakeSource{err: boom}, time.UTC)

	_, err := svc.FreeTimeSlots(context.Background(), schedule.Default(), monday, addDays(monday, 1))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Op != "fetch" || !errors.Is(err, boom) {
		t.Fatalf("unexpected provider error %v", err)
	}
}

func TestService_RejectsReversedProviderEvent(t *testing.T) {
	src := &fakeSource{events: []BusyInterval{{ID: "reversed", Start: at(monday, 12, 0), End: at(monday, 11, 0)}}}
	svc := newTestService(t, src, time.UTC)

	_, err := svc.Events(context.Background(), monday, addDays(monday, 1))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestService_CreateEvent(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	src := &fakeSource{}
	svc := newTestService(t, src, loc)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 8, 30, 0, 0, time.UTC) }

	id, err := svc.CreateEvent(context.Background(), Booking{
		Start:     at(monday, 9, 0),
		End:       at(monday, 10, 0),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+44 20 7946 0000",
		Services:  []string{"Cut", "Colour"},
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if id != "evt-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if got := src.summaries[0]; got != "Ada Lovelace (+44 20 7946 0000) Cut, Colour" {
		t.Fatalf("unexpected summary %q", got)
	}
	if !strings.HasPrefix(src.description, "Booked at Friday, 2 January 2026, 09:30:00\n") {
		t.Fatalf("unexpected description %q", src.description)
	}
	if !strings.HasSuffix(src.description, "\nada@example.com") {
		t.Fatalf("description should end with the email, got %q", src.description)
	}
	if src.created[0].Start.Location() != loc {
		t.Fatal("created interval not normalized to the service zone")
	}
}

func TestService_CreateEventRejectsEmptyBooking(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(t, src, time.UTC)
	_, err := svc.CreateEvent(context.Background(), Booking{Start: at(monday, 9, 0), End: at(monday, 9, 0)})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if len(src.created) != 0 {
		t.Fatal("provider should not be called")
	}
}

func TestService_DeleteEventNotFound(t *testing.T) {
	svc := newTestService(t, &fakeSource{err: ErrEventNotFound}, time.UTC)

	err := svc.DeleteEvent(context.Background(), "missing")
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Op != "delete" {
		t.Fatalf("expected delete ProviderError, got %v", err)
	}
}
