package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
)

func icsDoc(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//freebusy//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

var weekOf = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestParseBusy(t *testing.T) {
	doc := icsDoc(
		"BEGIN:VEVENT", "UID:timed", "DTSTART:20260105T120000Z", "DTEND:20260105T130000Z", "SUMMARY:Lunch", "END:VEVENT",
		"BEGIN:VEVENT", "UID:allday", "DTSTART;VALUE=DATE:20260106", "DTEND;VALUE=DATE:20260107", "SUMMARY:Holiday", "END:VEVENT",
		"BEGIN:VEVENT", "UID:cancelled", "DTSTART:20260105T150000Z", "DTEND:20260105T160000Z", "STATUS:CANCELLED", "END:VEVENT",
		"BEGIN:VEVENT", "UID:free", "DTSTART:20260105T160000Z", "DTEND:20260105T170000Z", "TRANSP:TRANSPARENT", "END:VEVENT",
		"BEGIN:VEVENT", "UID:outside", "DTSTART:20260301T090000Z", "DTEND:20260301T100000Z", "END:VEVENT",
	)

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %+v", len(got), got)
	}
	if got[0].ID != "timed" || got[0].AllDay || !got[0].Start.Equal(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timed interval %+v", got[0])
	}
	if got[1].ID != "allday" || !got[1].AllDay || !got[1].End.Equal(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected all-day interval %+v", got[1])
	}
}

func TestParseBusyFloatingTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	doc := icsDoc("BEGIN:VEVENT", "UID:floating", "DTSTART:20260105T090000", "DTEND:20260105T100000", "END:VEVENT")

	got, err := ParseBusy(strings.NewReader(doc), loc, weekOf, weekOf.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 07:00Z, got %+v", got)
	}
}

func TestParseBusyTZID(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	doc := icsDoc("BEGIN:VEVENT", "UID:tz", "DTSTART;TZID=America/New_York:20260105T090000", "DTEND;TZID=America/New_York:20260105T093000", "END:VEVENT")

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(time.Date(2026, 1, 5, 9, 0, 0, 0, ny)) {
		t.Fatalf("unexpected interval %+v", got)
	}
}

func TestParseBusyExpandsWeeklyRule(t *testing.T) {
	doc := icsDoc(
		"BEGIN:VEVENT", "UID:standup",
		"DTSTART:20260105T090000Z", "DTEND:20260105T091500Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20260112T090000Z",
		"END:VEVENT",
	)

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 60))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	want := []time.Time{
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i, w := range want {
		if !got[i].Start.Equal(w) || got[i].End.Sub(got[i].Start) != 15*time.Minute {
			t.Fatalf("occurrence %d: got %s-%s", i, got[i].Start, got[i].End)
		}
	}
}

func TestParseBusyDailyRuleStopsAtHorizon(t *testing.T) {
	doc := icsDoc("BEGIN:VEVENT", "UID:daily", "DTSTART:20260101T080000Z", "DTEND:20260101T083000Z", "RRULE:FREQ=DAILY", "END:VEVENT")

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences inside the range, got %d", len(got))
	}
}

func TestParseBusyRejectsUnsupportedRule(t *testing.T) {
	doc := icsDoc("BEGIN:VEVENT", "UID:odd", "DTSTART:20260105T090000Z", "DTEND:20260105T100000Z", "RRULE:FREQ=HOURLY", "END:VEVENT")
	if _, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 1)); err == nil {
		t.Fatal("expected error for unsupported FREQ")
	}
}

func TestParseBusyExpandsWeeklyByDay(t *testing.T) {
	doc := icsDoc(
		"BEGIN:VEVENT", "UID:mwf",
		"DTSTART:20240304T100000Z", "DTEND:20240304T110000Z",
		"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=6",
		"END:VEVENT",
	)
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	want := []time.Time{
		time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if !got[i].Start.Equal(w) || got[i].End.Sub(got[i].Start) != time.Hour {
			t.Fatalf("occurrence %d: got %s-%s", i, got[i].Start, got[i].End)
		}
	}

	got, err = ParseBusy(strings.NewReader(doc), time.UTC, from, from.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 6 || !got[5].Start.Equal(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected COUNT=6 to end on Mar 15, got %d occurrences", len(got))
	}
}

func TestParseBusyByDayWithInterval(t *testing.T) {
	doc := icsDoc(
		"BEGIN:VEVENT", "UID:biweekly",
		"DTSTART:20260106T090000Z", "DTEND:20260106T093000Z",
		"RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH",
		"END:VEVENT",
	)

	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 21))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	want := []time.Time{
		time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 22, 9, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if !got[i].Start.Equal(w) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, w, got[i].Start)
		}
	}
}

func TestParseBusyRejectsUnsupportedRuleParts(t *testing.T) {
	for _, rule := range []string{
		"RRULE:FREQ=MONTHLY;BYMONTHDAY=15",
		"RRULE:FREQ=MONTHLY;BYDAY=1MO",
		"RRULE:FREQ=DAILY;BYDAY=MO",
		"RRULE:FREQ=WEEKLY;BYDAY=MO;BYSETPOS=1",
		"RRULE:FREQ=DAILY;BYHOUR=9,15",
	} {
		doc := icsDoc("BEGIN:VEVENT", "UID:odd", "DTSTART:20260105T090000Z", "DTEND:20260105T100000Z", rule, "END:VEVENT")
		if _, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 0, 60)); err == nil {
			t.Fatalf("expected error for %s", rule)
		}
	}
}

func TestParseBusyAcceptsRedundantMonthDay(t *testing.T) {
	doc := icsDoc(
		"BEGIN:VEVENT", "UID:rent",
		"DTSTART:20260105T090000Z", "DTEND:20260105T100000Z",
		"RRULE:FREQ=MONTHLY;BYMONTHDAY=5;COUNT=3",
		"END:VEVENT",
	)
	got, err := ParseBusy(strings.NewReader(doc), time.UTC, weekOf, weekOf.AddDate(0, 6, 0))
	if err != nil {
		t.Fatalf("ParseBusy failed: %v", err)
	}
	if len(got) != 3 || !got[2].Start.Equal(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected three monthly occurrences ending Mar 5, got %+v", got)
	}
}

func TestICSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(icsDoc("BEGIN:VEVENT", "UID:a", "DTSTART:20260105T100000Z", "DTEND:20260105T110000Z", "END:VEVENT")))
	}))
	defer srv.Close()

	src := NewICSSource(srv.URL+"/feed.ics", time.UTC, srv.Client())
	got, err := src.Fetch(context.Background(), "ignored", weekOf, weekOf.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected intervals %+v", got)
	}

	missing := NewICSSource(srv.URL+"/other.ics", time.UTC, srv.Client())
	if _, err := missing.Fetch(context.Background(), "ignored", weekOf, weekOf.AddDate(0, 0, 1)); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}

func TestICSSourceIsReadOnly(t *testing.T) {
	src := NewICSSource("webcal://example.com/feed.ics", nil, nil)
	if src.url != "https://example.com/feed.ics" {
		t.Fatalf("webcal scheme not rewritten: %s", src.url)
	}
	if _, err := src.CreateEvent(context.Background(), "primary", availability.BusyInterval{}, "", ""); !errors.Is(err, availability.ErrReadOnlyCalendar) {
		t.Fatalf("expected ErrReadOnlyCalendar, got %v", err)
	}
	if err := src.DeleteEvent(context.Background(), "primary", "x"); !errors.Is(err, availability.ErrReadOnlyCalendar) {
		t.Fatalf("expected ErrReadOnlyCalendar, got %v", err)
	}
}
