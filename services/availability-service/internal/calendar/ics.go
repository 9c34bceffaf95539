package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	icsMaxFeedSize  = 5 * 1024 * 1024
	icsFetchTimeout = 30 * time.Second
	// Upper bound on expanded occurrences of a single recurring event.
	icsMaxOccurrences = 5000
)

// ICSSource reads busy time from a published iCalendar feed. It cannot write.
type ICSSource struct {
	url    string
	client *http.Client
	// Floating (zone-less) times are read in loc.
	loc *time.Location
}

func NewICSSource(url string, loc *time.Location, client *http.Client) *ICSSource {
	if client == nil {
		client = &http.Client{
			Timeout:   icsFetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	if strings.HasPrefix(url, "webcal://") {
		url = "https://" + strings.TrimPrefix(url, "webcal://")
	}
	return &ICSSource{url: url, client: client, loc: loc}
}

// Fetch downloads the whole feed; calendarID is ignored.
func (s *ICSSource) Fetch(ctx context.Context, _ string, timeMin, timeMax time.Time) ([]availability.BusyInterval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ics feed: HTTP %d", resp.StatusCode)
	}
	return ParseBusy(io.LimitReader(resp.Body, icsMaxFeedSize), s.loc, timeMin, timeMax)
}

func (s *ICSSource) CreateEvent(context.Context, string, availability.BusyInterval, string, string) (string, error) {
	return "", availability.ErrReadOnlyCalendar
}

func (s *ICSSource) DeleteEvent(context.Context, string, string) error {
	return availability.ErrReadOnlyCalendar
}

// ParseBusy returns the busy intervals of an iCalendar document that touch
// [timeMin, timeMax). Cancelled and transparent events are skipped, and simple
// RRULEs (FREQ with INTERVAL, COUNT, UNTIL, EXDATE and weekly BYDAY) are
// expanded. Other BY* parts are rejected.
func ParseBusy(r io.Reader, loc *time.Location, timeMin, timeMax time.Time) ([]availability.BusyInterval, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var out []availability.BusyInterval
	for _, ev := range cal.Events() {
		if strings.EqualFold(propValue(ev, ics.ComponentPropertyStatus), "CANCELLED") ||
			strings.EqualFold(propValue(ev, ics.ComponentPropertyTransp), "TRANSPARENT") {
			continue
		}

		start, allDay, err := icsTime(ev.GetProperty(ics.ComponentPropertyDtStart), loc)
		if err != nil {
			return nil, fmt.Errorf("event %q: DTSTART: %w", ev.Id(), err)
		}
		var end time.Time
		if p := ev.GetProperty(ics.ComponentPropertyDtEnd); p != nil {
			if end, _, err = icsTime(p, loc); err != nil {
				return nil, fmt.Errorf("event %q: DTEND: %w", ev.Id(), err)
			}
		} else if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
		length := end.Sub(start)

		starts := []time.Time{start}
		if p := ev.GetProperty(ics.ComponentPropertyRrule); p != nil {
			rule, err := parseRRule(p.Value, loc)
			if err == nil {
				err = rule.check(start)
			}
			if err != nil {
				return nil, fmt.Errorf("event %q: RRULE: %w", ev.Id(), err)
			}
			starts = rule.expand(start, exDates(ev, loc), timeMax)
		}

		for _, st := range starts {
			b := availability.BusyInterval{ID: ev.Id(), Start: st, End: st.Add(length), AllDay: allDay}
			if allDay {
				b.End = st.AddDate(0, 0, int(length.Round(24*time.Hour)/(24*time.Hour)))
			}
			if touches(b, timeMin, timeMax) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// touches is loose for all-day entries since their dates have no zone yet.
func touches(b availability.BusyInterval, timeMin, timeMax time.Time) bool {
	if b.AllDay {
		return b.Start.Before(timeMax.Add(24*time.Hour)) && b.End.After(timeMin.Add(-24*time.Hour))
	}
	if b.End.Equal(b.Start) {
		return !b.Start.Before(timeMin) && b.Start.Before(timeMax)
	}
	return b.Start.Before(timeMax) && b.End.After(timeMin)
}

func propValue(ev *ics.VEvent, p ics.ComponentProperty) string {
	if prop := ev.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// icsTime parses DATE, UTC DATE-TIME, DATE-TIME with TZID, and floating DATE-TIME values.
func icsTime(prop *ics.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing")
	}
	return parseICSValue(strings.TrimSpace(prop.Value), paramValue(prop, "TZID"), loc)
}

func parseICSValue(val, tzid string, loc *time.Location) (time.Time, bool, error) {
	if len(val) == len("20060102") {
		t, err := time.Parse("20060102", val)
		return t, true, err
	}
	if strings.HasSuffix(val, "Z") {
		t, err := time.Parse("20060102T150405Z", val)
		return t, false, err
	}
	zone := loc
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			zone = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", val, zone)
	return t, false, err
}

func paramValue(prop *ics.IANAProperty, name string) string {
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func exDates(ev *ics.VEvent, loc *time.Location) map[int64]struct{} {
	out := map[int64]struct{}{}
	for _, prop := range ev.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		tzid := paramValue(&prop, "TZID")
		for _, v := range strings.Split(prop.Value, ",") {
			if t, _, err := parseICSValue(strings.TrimSpace(v), tzid, loc); err == nil {
				out[t.Unix()] = struct{}{}
			}
		}
	}
	return out
}

type rrule struct {
	freq       string
	interval   int
	count      int
	until      time.Time
	byDay      []time.Weekday
	byMonthDay int
	byMonth    int
	weekStart  time.Weekday
}

var icsWeekdays = map[string]time.Weekday{
	"SU": time.Sunday, "MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday,
	"TH": time.Thursday, "FR": time.Friday, "SA": time.Saturday,
}

func parseRRule(value string, loc *time.Location) (rrule, error) {
	r := rrule{interval: 1, weekStart: time.Monday}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToUpper(kv[0])
		switch key {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			if _, err := fmt.Sscanf(kv[1], "%d", &r.interval); err != nil || r.interval < 1 {
				return rrule{}, fmt.Errorf("bad INTERVAL %q", kv[1])
			}
		case "COUNT":
			if _, err := fmt.Sscanf(kv[1], "%d", &r.count); err != nil || r.count < 1 {
				return rrule{}, fmt.Errorf("bad COUNT %q", kv[1])
			}
		case "UNTIL":
			t, _, err := parseICSValue(kv[1], "", loc)
			if err != nil {
				return rrule{}, fmt.Errorf("bad UNTIL %q", kv[1])
			}
			r.until = t
		case "WKST":
			wd, ok := icsWeekdays[strings.ToUpper(kv[1])]
			if !ok {
				return rrule{}, fmt.Errorf("bad WKST %q", kv[1])
			}
			r.weekStart = wd
		case "BYDAY":
			for _, d := range strings.Split(kv[1], ",") {
				wd, ok := icsWeekdays[strings.ToUpper(d)]
				if !ok {
					return rrule{}, fmt.Errorf("unsupported BYDAY value %q", d)
				}
				r.byDay = append(r.byDay, wd)
			}
		case "BYMONTHDAY":
			if _, err := fmt.Sscanf(kv[1], "%d", &r.byMonthDay); err != nil || r.byMonthDay < 1 || strings.Contains(kv[1], ",") {
				return rrule{}, fmt.Errorf("unsupported BYMONTHDAY %q", kv[1])
			}
		case "BYMONTH":
			if _, err := fmt.Sscanf(kv[1], "%d", &r.byMonth); err != nil || r.byMonth < 1 || strings.Contains(kv[1], ",") {
				return rrule{}, fmt.Errorf("unsupported BYMONTH %q", kv[1])
			}
		default:
			if strings.HasPrefix(key, "BY") {
				return rrule{}, fmt.Errorf("unsupported rule part %s", key)
			}
		}
	}
	switch r.freq {
	case "DAILY", "WEEKLY", "MONTHLY", "YEARLY":
	default:
		return rrule{}, fmt.Errorf("unsupported FREQ %q", r.freq)
	}
	if len(r.byDay) > 0 && r.freq != "WEEKLY" {
		return rrule{}, fmt.Errorf("BYDAY is only supported with FREQ=WEEKLY")
	}
	return r, nil
}

// check rejects BYMONTHDAY and BYMONTH unless they repeat what first already implies.
func (r rrule) check(first time.Time) error {
	if r.byMonthDay != 0 && ((r.freq != "MONTHLY" && r.freq != "YEARLY") || r.byMonthDay != first.Day()) {
		return fmt.Errorf("unsupported BYMONTHDAY=%d for FREQ=%s starting on day %d", r.byMonthDay, r.freq, first.Day())
	}
	if r.byMonth != 0 && (r.freq != "YEARLY" || time.Month(r.byMonth) != first.Month()) {
		return fmt.Errorf("unsupported BYMONTH=%d for FREQ=%s starting in %s", r.byMonth, r.freq, first.Month())
	}
	return nil
}

// period returns the candidate starts of the n-th recurrence period, sorted.
func (r rrule) period(first time.Time, n int) []time.Time {
	switch r.freq {
	case "DAILY":
		return []time.Time{first.AddDate(0, 0, n*r.interval)}
	case "WEEKLY":
		if len(r.byDay) == 0 {
			return []time.Time{first.AddDate(0, 0, 7*n*r.interval)}
		}
		base := (int(first.Weekday()) - int(r.weekStart) + 7) % 7
		out := make([]time.Time, 0, len(r.byDay))
		for _, wd := range r.byDay {
			off := (int(wd) - int(r.weekStart) + 7) % 7
			out = append(out, first.AddDate(0, 0, 7*n*r.interval+off-base))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
		return out
	case "MONTHLY":
		return []time.Time{first.AddDate(0, n*r.interval, 0)}
	default:
		return []time.Time{first.AddDate(n*r.interval, 0, 0)}
	}
}

// expand lists occurrence starts before horizon. COUNT counts excluded dates too.
func (r rrule) expand(first time.Time, excluded map[int64]struct{}, horizon time.Time) []time.Time {
	var out []time.Time
	emitted := 0
	for n := 0; n < icsMaxOccurrences; n++ {
		for _, t := range r.period(first, n) {
			if t.Before(first) {
				continue
			}
			if r.count > 0 && emitted >= r.count {
				return out
			}
			if !r.until.IsZero() && t.After(r.until) {
				return out
			}
			if !t.Before(horizon) {
				return out
			}
			emitted++
			if _, skip := excluded[t.Unix()]; !skip {
				out = append(out, t)
			}
		}
	}
	return out
}
