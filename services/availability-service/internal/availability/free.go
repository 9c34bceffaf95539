package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

type dateKey int

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey(y*10000 + int(m)*100 + d)
}

type partitioned struct {
	timed  []span
	allDay map[dateKey]struct{}
}

// partition validates busy, splits all-day from timed intervals and merges the
// timed ones into a sorted, non-overlapping sequence.
func partition(busy []BusyInterval, loc *time.Location) (partitioned, error) {
	p := partitioned{allDay: map[dateKey]struct{}{}}
	var timed []span
	for _, b := range busy {
		if b.End.Before(b.Start) {
			return partitioned{}, invalidInterval(b.Start, b.End)
		}
		b = b.In(loc)
		if b.AllDay {
			for _, d := range b.Dates() {
				p.allDay[keyOf(d)] = struct{}{}
			}
			continue
		}
		if b.End.After(b.Start) {
			timed = append(timed, span{Start: b.Start, End: b.End})
		}
	}
	p.timed = mergeSpans(timed)
	return p, nil
}

// dayWindows calls fn for every calendar day in loc that intersects
// [timeMin, timeMax), in ascending order.
func dayWindows(loc *time.Location, timeMin, timeMax time.Time, fn func(day time.Time) error) error {
	for d := midnight(timeMin.In(loc)); d.Before(timeMax); d = nextDay(d) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(loc *time.Location, timeMin, timeMax time.Time) error {
	if loc == nil {
		return fmt.Errorf("%w: nil location", ErrConfiguration)
	}
	if !timeMax.After(timeMin) {
		return fmt.Errorf("%w: range %s..%s", ErrInvalidInterval, timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339))
	}
	return nil
}

// FreePeriods subtracts busy from each working window of ws between timeMin
// and timeMax. Windows are clipped to the range, so the first day never
// offers time before timeMin. A date touched by an all-day interval yields
// nothing, as does a non-working day. The result is sorted and
// non-overlapping, with every timestamp in loc.
func FreePeriods(ws schedule.WorkSchedule, loc *time.Location, timeMin, timeMax time.Time, busy []BusyInterval) ([]TimePeriod, error) {
	if err := checkRange(loc, timeMin, timeMax); err != nil {
		return nil, err
	}
	timeMin, timeMax = timeMin.In(loc), timeMax.In(loc)

	p, err := partition(busy, loc)
	if err != nil {
		return nil, err
	}

	var out []TimePeriod
	next := 0
	err = dayWindows(loc, timeMin, timeMax, func(day time.Time) error {
		wd, err := ws.Day(day.Weekday())
		if err != nil {
			return err
		}
		if wd.NonWorking {
			return nil
		}
		if _, blocked := p.allDay[keyOf(day)]; blocked {
			return nil
		}

		workStart, workEnd := wd.Window(day, loc)
		window := span{Start: maxTime(workStart, timeMin), End: minTime(workEnd, timeMax)}
		if !window.End.After(window.Start) {
			return nil
		}

		// Windows only move forward, so spans ending before this one can be skipped for good.
		for next < len(p.timed) && !p.timed[next].End.After(window.Start) {
			next++
		}
		var overlapping []span
		for i := next; i < len(p.timed) && p.timed[i].Start.Before(window.End); i++ {
			overlapping = append(overlapping, p.timed[i])
		}

		gaps, err := subtractSpans(window, clipSpans(window, overlapping))
		if err != nil {
			return err
		}
		for _, g := range gaps {
			out = append(out, TimePeriod{Start: g.Start, End: g.End})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
