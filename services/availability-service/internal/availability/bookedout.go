package availability

import (
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

// BookedOutDays reports the dates in [timeMin, timeMax) on which nothing of at
// least minDuration can be booked. On the first date, free time is only
// counted from timeMin+sameDayCutoff onwards. periods must come from
// FreePeriods for the same range. Dates are local midnights in loc.
func BookedOutDays(ws schedule.WorkSchedule, loc *time.Location, timeMin, timeMax time.Time, minDuration, sameDayCutoff time.Duration, periods []TimePeriod) ([]time.Time, error) {
	if err := checkRange(loc, timeMin, timeMax); err != nil {
		return nil, err
	}
	timeMin, timeMax = timeMin.In(loc), timeMax.In(loc)
	firstDay := midnight(timeMin)
	cutoff := timeMin.Add(sameDayCutoff)

	byDate := make(map[dateKey][]TimePeriod)
	for _, p := range periods {
		k := keyOf(p.Start.In(loc))
		byDate[k] = append(byDate[k], p)
	}

	var out []time.Time
	err := dayWindows(loc, timeMin, timeMax, func(day time.Time) error {
		wd, err := ws.Day(day.Weekday())
		if err != nil {
			return err
		}
		if wd.NonWorking {
			out = append(out, day)
			return nil
		}

		usable := false
		for _, p := range byDate[keyOf(day)] {
			start := p.Start
			if day.Equal(firstDay) {
				start = maxTime(start, cutoff)
			}
			if !p.End.After(start) {
				continue
			}
			if p.End.Sub(start) >= minDuration {
				usable = true
				break
			}
		}
		if !usable {
			out = append(out, day)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
