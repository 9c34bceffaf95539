package availability

import (
	"fmt"
	"sort"
	"time"
)

// MaxGridSlots bounds the size of one grid.
const MaxGridSlots = 100_000

// BuildGrid discretizes [shiftStart, shiftEnd) into granularity-wide slots and
// marks the ones covered by busy as Reserved. Interval boundaries that fall
// between grid lines become extra slots flagged OutsideInterval. The result is
// sorted, contiguous and unique by start time.
func BuildGrid(shiftStart, shiftEnd time.Time, busy []BusyInterval, granularity time.Duration) ([]TimeSlot, error) {
	if granularity <= 0 {
		return nil, fmt.Errorf("%w: granularity must be positive, got %s", ErrInvalidInterval, granularity)
	}
	for _, b := range busy {
		if b.End.Before(b.Start) {
			return nil, invalidInterval(b.Start, b.End)
		}
	}
	if !shiftEnd.After(shiftStart) {
		return []TimeSlot{}, nil
	}
	n := shiftEnd.Sub(shiftStart) / granularity
	if shiftEnd.Sub(shiftStart)%granularity != 0 {
		n++
	}
	if n > MaxGridSlots {
		return nil, fmt.Errorf("%w: %d slots of %s exceed the limit of %d", ErrInvalidInterval, n, granularity, MaxGridSlots)
	}

	slots := make([]TimeSlot, 0, int(n)+2*len(busy))
	for t := shiftStart; t.Before(shiftEnd); t = t.Add(granularity) {
		slots = append(slots, TimeSlot{Start: t, End: minTime(t.Add(granularity), shiftEnd), Status: Open})
	}
	base := len(slots)

	spans := make([]span, 0, len(busy))
	for _, b := range busy {
		if b.End.After(b.Start) {
			spans = append(spans, span{Start: b.Start, End: b.End})
		}
	}

	index := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		index[s.Start.UnixNano()] = struct{}{}
	}
	insert := func(s TimeSlot) {
		key := s.Start.UnixNano()
		if _, ok := index[key]; ok {
			return
		}
		index[key] = struct{}{}
		slots = append(slots, s)
	}

	for _, iv := range mergeSpans(spans) {
		if !iv.End.After(shiftStart) {
			continue
		}
		if !iv.Start.Before(shiftEnd) {
			break
		}
		// Merged spans are disjoint, so only generated slots need marking.
		first := sort.Search(base, func(i int) bool { return !slots[i].Start.Before(iv.Start) })
		for i := first; i < base && slots[i].Start.Before(iv.End); i++ {
			slots[i].Status = Reserved
		}
		if iv.Start.After(shiftStart) {
			insert(TimeSlot{Start: iv.Start, End: shiftEnd, Status: Reserved, OutsideInterval: true})
		}
		// Nothing after this interval is left open in the shift.
		if !iv.End.Before(shiftEnd) {
			break
		}
		insert(TimeSlot{Start: iv.End, End: shiftEnd, Status: Open, OutsideInterval: true})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	for i := 0; i < len(slots)-1; i++ {
		slots[i].End = slots[i+1].Start
	}
	return slots, nil
}
