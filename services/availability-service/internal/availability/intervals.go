package availability

import (
	"sort"
	"time"
)

type span struct {
	Start time.Time
	End   time.Time
}

// clipSpans keeps the parts of busy that fall inside [base.Start, base.End).
func clipSpans(base span, busy []span) []span {
	var out []span
	for _, b := range busy {
		if !b.End.After(base.Start) || !b.Start.Before(base.End) {
			continue
		}
		s := maxTime(b.Start, base.Start)
		e := minTime(b.End, base.End)
		if e.After(s) {
			out = append(out, span{Start: s, End: e})
		}
	}
	return out
}

// mergeSpans sorts in and folds overlapping, nested and touching spans into
// one linear sequence.
func mergeSpans(in []span) []span {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]span, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]span, 0, len(sorted))
	for _, cur := range sorted {
		if len(merged) == 0 {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.Start.After(last.End) {
			merged = append(merged, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}
	return merged
}

// subtractSpans returns the gaps of base not covered by merged, which must be
// sorted and non-overlapping.
func subtractSpans(base span, merged []span) ([]span, error) {
	var out []span
	cursor := base.Start
	for _, m := range merged {
		if m.Start.After(cursor) {
			gap := span{Start: cursor, End: minTime(m.Start, base.End)}
			if gap.End.Before(gap.Start) {
				return nil, invalidInterval(gap.Start, gap.End)
			}
			if gap.End.After(gap.Start) {
				out = append(out, gap)
			}
		}
		if m.End.After(cursor) {
			cursor = m.End
		}
	}
	if base.End.After(cursor) {
		out = append(out, span{Start: cursor, End: base.End})
	}
	return out, nil
}
