package availability

import "time"

// AvailableStarts returns the open slots of grid from which a booking of
// serviceDuration fits without running into a reserved slot. Each result keeps
// the candidate's start and ends where the covering slot ends. grid must be
// sorted and contiguous, as produced by BuildGrid. Candidates that cannot be
// placed are dropped. Runs in linear time.
func AvailableStarts(grid []TimeSlot, serviceDuration time.Duration) []TimeSlot {
	if serviceDuration <= 0 || len(grid) == 0 {
		return nil
	}
	last := grid[len(grid)-1].End

	// nextBlocked[i] is the index of the first non-open slot at or after i.
	nextBlocked := make([]int, len(grid)+1)
	nextBlocked[len(grid)] = len(grid)
	for i := len(grid) - 1; i >= 0; i-- {
		if grid[i].Status != Open {
			nextBlocked[i] = i
		} else {
			nextBlocked[i] = nextBlocked[i+1]
		}
	}

	var out []TimeSlot
	cover := 0
	for i, candidate := range grid {
		target := candidate.Start.Add(serviceDuration)
		if target.After(last) {
			break
		}
		if candidate.Status != Open {
			continue
		}
		if cover < i {
			cover = i
		}
		for grid[cover].End.Before(target) {
			cover++
		}
		if nextBlocked[i] <= cover {
			continue
		}
		out = append(out, TimeSlot{Start: candidate.Start, End: grid[cover].End, Status: Open})
	}
	return out
}
