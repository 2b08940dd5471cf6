package calculator

import (
	"sort"
	"time"
)

// Availability is one member's free interval. Start and End are inclusive and
// are reduced to calendar dates in the calculation's location.
type Availability struct {
	MemberID string
	Start    time.Time
	End      time.Time
}

// WindowInput holds everything needed to compute a group's common windows.
type WindowInput struct {
	// Target is the member count the quorum is computed from.
	Target int

	Slots []Availability

	// From and To bound the group's travel dates (inclusive).
	From time.Time
	To   time.Time

	// MinDays is the shortest run that survives. Values below 1 are treated as 1.
	MinDays int

	// Location defines calendar days. Nil means UTC.
	Location *time.Location
}

// TimeRange is a maximal run of consecutive quorum days.
type TimeRange struct {
	Start         time.Time
	End           time.Time
	DurationDays  int
	MinAttendance int // Weakest day of the run
}

// QuorumThreshold returns the strict majority of n: floor(n/2) + 1.
func QuorumThreshold(n int) int {
	if n < 0 {
		n = 0
	}
	return n/2 + 1
}

// CommonTimeRanges computes the date ranges where at least a strict majority of
// the target members are free on every day.
//
// Algorithm:
// - Count distinct members covering each day inside [From, To] (slots are clipped to the bounds)
// - Keep days whose count reaches QuorumThreshold(Target)
// - Merge consecutive kept days into runs, recording each run's minimum count
// - Drop runs shorter than MinDays
func CommonTimeRanges(in WindowInput) []TimeRange {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	minDays := in.MinDays
	if minDays < 1 {
		minDays = 1
	}

	from := civilDay(in.From, loc)
	to := civilDay(in.To, loc)
	numDays := daysBetween(from, to) + 1
	if numDays <= 0 || len(in.Slots) == 0 {
		return nil
	}

	// Mark covered days per member so overlapping slots of one member count once
	covered := make(map[string][]bool)
	for _, slot := range in.Slots {
		start := daysBetween(from, civilDay(slot.Start, loc))
		end := daysBetween(from, civilDay(slot.End, loc))
		if end < start {
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > numDays-1 {
			end = numDays - 1
		}
		if start > end {
			continue // Entirely outside the bounds
		}

		days, ok := covered[slot.MemberID]
		if !ok {
			days = make([]bool, numDays)
			covered[slot.MemberID] = days
		}
		for d := start; d <= end; d++ {
			days[d] = true
		}
	}

	coverage := make([]int, numDays)
	for _, days := range covered {
		for d, ok := range days {
			if ok {
				coverage[d]++
			}
		}
	}

	threshold := QuorumThreshold(in.Target)
	var goodDays []int
	for d, count := range coverage {
		if count >= threshold {
			goodDays = append(goodDays, d)
		}
	}
	sort.Ints(goodDays)

	var ranges []TimeRange
	for i := 0; i < len(goodDays); {
		j := i
		minCount := coverage[goodDays[i]]
		for j+1 < len(goodDays) && goodDays[j+1] == goodDays[j]+1 {
			j++
			if coverage[goodDays[j]] < minCount {
				minCount = coverage[goodDays[j]]
			}
		}

		length := j - i + 1
		if length >= minDays {
			ranges = append(ranges, TimeRange{
				Start:         dateIn(from.AddDate(0, 0, goodDays[i]), loc),
				End:           dateIn(from.AddDate(0, 0, goodDays[j]), loc),
				DurationDays:  length,
				MinAttendance: minCount,
			})
		}
		i = j + 1
	}

	return ranges
}

// ClipToTripLength shortens a range to tripDays starting at its first day,
// never extending past the range's own end.
func ClipToTripLength(r TimeRange, tripDays int) (start, end time.Time) {
	if tripDays < 1 {
		tripDays = 1
	}
	end = r.Start.AddDate(0, 0, tripDays-1)
	if end.After(r.End) {
		end = r.End
	}
	return r.Start, end
}

// civilDay maps t to midnight UTC of its calendar date in loc, so day arithmetic
// is free of DST and offset effects.
func civilDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// dateIn converts a civil day back to midnight in loc.
func dateIn(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
