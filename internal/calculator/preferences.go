package calculator

import (
	"math"
	"sort"
	"strings"
)

// Star rating bounds applied to the group's averaged rating.
const (
	MinStarRating = 3
	MaxStarRating = 5
)

// MemberPreference is the minimal per-member preference needed for aggregation.
type MemberPreference struct {
	Destinations   string // Comma-separated free text
	HotelBudget    int    // 0 = no preference
	HotelRating    int    // 0 = no preference
	AcceptTransfer *bool  // nil = unanswered
}

// GroupSettings is the group-level reduction of all member preferences.
type GroupSettings struct {
	Destinations   []string
	AcceptTransfer bool
	StarRating     int // 0 = unset
	MaxBudget      int // 0 = unset
}

// AggregatePreferences reduces member preferences into group settings.
//
//   - Destinations: union of all lists, trimmed and deduplicated (first occurrence wins);
//     falls back to the placeholder when empty
//   - AcceptTransfer: majority vote, ties accept
//   - StarRating: rounded average clamped to [MinStarRating, MaxStarRating]
//   - MaxBudget: median of submitted hotel budgets
func AggregatePreferences(prefs []MemberPreference, placeholder string) GroupSettings {
	var settings GroupSettings

	seen := make(map[string]bool)
	accept, reject := 0, 0
	ratingSum, ratingCount := 0, 0
	var budgets []int

	for _, p := range prefs {
		for _, dest := range SplitDestinations(p.Destinations) {
			key := strings.ToUpper(dest)
			if seen[key] {
				continue
			}
			seen[key] = true
			settings.Destinations = append(settings.Destinations, dest)
		}

		if p.AcceptTransfer != nil {
			if *p.AcceptTransfer {
				accept++
			} else {
				reject++
			}
		}
		if p.HotelRating > 0 {
			ratingSum += p.HotelRating
			ratingCount++
		}
		if p.HotelBudget > 0 {
			budgets = append(budgets, p.HotelBudget)
		}
	}

	if len(settings.Destinations) == 0 && placeholder != "" {
		settings.Destinations = []string{placeholder}
	}

	settings.AcceptTransfer = accept >= reject

	if ratingCount > 0 {
		avg := int(math.Round(float64(ratingSum) / float64(ratingCount)))
		settings.StarRating = min(max(avg, MinStarRating), MaxStarRating)
	}

	settings.MaxBudget = median(budgets)

	return settings
}

// SplitDestinations splits a free-text destination list on ASCII, full-width and
// ideographic commas, dropping blanks.
func SplitDestinations(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// median returns the median of values, averaging the middle pair for even counts.
// Returns 0 for no values.
func median(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
