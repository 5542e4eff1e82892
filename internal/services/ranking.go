package services

import (
	"sort"

	"productivity-timer/internal/database"
)

// RecomputeRanks assigns dense ranks 1..N to every week with minutes,
// highest total first. Equal totals are ordered by (year, week) ascending
// so the result never depends on slice order. Weeks without minutes get
// rank 0. The slice is reordered: ranked weeks by rank, then the rest by
// (year, week). It returns N.
func RecomputeRanks(weeks []*database.WeeklyRecord) int {
	sort.SliceStable(weeks, func(i, j int) bool {
		a, b := weeks[i], weeks[j]
		aRanked, bRanked := a.TotalMinutes > 0, b.TotalMinutes > 0
		if aRanked != bRanked {
			return aRanked
		}
		if aRanked && a.TotalMinutes != b.TotalMinutes {
			return a.TotalMinutes > b.TotalMinutes
		}
		return WeekKey{Year: a.Year, Week: a.WeekNumber}.less(WeekKey{Year: b.Year, Week: b.WeekNumber})
	})

	ranked := 0
	for _, week := range weeks {
		if week.TotalMinutes > 0 {
			ranked++
			week.Rank = ranked
		} else {
			week.Rank = 0
		}
	}
	return ranked
}

// RankedCount returns N, the number of weeks that take part in ranking.
func RankedCount(weeks []*database.WeeklyRecord) int {
	n := 0
	for _, week := range weeks {
		if week.TotalMinutes > 0 {
			n++
		}
	}
	return n
}
