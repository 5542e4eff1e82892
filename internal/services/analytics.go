package services

import (
	"sort"
	"time"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

// WeekRank is "rank X of N" for one week. Rank 0 means unranked.
type WeekRank struct {
	Rank int
	Of   int
}

type WeekStats struct {
	CurrentWeek    *database.WeeklyRecord
	CurrentRank    WeekRank
	RankedWeeks    int
	TotalWeeks     int
	AverageMinutes int
	AverageHours   string
	BestWeek       *database.WeeklyRecord
}

// BucketMinutes is one non-empty bucket of a day.
type BucketMinutes struct {
	Bucket  database.BucketID
	Label   string
	Minutes int
	Hours   string
}

type DaySummary struct {
	Date         string
	DayName      string
	TotalMinutes int
	TotalHours   string
	Notes        string
}

type MonthSummary struct {
	Year           int
	Month          time.Month
	Days           []DaySummary
	TotalDays      int
	TotalMinutes   int
	AverageMinutes int
	BestDay        int
	WorstDay       int
}

type DataStatistics struct {
	TotalDays    int
	TotalMinutes int
	TotalHours   string
}

// AnalyticsService derives read models from a document. It never writes.
type AnalyticsService struct {
	doc *database.Document
}

func NewAnalyticsService(doc *database.Document) *AnalyticsService {
	return &AnalyticsService{doc: doc}
}

// WeekStats summarizes the ranking around the week containing today.
func (as *AnalyticsService) WeekStats(today time.Time) WeekStats {
	year, week := WeekOf(today)
	current := as.weekOrPlaceholder(year, week)

	stats := WeekStats{
		CurrentWeek: current,
		TotalWeeks:  len(as.doc.WeeklyData),
	}
	sum := 0
	for _, w := range as.doc.WeeklyData {
		if w.TotalMinutes <= 0 {
			continue
		}
		stats.RankedWeeks++
		sum += w.TotalMinutes
		if w.Rank == 1 {
			stats.BestWeek = w.Clone()
		}
	}
	stats.CurrentRank = WeekRank{Rank: current.Rank, Of: stats.RankedWeeks}
	if stats.RankedWeeks > 0 {
		stats.AverageMinutes = (sum + stats.RankedWeeks/2) / stats.RankedWeeks
	}
	stats.AverageHours = utils.FormatMinutes(stats.AverageMinutes)
	return stats
}

// weekOrPlaceholder returns a copy of the stored week, or an unranked empty
// week when nothing was recorded for it.
func (as *AnalyticsService) weekOrPlaceholder(year, week int) *database.WeeklyRecord {
	for _, w := range as.doc.WeeklyData {
		if w.Year == year && w.WeekNumber == week {
			return w.Clone()
		}
	}
	return &database.WeeklyRecord{
		WeekNumber: week,
		Year:       year,
		DateRange:  DateRangeLabel(year, week),
		TotalHours: utils.FormatMinutes(0),
	}
}

// RankedWeeks returns copies of the top ranked weeks; limit <= 0 means all.
func (as *AnalyticsService) RankedWeeks(limit int) []*database.WeeklyRecord {
	out := make([]*database.WeeklyRecord, 0, len(as.doc.WeeklyData))
	for _, w := range as.doc.WeeklyData {
		if w.Rank > 0 {
			out = append(out, w.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// HourlyBreakdown lists the buckets of a day that hold minutes.
func (as *AnalyticsService) HourlyBreakdown(date string) []BucketMinutes {
	rec, ok := as.doc.DailyData[date]
	if !ok {
		return nil
	}
	var out []BucketMinutes
	for _, id := range database.Buckets {
		minutes := rec.Slots[id]
		if minutes <= 0 {
			continue
		}
		out = append(out, BucketMinutes{
			Bucket:  id,
			Label:   database.BucketLabels[id],
			Minutes: minutes,
			Hours:   utils.FormatMinutes(minutes),
		})
	}
	return out
}

// MonthSummary covers the days of a month that hold minutes.
func (as *AnalyticsService) MonthSummary(year int, month time.Month) MonthSummary {
	summary := MonthSummary{Year: year, Month: month}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		date := d.Format(database.DateLayout)
		rec, ok := as.doc.DailyData[date]
		if !ok || rec.TotalMinutes <= 0 {
			continue
		}
		summary.Days = append(summary.Days, summarizeDay(date, rec))
		summary.TotalMinutes += rec.TotalMinutes
		if summary.TotalDays == 0 || rec.TotalMinutes > summary.BestDay {
			summary.BestDay = rec.TotalMinutes
		}
		if summary.TotalDays == 0 || rec.TotalMinutes < summary.WorstDay {
			summary.WorstDay = rec.TotalMinutes
		}
		summary.TotalDays++
	}
	if summary.TotalDays > 0 {
		summary.AverageMinutes = (summary.TotalMinutes + summary.TotalDays/2) / summary.TotalDays
	}
	return summary
}

// RecentDays returns the last n days ending today, oldest first, including
// days without a record.
func (as *AnalyticsService) RecentDays(today time.Time, n int) []DaySummary {
	out := make([]DaySummary, 0, n)
	for i := n - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(database.DateLayout)
		if rec, ok := as.doc.DailyData[date]; ok {
			out = append(out, summarizeDay(date, rec))
			continue
		}
		out = append(out, DaySummary{
			Date:       date,
			DayName:    utils.DayName(date),
			TotalHours: utils.FormatMinutes(0),
		})
	}
	return out
}

func (as *AnalyticsService) DataStatistics() DataStatistics {
	stats := DataStatistics{TotalDays: len(as.doc.DailyData)}
	for _, rec := range as.doc.DailyData {
		stats.TotalMinutes += rec.TotalMinutes
	}
	stats.TotalHours = utils.FormatMinutes(stats.TotalMinutes)
	return stats
}

func summarizeDay(date string, rec *database.DailyRecord) DaySummary {
	return DaySummary{
		Date:         date,
		DayName:      rec.DayName,
		TotalMinutes: rec.TotalMinutes,
		TotalHours:   utils.FormatMinutes(rec.TotalMinutes),
		Notes:        rec.Notes,
	}
}
