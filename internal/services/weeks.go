package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

// WeekKey identifies an ISO-8601 week.
type WeekKey struct {
	Year int
	Week int
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d-W%02d", k.Year, k.Week)
}

func (k WeekKey) less(other WeekKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Week < other.Week
}

// isoWeekday maps Monday..Sunday to 1..7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekOf returns the ISO year and week of the calendar date of d. The
// week's Thursday decides the year; the week number counts from January 1
// of that year.
func WeekOf(d time.Time) (isoYear, isoWeek int) {
	day := civil(d)
	thursday := day.AddDate(0, 0, 4-isoWeekday(day))
	isoYear = thursday.Year()
	jan1 := time.Date(isoYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(jan1).Hours() / 24)
	isoWeek = (days + 1 + 6) / 7
	return isoYear, isoWeek
}

// WeekOfDate is WeekOf for a YYYY-MM-DD string.
func WeekOfDate(date string) (WeekKey, error) {
	t, err := database.ParseDate(date)
	if err != nil {
		return WeekKey{}, err
	}
	year, week := WeekOf(t)
	return WeekKey{Year: year, Week: week}, nil
}

// WeekStart returns the Monday of an ISO week. January 4 always falls in
// week 1.
func WeekStart(isoYear, isoWeek int) time.Time {
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, 1-isoWeekday(jan4))
	return monday.AddDate(0, 0, (isoWeek-1)*7)
}

// WeekDates lists the seven dates of an ISO week, Monday first.
func WeekDates(isoYear, isoWeek int) [7]string {
	var dates [7]string
	monday := WeekStart(isoYear, isoWeek)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format(database.DateLayout)
	}
	return dates
}

// DateRangeLabel renders a week as "Dec 30 - Jan 5".
func DateRangeLabel(isoYear, isoWeek int) string {
	monday := WeekStart(isoYear, isoWeek)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format("Jan 2") + " - " + sunday.Format("Jan 2")
}

func validateWeek(isoYear, isoWeek int) error {
	if isoWeek < 1 || isoWeek > 53 {
		return &database.ValidationError{Field: "week", Value: strconv.Itoa(isoWeek), Reason: "must be between 1 and 53"}
	}
	y, w := WeekOf(WeekStart(isoYear, isoWeek))
	if y != isoYear || w != isoWeek {
		return &database.ValidationError{
			Field:  "week",
			Value:  WeekKey{Year: isoYear, Week: isoWeek}.String(),
			Reason: "year has no such ISO week",
		}
	}
	return nil
}

// WeekService owns the weekly rollups of a document. It only reads daily
// records.
type WeekService struct {
	doc *database.Document
}

func NewWeekService(doc *database.Document) *WeekService {
	return &WeekService{doc: doc}
}

func (ws *WeekService) build(isoYear, isoWeek int) *database.WeeklyRecord {
	week := &database.WeeklyRecord{
		WeekNumber: isoWeek,
		Year:       isoYear,
		DateRange:  DateRangeLabel(isoYear, isoWeek),
	}
	for _, date := range WeekDates(isoYear, isoWeek) {
		rec, ok := ws.doc.DailyData[date]
		if !ok {
			continue
		}
		week.TotalMinutes += rec.TotalMinutes
		if rec.TotalMinutes > 0 {
			week.DaysWithData++
		}
	}
	week.TotalHours = utils.FormatMinutes(week.TotalMinutes)
	return week
}

// Find returns the stored rollup of a week.
func (ws *WeekService) Find(isoYear, isoWeek int) (*database.WeeklyRecord, bool) {
	for _, week := range ws.doc.WeeklyData {
		if week.Year == isoYear && week.WeekNumber == isoWeek {
			return week, true
		}
	}
	return nil, false
}

// RecomputeWeek rebuilds one week from its seven days and overwrites or
// inserts it. The previous rank is carried over until ranks are recomputed.
func (ws *WeekService) RecomputeWeek(isoYear, isoWeek int) (*database.WeeklyRecord, error) {
	if err := validateWeek(isoYear, isoWeek); err != nil {
		return nil, err
	}
	fresh := ws.build(isoYear, isoWeek)
	for i, week := range ws.doc.WeeklyData {
		if week.Year == isoYear && week.WeekNumber == isoWeek {
			fresh.Rank = week.Rank
			ws.doc.WeeklyData[i] = fresh
			return fresh, nil
		}
	}
	ws.doc.WeeklyData = append(ws.doc.WeeklyData, fresh)
	return fresh, nil
}

// RecomputeAll discards every rollup and rebuilds one per week that has at
// least one day with minutes. Ranks start at zero.
func (ws *WeekService) RecomputeAll() int {
	keys := make(map[WeekKey]struct{})
	for date, rec := range ws.doc.DailyData {
		if rec.TotalMinutes <= 0 {
			continue
		}
		key, err := WeekOfDate(date)
		if err != nil {
			continue
		}
		keys[key] = struct{}{}
	}

	ordered := make([]WeekKey, 0, len(keys))
	for key := range keys {
		ordered = append(ordered, key)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].less(ordered[j])
	})

	weeks := make([]*database.WeeklyRecord, 0, len(ordered))
	for _, key := range ordered {
		weeks = append(weeks, ws.build(key.Year, key.Week))
	}
	ws.doc.WeeklyData = weeks
	return len(weeks)
}
