package services

import (
	"errors"
	"testing"
	"time"

	"productivity-timer/internal/database"
)

func TestWeekOfBoundaries(t *testing.T) {
	cases := []struct {
		date string
		year int
		week int
	}{
		{"2023-01-01", 2022, 52},
		{"2024-12-30", 2025, 1},
		{"2025-01-06", 2025, 2},
		{"2021-01-03", 2020, 53},
		{"2021-01-04", 2021, 1},
		{"2026-12-31", 2026, 53},
		{"2027-01-03", 2026, 53},
		{"2019-12-30", 2020, 1},
		{"2024-02-29", 2024, 9},
	}
	for _, c := range cases {
		key, err := WeekOfDate(c.date)
		if err != nil {
			t.Fatalf("%s: %v", c.date, err)
		}
		if key.Year != c.year || key.Week != c.week {
			t.Fatalf("%s: expected %d-W%02d, got %s", c.date, c.year, c.week, key)
		}
	}
}

func TestWeekOfMatchesStandardLibrary(t *testing.T) {
	end := time.Date(2041, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC); d.Before(end); d = d.AddDate(0, 0, 1) {
		wantYear, wantWeek := d.ISOWeek()
		year, week := WeekOf(d)
		if year != wantYear || week != wantWeek {
			t.Fatalf("%s: expected %d-W%02d, got %d-W%02d", d.Format(database.DateLayout), wantYear, wantWeek, year, week)
		}
	}
}

func TestWeekOfIgnoresClockAndZone(t *testing.T) {
	late := time.Date(2023, 1, 1, 23, 59, 0, 0, time.FixedZone("UTC+14", 14*3600))
	year, week := WeekOf(late)
	if year != 2022 || week != 52 {
		t.Fatalf("expected the calendar date to decide, got %d-W%02d", year, week)
	}
}

func TestWeekStartAndDates(t *testing.T) {
	dates := WeekDates(2025, 1)
	if dates[0] != "2024-12-30" || dates[6] != "2025-01-05" {
		t.Fatalf("unexpected week dates %v", dates)
	}
	for _, date := range dates {
		key, _ := WeekOfDate(date)
		if key.Year != 2025 || key.Week != 1 {
			t.Fatalf("%s belongs to %s", date, key)
		}
	}
	if got := DateRangeLabel(2025, 1); got != "Dec 30 - Jan 5" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestRecomputeWeekSumsSevenDays(t *testing.T) {
	doc := database.NewDocument(time.Now())
	slots := NewSlotService(doc)
	weeks := NewWeekService(doc)

	mustAdd(t, slots, "2024-12-29", database.Slot0506, 10) // previous week
	mustAdd(t, slots, "2024-12-30", database.Slot0506, 30)
	mustAdd(t, slots, "2025-01-01", database.Other, 15)
	mustAdd(t, slots, "2025-01-05", database.Slot2021, 5)
	if _, err := slots.GetOrCreate("2025-01-02"); err != nil {
		t.Fatalf("create: %v", err)
	}

	week, err := weeks.RecomputeWeek(2025, 1)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if week.TotalMinutes != 50 || week.DaysWithData != 3 || week.TotalHours != "0H 50M" {
		t.Fatalf("unexpected week %+v", week)
	}
	if week.DateRange != "Dec 30 - Jan 5" {
		t.Fatalf("unexpected range %q", week.DateRange)
	}

	mustAdd(t, slots, "2025-01-03", database.Slot1213, 10)
	if _, err := weeks.RecomputeWeek(2025, 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(doc.WeeklyData) != 1 {
		t.Fatalf("expected week to be overwritten, got %d weeks", len(doc.WeeklyData))
	}
	if doc.WeeklyData[0].TotalMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", doc.WeeklyData[0].TotalMinutes)
	}
}

func TestRecomputeWeekRejectsImpossibleWeeks(t *testing.T) {
	weeks := NewWeekService(database.NewDocument(time.Now()))
	for _, key := range []WeekKey{{2024, 0}, {2024, 54}, {2023, 53}} {
		_, err := weeks.RecomputeWeek(key.Year, key.Week)
		var validation *database.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%s: expected ValidationError, got %v", key, err)
		}
	}
	if _, err := weeks.RecomputeWeek(2026, 53); err != nil {
		t.Fatalf("2026 has 53 weeks: %v", err)
	}
}

func TestRecomputeAllSkipsEmptyDays(t *testing.T) {
	doc := database.NewDocument(time.Now())
	slots := NewSlotService(doc)
	weeks := NewWeekService(doc)

	mustAdd(t, slots, "2024-01-10", database.Slot0910, 60)
	mustAdd(t, slots, "2023-12-20", database.Slot0910, 30)
	if _, err := slots.GetOrCreate("2024-03-01"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if n := weeks.RecomputeAll(); n != 2 {
		t.Fatalf("expected 2 weeks, got %d", n)
	}
	if doc.WeeklyData[0].Year != 2023 || doc.WeeklyData[1].Year != 2024 {
		t.Fatalf("expected weeks ordered by key, got %+v %+v", doc.WeeklyData[0], doc.WeeklyData[1])
	}
	for _, week := range doc.WeeklyData {
		if week.Rank != 0 {
			t.Fatalf("expected ranks reset, got %d", week.Rank)
		}
	}
}

func mustAdd(t *testing.T, slots *SlotService, date string, bucket database.BucketID, minutes int) {
	t.Helper()
	if _, err := slots.AddMinutes(date, bucket, minutes); err != nil {
		t.Fatalf("add %s %s: %v", date, bucket, err)
	}
}
