package database

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseBucket(t *testing.T) {
	for _, id := range Buckets {
		got, err := ParseBucket(string(id))
		if err != nil {
			t.Fatalf("expected %s to parse, got %v", id, err)
		}
		if got != id {
			t.Fatalf("expected %s, got %s", id, got)
		}
	}

	for _, raw := range []string{"", "5-6am", "slot_05_06", "21-22", "Other"} {
		_, err := ParseBucket(raw)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected ValidationError for %q, got %v", raw, err)
		}
	}
}

func TestBucketTables(t *testing.T) {
	if len(Buckets) != 17 {
		t.Fatalf("expected 17 buckets, got %d", len(Buckets))
	}
	for _, id := range Buckets {
		if BucketLabels[id] == "" {
			t.Fatalf("bucket %s has no label", id)
		}
		if BucketColumns[id] == "" {
			t.Fatalf("bucket %s has no column", id)
		}
		if got := LegacyBucketAliases[BucketLabels[id]]; got != id {
			t.Fatalf("expected display label %q to alias %s, got %s", BucketLabels[id], id, got)
		}
	}
}

func TestBucketForHour(t *testing.T) {
	cases := map[int]BucketID{
		0:  Other,
		4:  Other,
		5:  Slot0506,
		9:  Slot0910,
		12: Slot1213,
		20: Slot2021,
		21: Other,
		23: Other,
	}
	for hour, want := range cases {
		if got := BucketForHour(hour); got != want {
			t.Fatalf("hour %d: expected %s, got %s", hour, want, got)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("expected leap day to parse, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 29 || d.Location() != time.UTC {
		t.Fatalf("unexpected date %v", d)
	}

	for _, raw := range []string{"2023-02-29", "2023-13-01", "2023-1-05", "05/01/2023", "", "2023-01-01T00:00:00Z"} {
		if _, err := ParseDate(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestNewDailyRecordHasEveryBucket(t *testing.T) {
	rec := NewDailyRecord(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	if rec.Date != "2024-03-04" || rec.DayName != "Monday" {
		t.Fatalf("unexpected record header %s %s", rec.Date, rec.DayName)
	}
	if len(rec.Slots) != len(Buckets) {
		t.Fatalf("expected %d slots, got %d", len(Buckets), len(rec.Slots))
	}
	if rec.Slots.Sum() != 0 || rec.TotalMinutes != 0 {
		t.Fatalf("expected empty record, got %d", rec.Slots.Sum())
	}
}

func TestDailyRecordCloneIsDeep(t *testing.T) {
	rec := NewDailyRecord(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	rec.Slots[Slot0910] = 30

	clone := rec.Clone()
	clone.Slots[Slot0910] = 99
	clone.Notes = "changed"

	if rec.Slots[Slot0910] != 30 || rec.Notes != "" {
		t.Fatalf("clone shares state with original")
	}
}

func TestDocumentJSONUsesMapKeysForDates(t *testing.T) {
	doc := NewDocument(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rec := NewDailyRecord(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	rec.Slots[Other] = 5
	rec.TotalMinutes = 5
	doc.DailyData[rec.Date] = rec

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back.FillKeys()

	got := back.DailyData["2024-01-02"]
	if got == nil || got.Date != "2024-01-02" {
		t.Fatalf("expected date restored from key, got %+v", got)
	}
	if got.Slots[Other] != 5 {
		t.Fatalf("expected 5 minutes in other, got %d", got.Slots[Other])
	}
}

func TestFillKeysGuardsNilFields(t *testing.T) {
	doc := &Document{DailyData: map[string]*DailyRecord{
		"2024-01-01": nil,
		"2024-01-02": {},
	}}
	doc.FillKeys()

	if doc.Settings == nil || doc.WeeklyData == nil {
		t.Fatalf("expected settings and weekly data to be initialized")
	}
	if _, ok := doc.DailyData["2024-01-01"]; ok {
		t.Fatalf("expected nil record to be dropped")
	}
	if doc.DailyData["2024-01-02"].Slots == nil {
		t.Fatalf("expected slots map to be initialized")
	}
}
