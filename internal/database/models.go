package database

import (
	"regexp"
	"time"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// DocumentVersion is written into metadata on every save.
const DocumentVersion = "3.0"

type BucketID string

const (
	Slot0506 BucketID = "05-06"
	Slot0607 BucketID = "06-07"
	Slot0708 BucketID = "07-08"
	Slot0809 BucketID = "08-09"
	Slot0910 BucketID = "09-10"
	Slot1011 BucketID = "10-11"
	Slot1112 BucketID = "11-12"
	Slot1213 BucketID = "12-13"
	Slot1314 BucketID = "13-14"
	Slot1415 BucketID = "14-15"
	Slot1516 BucketID = "15-16"
	Slot1617 BucketID = "16-17"
	Slot1718 BucketID = "17-18"
	Slot1819 BucketID = "18-19"
	Slot1920 BucketID = "19-20"
	Slot2021 BucketID = "20-21"
	Other    BucketID = "other"
)

// Buckets lists every bucket in chronological order, Other last.
var Buckets = []BucketID{
	Slot0506, Slot0607, Slot0708, Slot0809,
	Slot0910, Slot1011, Slot1112, Slot1213,
	Slot1314, Slot1415, Slot1516, Slot1617,
	Slot1718, Slot1819, Slot1920, Slot2021,
	Other,
}

var BucketLabels = map[BucketID]string{
	Slot0506: "5-6 AM",
	Slot0607: "6-7 AM",
	Slot0708: "7-8 AM",
	Slot0809: "8-9 AM",
	Slot0910: "9-10 AM",
	Slot1011: "10-11 AM",
	Slot1112: "11-12 PM",
	Slot1213: "12-1 PM",
	Slot1314: "1-2 PM",
	Slot1415: "2-3 PM",
	Slot1516: "3-4 PM",
	Slot1617: "4-5 PM",
	Slot1718: "5-6 PM",
	Slot1819: "6-7 PM",
	Slot1920: "7-8 PM",
	Slot2021: "8-9 PM",
	Other:    "Other",
}

// BucketColumns are the SQLite column names, one per bucket.
var BucketColumns = map[BucketID]string{
	Slot0506: "slot_05_06",
	Slot0607: "slot_06_07",
	Slot0708: "slot_07_08",
	Slot0809: "slot_08_09",
	Slot0910: "slot_09_10",
	Slot1011: "slot_10_11",
	Slot1112: "slot_11_12",
	Slot1213: "slot_12_13",
	Slot1314: "slot_13_14",
	Slot1415: "slot_14_15",
	Slot1516: "slot_15_16",
	Slot1617: "slot_16_17",
	Slot1718: "slot_17_18",
	Slot1819: "slot_18_19",
	Slot1920: "slot_19_20",
	Slot2021: "slot_20_21",
	Other:    "other_time",
}

// LegacyBucketAliases maps every spelling older stores and screens used to
// the canonical bucket. Only the schema migrator consults it.
var LegacyBucketAliases = map[string]BucketID{
	// JSON store internal names
	"5-6am": Slot0506, "6-7am": Slot0607, "7-8am": Slot0708, "8-9am": Slot0809,
	"9-10am": Slot0910, "10-11am": Slot1011, "11-12pm": Slot1112, "12-1pm": Slot1213,
	"1-2pm": Slot1314, "2-3pm": Slot1415, "3-4pm": Slot1516, "4-5pm": Slot1617,
	"5-6pm": Slot1718, "6-7pm": Slot1819, "7-8pm": Slot1920, "8-9pm": Slot2021,

	// SQLite store column names
	"slot_5_6_am": Slot0506, "slot_6_7_am": Slot0607, "slot_7_8_am": Slot0708, "slot_8_9_am": Slot0809,
	"slot_9_10_am": Slot0910, "slot_10_11_am": Slot1011, "slot_11_12_am": Slot1112, "slot_12_1_pm": Slot1213,
	"slot_1_2_pm": Slot1314, "slot_2_3_pm": Slot1415, "slot_3_4_pm": Slot1516, "slot_4_5_pm": Slot1617,
	"slot_5_6_pm": Slot1718, "slot_6_7_pm": Slot1819, "slot_7_8_pm": Slot1920, "slot_8_9_pm": Slot2021,
	"other_time": Other,

	// Display names
	"5-6 AM": Slot0506, "6-7 AM": Slot0607, "7-8 AM": Slot0708, "8-9 AM": Slot0809,
	"9-10 AM": Slot0910, "10-11 AM": Slot1011, "11-12 AM": Slot1112, "11-12 PM": Slot1112,
	"12-1 PM": Slot1213, "1-2 PM": Slot1314, "2-3 PM": Slot1415, "3-4 PM": Slot1516,
	"4-5 PM": Slot1617, "5-6 PM": Slot1718, "6-7 PM": Slot1819, "7-8 PM": Slot1920,
	"8-9 PM": Slot2021, "Other": Other, "Other Time": Other,
}

// Setting names understood by the engine and its callers.
const (
	SettingAppPin        = "app_pin"
	SettingAlarmTimes    = "alarm_times"
	SettingSilentMode    = "silent_mode"
	SettingAlarmSound    = "alarm_sound"
	SettingBackupEnabled = "backup_enabled"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsBucket reports whether id is one of the canonical buckets.
func IsBucket(id BucketID) bool {
	_, ok := BucketLabels[id]
	return ok
}

// ParseBucket accepts canonical bucket ids only.
func ParseBucket(raw string) (BucketID, error) {
	id := BucketID(raw)
	if !IsBucket(id) {
		return "", &ValidationError{Field: "bucket", Value: raw, Reason: "unknown bucket"}
	}
	return id, nil
}

// BucketForHour returns the bucket covering a wall-clock hour.
func BucketForHour(hour int) BucketID {
	if hour < 5 || hour > 20 {
		return Other
	}
	return Buckets[hour-5]
}

// ParseDate validates a YYYY-MM-DD string and returns midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	if !datePattern.MatchString(raw) {
		return time.Time{}, &ValidationError{Field: "date", Value: raw, Reason: "expected YYYY-MM-DD"}
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Value: raw, Reason: "not a calendar date"}
	}
	return t, nil
}

type Slots map[BucketID]int

// Sum adds up every value, whatever its key.
func (s Slots) Sum() int {
	total := 0
	for _, minutes := range s {
		total += minutes
	}
	return total
}

type DailyRecord struct {
	Date         string `json:"-"`
	DayName      string `json:"dayName"`
	Slots        Slots  `json:"slots"`
	TotalMinutes int    `json:"totalMinutes"`
	Notes        string `json:"notes"`
}

// NewDailyRecord creates a record with every bucket at zero.
func NewDailyRecord(date time.Time) *DailyRecord {
	slots := make(Slots, len(Buckets))
	for _, id := range Buckets {
		slots[id] = 0
	}
	return &DailyRecord{
		Date:    date.Format(DateLayout),
		DayName: date.Weekday().String(),
		Slots:   slots,
	}
}

func (r *DailyRecord) Clone() *DailyRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Slots = make(Slots, len(r.Slots))
	for k, v := range r.Slots {
		out.Slots[k] = v
	}
	return &out
}

type WeeklyRecord struct {
	WeekNumber   int    `json:"weekNumber"`
	Year         int    `json:"year"`
	DateRange    string `json:"dateRange"`
	TotalMinutes int    `json:"totalMinutes"`
	TotalHours   string `json:"totalHours"`
	DaysWithData int    `json:"daysWithData"`
	Rank         int    `json:"rank"`
}

func (w *WeeklyRecord) Clone() *WeeklyRecord {
	if w == nil {
		return nil
	}
	out := *w
	return &out
}

type Metadata struct {
	Version      string    `json:"version"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// Document is the whole persisted store.
type Document struct {
	Metadata   Metadata                `json:"metadata"`
	DailyData  map[string]*DailyRecord `json:"dailyData"`
	WeeklyData []*WeeklyRecord         `json:"weeklyData"`
	Settings   Settings                `json:"settings"`
}

// NewDocument returns an empty store stamped with now.
func NewDocument(now time.Time) *Document {
	return &Document{
		Metadata: Metadata{
			Version:      DocumentVersion,
			Created:      now.UTC(),
			LastModified: now.UTC(),
		},
		DailyData:  make(map[string]*DailyRecord),
		WeeklyData: []*WeeklyRecord{},
		Settings:   make(Settings),
	}
}

// FillKeys restores fields that are not serialized and guards nil maps.
func (d *Document) FillKeys() {
	if d.DailyData == nil {
		d.DailyData = make(map[string]*DailyRecord)
	}
	if d.Settings == nil {
		d.Settings = make(Settings)
	}
	if d.WeeklyData == nil {
		d.WeeklyData = []*WeeklyRecord{}
	}
	for date, rec := range d.DailyData {
		if rec == nil {
			delete(d.DailyData, date)
			continue
		}
		rec.Date = date
		if rec.Slots == nil {
			rec.Slots = make(Slots)
		}
	}
}
