package services

import (
	"strconv"

	"productivity-timer/internal/database"
)

// SlotService owns the daily records of a document. Every write validates
// first and recomputes the day total from its buckets afterwards.
type SlotService struct {
	doc *database.Document
}

func NewSlotService(doc *database.Document) *SlotService {
	return &SlotService{doc: doc}
}

// Get returns the stored record for a date.
func (ss *SlotService) Get(date string) (*database.DailyRecord, bool) {
	rec, ok := ss.doc.DailyData[date]
	return rec, ok
}

// GetOrCreate returns the record for a date, creating an empty one.
func (ss *SlotService) GetOrCreate(date string) (*database.DailyRecord, error) {
	t, err := database.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if rec, ok := ss.doc.DailyData[date]; ok {
		return rec, nil
	}
	rec := database.NewDailyRecord(t)
	ss.doc.DailyData[date] = rec
	return rec, nil
}

// MaxBucketMinutes caps a single bucket so that day, week and all-time
// sums can never overflow.
const MaxBucketMinutes = 1 << 20

func validateMinutes(bucket database.BucketID, minutes int) error {
	if !database.IsBucket(bucket) {
		return &database.ValidationError{Field: "bucket", Value: string(bucket), Reason: "unknown bucket"}
	}
	if minutes < 0 {
		return &database.ValidationError{Field: "minutes", Value: strconv.Itoa(minutes), Reason: "must not be negative"}
	}
	if minutes > MaxBucketMinutes {
		return &database.ValidationError{Field: "minutes", Value: strconv.Itoa(minutes), Reason: "must not exceed " + strconv.Itoa(MaxBucketMinutes)}
	}
	return nil
}

// AddMinutes adds delta to one bucket of a day.
func (ss *SlotService) AddMinutes(date string, bucket database.BucketID, delta int) (*database.DailyRecord, error) {
	if err := validateMinutes(bucket, delta); err != nil {
		return nil, err
	}
	var current int
	if rec, ok := ss.doc.DailyData[date]; ok {
		current = rec.Slots[bucket]
	}
	if delta > MaxBucketMinutes-current {
		return nil, &database.ValidationError{
			Field:  "minutes",
			Value:  strconv.Itoa(delta),
			Reason: "bucket would exceed " + strconv.Itoa(MaxBucketMinutes),
		}
	}
	rec, err := ss.GetOrCreate(date)
	if err != nil {
		return nil, err
	}
	rec.Slots[bucket] += delta
	recomputeTotal(rec)
	return rec, nil
}

// SetMinutes replaces the value of one bucket of a day.
func (ss *SlotService) SetMinutes(date string, bucket database.BucketID, value int) (*database.DailyRecord, error) {
	if err := validateMinutes(bucket, value); err != nil {
		return nil, err
	}
	rec, err := ss.GetOrCreate(date)
	if err != nil {
		return nil, err
	}
	rec.Slots[bucket] = value
	recomputeTotal(rec)
	return rec, nil
}

func (ss *SlotService) SetNotes(date, text string) (*database.DailyRecord, error) {
	rec, err := ss.GetOrCreate(date)
	if err != nil {
		return nil, err
	}
	rec.Notes = text
	return rec, nil
}

// Put stores a fully built record, replacing any previous one for the date.
func (ss *SlotService) Put(rec *database.DailyRecord) error {
	t, err := database.ParseDate(rec.Date)
	if err != nil {
		return err
	}
	for bucket, minutes := range rec.Slots {
		if err := validateMinutes(bucket, minutes); err != nil {
			return err
		}
	}
	rec.DayName = t.Weekday().String()
	recomputeTotal(rec)
	ss.doc.DailyData[rec.Date] = rec
	return nil
}

func recomputeTotal(rec *database.DailyRecord) {
	rec.TotalMinutes = rec.Slots.Sum()
}
