package utils

import (
	"fmt"
	"log"
	"time"
)

// LoadLocation resolves the zone that decides what "today" is. An empty
// name or "Local" means the host zone; an unknown name falls back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️ Unknown timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// FormatMinutes renders minutes as "<H>H <M>M", e.g. 75 -> "1H 15M".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dH %dM", minutes/60, minutes%60)
}

// DateIn returns the civil date of t in loc as YYYY-MM-DD.
func DateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// CivilDate drops the clock and zone, keeping only the calendar date.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DayName returns the English weekday name of a YYYY-MM-DD date.
func DayName(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// ParseClock parses "H:MM" or "HH:MM".
func ParseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected H:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}
