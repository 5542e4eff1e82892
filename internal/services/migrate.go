package services

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"productivity-timer/internal/database"
)

// MigrationReport lists what Normalize changed.
type MigrationReport struct {
	DirtyDays    []string
	RenamedKeys  int
	FoldedKeys   []string
	ClampedDays  []string
	DroppedDates []string
	// Dropped keeps the records removed for an invalid date key, so the
	// caller can back the store up before they disappear from it.
	Dropped  map[string]*database.DailyRecord
	Repaired []*database.ConsistencyError
	Settings     []string
}

// Changed reports whether anything was rewritten.
func (r MigrationReport) Changed() bool {
	return len(r.DirtyDays) > 0 || len(r.DroppedDates) > 0 || len(r.Settings) > 0
}

// legacySettingNames maps camel-case names of older JSON stores.
var legacySettingNames = map[string]string{
	"appPin":        database.SettingAppPin,
	"alarmTimes":    database.SettingAlarmTimes,
	"silentMode":    database.SettingSilentMode,
	"alarmSound":    database.SettingAlarmSound,
	"backupEnabled": database.SettingBackupEnabled,
}

// Normalize rewrites every daily record onto the canonical bucket ids.
// Negative values are clamped to zero first. Alias values are then added
// into their canonical bucket and the alias is removed; keys nobody
// recognizes are folded into Other. The day total is recomputed from the
// buckets.
// Running it twice changes nothing the second time.
func Normalize(doc *database.Document) MigrationReport {
	var report MigrationReport

	dates := make([]string, 0, len(doc.DailyData))
	for date := range doc.DailyData {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		rec := doc.DailyData[date]
		t, err := database.ParseDate(date)
		if err != nil {
			minutes := 0
			if rec != nil {
				minutes = rec.Slots.Sum()
			}
			log.Printf("⚠️ Dropping record with invalid date key %q (%d minutes)", date, minutes)
			delete(doc.DailyData, date)
			if report.Dropped == nil {
				report.Dropped = make(map[string]*database.DailyRecord)
			}
			report.Dropped[date] = rec
			report.DroppedDates = append(report.DroppedDates, date)
			continue
		}
		rec.Date = date
		if rec.Slots == nil {
			rec.Slots = make(database.Slots)
		}
		dirty := false
		for key, minutes := range rec.Slots {
			if minutes < 0 {
				rec.Slots[key] = 0
				dirty = true
				report.ClampedDays = appendOnce(report.ClampedDays, date)
			}
		}
		if normalizeSlots(date, rec.Slots, &report) {
			dirty = true
		}

		computed := rec.Slots.Sum()
		if computed != rec.TotalMinutes {
			report.Repaired = append(report.Repaired, &database.ConsistencyError{
				Date:     date,
				Stored:   rec.TotalMinutes,
				Computed: computed,
			})
			rec.TotalMinutes = computed
			dirty = true
		}

		if dayName := t.Weekday().String(); rec.DayName != dayName {
			rec.DayName = dayName
			dirty = true
		}

		if dirty {
			report.DirtyDays = append(report.DirtyDays, date)
		}
	}

	report.Settings = NormalizeSettings(doc.Settings)
	return report
}

func normalizeSlots(date string, slots database.Slots, report *MigrationReport) bool {
	dirty := false
	for key, minutes := range slots {
		if database.IsBucket(key) {
			continue
		}
		target, ok := database.LegacyBucketAliases[string(key)]
		if !ok {
			target = database.Other
			report.FoldedKeys = append(report.FoldedKeys, fmt.Sprintf("%s:%s", date, key))
		} else {
			report.RenamedKeys++
		}
		// every non-canonical key is merged and removed exactly once, so a
		// value already moved can never be added again
		slots[target] += minutes
		delete(slots, key)
		dirty = true
	}
	for _, id := range database.Buckets {
		if _, ok := slots[id]; !ok {
			slots[id] = 0
			dirty = true
		}
	}
	return dirty
}

// NormalizeSettings renames legacy setting names in place. A canonical
// value that already exists wins over the legacy one.
func NormalizeSettings(settings database.Settings) []string {
	var renamed []string
	for legacy, canonical := range legacySettingNames {
		value, ok := settings[legacy]
		if !ok {
			continue
		}
		if _, exists := settings[canonical]; !exists {
			settings[canonical] = strings.TrimSpace(value)
		}
		delete(settings, legacy)
		renamed = append(renamed, legacy)
	}
	sort.Strings(renamed)
	return renamed
}

func appendOnce(list []string, value string) []string {
	if len(list) > 0 && list[len(list)-1] == value {
		return list
	}
	return append(list, value)
}
