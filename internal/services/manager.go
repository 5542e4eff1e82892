package services

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

// SettingListener is told about every setting change after it was saved.
type SettingListener func(name, value string)

// ServiceManager is the single entry point callers use. Every exported
// method holds one store-wide mutex, so the chat surface and scheduled jobs
// can call it from their own goroutines.
type ServiceManager struct {
	Notification *NotificationService

	mu        sync.Mutex
	doc       *database.Document
	gateway   *Gateway
	slots     *SlotService
	weeks     *WeekService
	analytics *AnalyticsService
	loc       *time.Location
	now       func() time.Time
	listeners []SettingListener
}

// NewServiceManager loads the store, migrates it onto the canonical schema
// and rebuilds every rollup before handing it out.
func NewServiceManager(gateway *Gateway, loc *time.Location, now func() time.Time) (*ServiceManager, LoadResult) {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	doc, result := gateway.Load()
	sm := &ServiceManager{
		doc:       doc,
		gateway:   gateway,
		slots:     NewSlotService(doc),
		weeks:     NewWeekService(doc),
		analytics: NewAnalyticsService(doc),
		loc:       loc,
		now:       now,
	}

	report := Normalize(doc)
	logMigration(report)
	if len(report.Dropped) > 0 && result.BackupPath == "" && !gateway.Degraded() {
		path, err := gateway.Backup()
		if err != nil {
			gateway.Hold(fmt.Sprintf("%d records with invalid dates could not be backed up: %v", len(report.Dropped), err))
			result.Degraded = true
		} else {
			result.BackupPath = path
		}
	}
	if added := ApplyDefaultSettings(doc.Settings); added > 0 {
		log.Printf("⚙️ Added %d default settings", added)
	}

	weeks := sm.weeks.RecomputeAll()
	ranked := RecomputeRanks(doc.WeeklyData)
	log.Printf("🔄 Recalculated %d weeks, %d ranked", weeks, ranked)

	if err := gateway.Save(doc); err != nil {
		log.Printf("⚠️ Failed to save store after startup: %v", err)
	}

	return sm, result
}

func logMigration(report MigrationReport) {
	if !report.Changed() {
		log.Println("✅ No slot data cleanup needed")
		return
	}
	for _, repaired := range report.Repaired {
		log.Printf("🧹 Total repaired: %v", repaired)
	}
	for _, folded := range report.FoldedKeys {
		log.Printf("🧹 Unknown bucket folded into other: %s", folded)
	}
	if len(report.ClampedDays) > 0 {
		log.Printf("🧹 Negative minutes clamped on %d days", len(report.ClampedDays))
	}
	if len(report.Settings) > 0 {
		log.Printf("🧹 Renamed legacy settings: %v", report.Settings)
	}
	log.Printf("✅ Slot data cleanup completed: %d days, %d legacy keys", len(report.DirtyDays), report.RenamedKeys)
}

func (sm *ServiceManager) SetNotificationSender(sender NotificationSender) {
	sm.Notification = NewNotificationService(sender, sm)
}

// OnSettingChange registers a listener for saved setting changes.
func (sm *ServiceManager) OnSettingChange(listener SettingListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// Location is the zone that decides what "today" is.
func (sm *ServiceManager) Location() *time.Location {
	return sm.loc
}

// Today returns today's date as YYYY-MM-DD.
func (sm *ServiceManager) Today() string {
	return utils.DateIn(sm.now(), sm.loc)
}

func (sm *ServiceManager) todayCivil() time.Time {
	return utils.CivilDate(sm.now(), sm.loc)
}

// CurrentBucket is the bucket for the current wall-clock hour.
func (sm *ServiceManager) CurrentBucket() database.BucketID {
	return database.BucketForHour(sm.now().In(sm.loc).Hour())
}

// commit rolls the touched week up, reranks and saves. The in-memory store
// is already consistent when saving fails.
func (sm *ServiceManager) commit(date string) error {
	key, err := WeekOfDate(date)
	if err != nil {
		return err
	}
	if _, err := sm.weeks.RecomputeWeek(key.Year, key.Week); err != nil {
		return err
	}
	RecomputeRanks(sm.doc.WeeklyData)
	if err := sm.gateway.Save(sm.doc); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

// GetToday returns today's record, creating it on first use.
func (sm *ServiceManager) GetToday() (*database.DailyRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	today := sm.Today()
	if rec, ok := sm.slots.Get(today); ok {
		return rec.Clone(), nil
	}
	rec, err := sm.slots.GetOrCreate(today)
	if err != nil {
		return nil, err
	}
	if err := sm.gateway.Save(sm.doc); err != nil {
		return rec.Clone(), fmt.Errorf("save store: %w", err)
	}
	return rec.Clone(), nil
}

// GetDay returns a stored day or database.ErrNotFound.
func (sm *ServiceManager) GetDay(date string) (*database.DailyRecord, error) {
	if _, err := database.ParseDate(date); err != nil {
		return nil, err
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, ok := sm.slots.Get(date)
	if !ok {
		return nil, fmt.Errorf("day %s: %w", date, database.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (sm *ServiceManager) AddMinutes(bucket database.BucketID, minutes int) (*database.DailyRecord, error) {
	return sm.AddMinutesOn(sm.Today(), bucket, minutes)
}

func (sm *ServiceManager) SetMinutes(bucket database.BucketID, minutes int) (*database.DailyRecord, error) {
	return sm.SetMinutesOn(sm.Today(), bucket, minutes)
}

func (sm *ServiceManager) SetNotes(text string) (*database.DailyRecord, error) {
	return sm.SetNotesOn(sm.Today(), text)
}

// AddMinutesOn adds minutes to a bucket of any date.
func (sm *ServiceManager) AddMinutesOn(date string, bucket database.BucketID, minutes int) (*database.DailyRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, err := sm.slots.AddMinutes(date, bucket, minutes)
	if err != nil {
		return nil, err
	}
	log.Printf("🕐 Added %d minutes to %s on %s, bucket now %d", minutes, bucket, date, rec.Slots[bucket])
	return rec.Clone(), sm.commit(date)
}

// SetMinutesOn replaces a bucket of any date.
func (sm *ServiceManager) SetMinutesOn(date string, bucket database.BucketID, minutes int) (*database.DailyRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, err := sm.slots.SetMinutes(date, bucket, minutes)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), sm.commit(date)
}

func (sm *ServiceManager) SetNotesOn(date, text string) (*database.DailyRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, err := sm.slots.SetNotes(date, text)
	if err != nil {
		return nil, err
	}
	if err := sm.gateway.Save(sm.doc); err != nil {
		return rec.Clone(), fmt.Errorf("save store: %w", err)
	}
	return rec.Clone(), nil
}

// GetWeek returns the rollup of the ISO week containing date, or
// database.ErrNotFound when that week holds no record.
func (sm *ServiceManager) GetWeek(date string) (*database.WeeklyRecord, error) {
	key, err := WeekOfDate(date)
	if err != nil {
		return nil, err
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	week, ok := sm.weeks.Find(key.Year, key.Week)
	if !ok {
		return nil, fmt.Errorf("week %s: %w", key, database.ErrNotFound)
	}
	return week.Clone(), nil
}

// GetCurrentWeek returns this week's rollup, or an empty unranked week.
func (sm *ServiceManager) GetCurrentWeek() *database.WeeklyRecord {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	year, week := WeekOf(sm.todayCivil())
	return sm.analytics.weekOrPlaceholder(year, week)
}

// GetCurrentWeekRank returns "rank X of N" for this week.
func (sm *ServiceManager) GetCurrentWeekRank() WeekRank {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.WeekStats(sm.todayCivil()).CurrentRank
}

func (sm *ServiceManager) GetRankedWeeks(limit int) []*database.WeeklyRecord {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.RankedWeeks(limit)
}

func (sm *ServiceManager) GetWeekStats() WeekStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.WeekStats(sm.todayCivil())
}

func (sm *ServiceManager) GetHourlyBreakdown(date string) ([]BucketMinutes, error) {
	if _, err := database.ParseDate(date); err != nil {
		return nil, err
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.HourlyBreakdown(date), nil
}

func (sm *ServiceManager) GetMonthSummary(year int, month time.Month) (MonthSummary, error) {
	if month < time.January || month > time.December {
		return MonthSummary{}, &database.ValidationError{Field: "month", Value: strconv.Itoa(int(month)), Reason: "must be between 1 and 12"}
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.MonthSummary(year, month), nil
}

func (sm *ServiceManager) GetRecentDays(n int) ([]DaySummary, error) {
	if n < 1 || n > 366 {
		return nil, &database.ValidationError{Field: "days", Value: strconv.Itoa(n), Reason: "must be between 1 and 366"}
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.RecentDays(sm.todayCivil(), n), nil
}

func (sm *ServiceManager) GetDataStatistics() DataStatistics {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.analytics.DataStatistics()
}

// ExportCSV renders the daily and weekly CSV files.
func (sm *ServiceManager) ExportCSV() CSVExport {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return CSVExport{
		Daily:  EncodeDaily(sm.doc.DailyData),
		Weekly: EncodeWeekly(sm.doc.WeeklyData),
	}
}

// ImportCSV merges a daily CSV into the store and rebuilds every week and
// rank from scratch.
func (sm *ServiceManager) ImportCSV(text string) (ImportResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	result, err := ImportDaily(text, sm.slots)
	if err != nil {
		return result, err
	}
	for _, rowErr := range result.Errors {
		log.Printf("⚠️ Import skipped %v", rowErr)
	}
	log.Printf("📥 Imported %d of %d rows (%d errors)", result.ImportedCount, result.TotalRows, result.ErrorCount)

	if result.ImportedCount == 0 {
		return result, nil
	}
	sm.weeks.RecomputeAll()
	RecomputeRanks(sm.doc.WeeklyData)
	if err := sm.gateway.Save(sm.doc); err != nil {
		return result, fmt.Errorf("save store: %w", err)
	}
	return result, nil
}

// JSONImportResult summarizes a whole-store import.
type JSONImportResult struct {
	ImportedDays     int
	SkippedDays      []string
	ImportedSettings int
	SkippedSettings  []string
}

// ExportJSON renders the whole store in its file format.
func (sm *ServiceManager) ExportJSON() ([]byte, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := database.EncodeDocument(sm.doc)
	if err != nil {
		return nil, fmt.Errorf("encode store: %w", err)
	}
	return data, nil
}

// ImportJSON merges an exported store into this one. Imported days replace
// days with the same date and valid settings overwrite existing ones.
// Weekly rollups in the file are ignored; weeks and ranks are rebuilt from
// the merged days.
func (sm *ServiceManager) ImportJSON(data []byte) (JSONImportResult, error) {
	incoming, err := database.DecodeDocument(data)
	if err != nil {
		return JSONImportResult{}, &database.ValidationError{Field: "json", Value: "", Reason: err.Error()}
	}
	report := Normalize(incoming)
	result := JSONImportResult{SkippedDays: report.DroppedDates}

	dates := make([]string, 0, len(incoming.DailyData))
	for date := range incoming.DailyData {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	names := make([]string, 0, len(incoming.Settings))
	for name := range incoming.Settings {
		names = append(names, name)
	}
	sort.Strings(names)

	sm.mu.Lock()
	for _, date := range dates {
		if err := sm.slots.Put(incoming.DailyData[date]); err != nil {
			log.Printf("⚠️ Import skipped day %s: %v", date, err)
			result.SkippedDays = append(result.SkippedDays, date)
			continue
		}
		result.ImportedDays++
	}

	var changed []string
	for _, name := range names {
		value := incoming.Settings[name]
		if err := ValidateSetting(name, value); err != nil {
			log.Printf("⚠️ Import skipped setting: %v", err)
			result.SkippedSettings = append(result.SkippedSettings, name)
			continue
		}
		if current, ok := sm.doc.Settings[name]; !ok || current != value {
			changed = append(changed, name)
		}
		sm.doc.Settings[name] = value
		result.ImportedSettings++
	}
	log.Printf("📥 Imported %d days and %d settings (%d days, %d settings skipped)",
		result.ImportedDays, result.ImportedSettings, len(result.SkippedDays), len(result.SkippedSettings))

	if result.ImportedDays == 0 && result.ImportedSettings == 0 {
		sm.mu.Unlock()
		return result, nil
	}
	sm.weeks.RecomputeAll()
	RecomputeRanks(sm.doc.WeeklyData)
	err = sm.gateway.Save(sm.doc)
	values := make(map[string]string, len(changed))
	for _, name := range changed {
		values[name] = sm.doc.Settings[name]
	}
	listeners := append([]SettingListener(nil), sm.listeners...)
	sm.mu.Unlock()

	if err != nil {
		return result, fmt.Errorf("save store: %w", err)
	}
	for _, name := range changed {
		for _, listener := range listeners {
			listener(name, values[name])
		}
	}
	return result, nil
}

// GetSetting returns a setting or database.ErrNotFound.
func (sm *ServiceManager) GetSetting(name string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	value, ok := sm.doc.Settings[name]
	if !ok {
		return "", fmt.Errorf("setting %q: %w", name, database.ErrNotFound)
	}
	return value, nil
}

// SetSetting validates, stores and saves a setting, then tells listeners.
func (sm *ServiceManager) SetSetting(name, value string) error {
	if err := ValidateSetting(name, value); err != nil {
		return err
	}

	sm.mu.Lock()
	sm.doc.Settings[name] = value
	err := sm.gateway.Save(sm.doc)
	listeners := append([]SettingListener(nil), sm.listeners...)
	sm.mu.Unlock()

	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	for _, listener := range listeners {
		listener(name, value)
	}
	return nil
}

// SettingEnabled reads a boolean setting, falling back to its default.
func (sm *ServiceManager) SettingEnabled(name string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return settingBool(sm.doc.Settings, name)
}

// AlarmTimes parses the alarm_times setting.
func (sm *ServiceManager) AlarmTimes() ([]AlarmTime, error) {
	sm.mu.Lock()
	raw, ok := sm.doc.Settings[database.SettingAlarmTimes]
	sm.mu.Unlock()

	if !ok {
		raw = DefaultSettings[database.SettingAlarmTimes]
	}
	return ParseAlarmTimes(raw)
}

// Backup copies the store on demand and returns the backup path.
func (sm *ServiceManager) Backup() (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.gateway.Backup()
}

// Close takes a final backup when backups are enabled and releases the
// backend.
func (sm *ServiceManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if settingBool(sm.doc.Settings, database.SettingBackupEnabled) && !sm.gateway.Degraded() {
		if _, err := sm.gateway.Backup(); err != nil {
			log.Printf("⚠️ Final backup failed: %v", err)
		}
	}
	return sm.gateway.Close()
}
