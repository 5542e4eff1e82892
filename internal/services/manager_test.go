package services

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// newTestManager opens a manager on a JSON store in dir. Wednesday
// 2024-05-01 10:30 UTC is "now".
func newTestManager(t *testing.T, dir string) (*ServiceManager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)}
	gateway := NewGateway(database.NewJSONStore(filepath.Join(dir, "data.json")), filepath.Join(dir, "backups"), clock.Now)
	sm, _ := NewServiceManager(gateway, time.UTC, clock.Now)
	sm.SetNotificationSender(LogSender{})
	return sm, clock
}

func TestManagerAddMinutesScenario(t *testing.T) {
	dir := t.TempDir()
	sm, _ := newTestManager(t, dir)

	if _, err := sm.AddMinutes(database.Slot0506, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec, err := sm.AddMinutes(database.Slot0607, 45)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.TotalMinutes != 75 || utils.FormatMinutes(rec.TotalMinutes) != "1H 15M" {
		t.Fatalf("expected 75 minutes, got %d", rec.TotalMinutes)
	}

	rec, err = sm.AddMinutes(database.Slot0506, 20)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.Slots[database.Slot0506] != 50 || rec.TotalMinutes != 95 {
		t.Fatalf("expected 50/95, got %d/%d", rec.Slots[database.Slot0506], rec.TotalMinutes)
	}

	week := sm.GetCurrentWeek()
	if week.Year != 2024 || week.WeekNumber != 18 || week.TotalMinutes != 95 || week.Rank != 1 {
		t.Fatalf("unexpected current week %+v", week)
	}
	if rank := sm.GetCurrentWeekRank(); rank.Rank != 1 || rank.Of != 1 {
		t.Fatalf("unexpected rank %+v", rank)
	}

	if err := sm.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, _ := newTestManager(t, dir)
	defer reopened.Close()
	day, err := reopened.GetDay("2024-05-01")
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if day.TotalMinutes != 95 {
		t.Fatalf("expected persisted total 95, got %d", day.TotalMinutes)
	}
}

func TestManagerRejectsInvalidInput(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	var validation *database.ValidationError
	if _, err := sm.AddMinutes(database.Slot0506, -1); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for negative delta, got %v", err)
	}
	if _, err := sm.SetMinutes("21-22", 10); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for unknown bucket, got %v", err)
	}
	if _, err := sm.AddMinutesOn("2024-02-30", database.Other, 10); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for bad date, got %v", err)
	}

	today, err := sm.GetToday()
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.TotalMinutes != 0 {
		t.Fatalf("rejected writes must not change state, got %d", today.TotalMinutes)
	}
}

func TestManagerNotFoundIsNotFailure(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	if _, err := sm.GetDay("2020-01-01"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := sm.GetWeek("2020-01-01"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := sm.GetSetting("no_such_setting"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	week := sm.GetCurrentWeek()
	if week.Rank != 0 || week.TotalMinutes != 0 || week.DateRange != "Apr 29 - May 5" {
		t.Fatalf("expected empty placeholder week, got %+v", week)
	}
}

func TestManagerRanksAcrossWeeks(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	if _, err := sm.AddMinutesOn("2024-04-22", database.Slot0910, 300); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sm.AddMinutesOn("2024-04-15", database.Slot0910, 500); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sm.AddMinutes(database.Slot1011, 100); err != nil {
		t.Fatalf("add: %v", err)
	}

	ranked := sm.GetRankedWeeks(0)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked weeks, got %d", len(ranked))
	}
	if ranked[0].TotalMinutes != 500 || ranked[1].TotalMinutes != 300 || ranked[2].TotalMinutes != 100 {
		t.Fatalf("unexpected order %+v %+v %+v", ranked[0], ranked[1], ranked[2])
	}

	stats := sm.GetWeekStats()
	if stats.CurrentRank.Rank != 3 || stats.CurrentRank.Of != 3 {
		t.Fatalf("unexpected current rank %+v", stats.CurrentRank)
	}
	if stats.AverageMinutes != 300 || stats.BestWeek == nil || stats.BestWeek.TotalMinutes != 500 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := sm.SetMinutesOn("2024-04-15", database.Slot0910, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if n := len(sm.GetRankedWeeks(0)); n != 2 {
		t.Fatalf("expected emptied week to drop out of ranking, got %d ranked", n)
	}
	if top := sm.GetRankedWeeks(1); len(top) != 1 || top[0].TotalMinutes != 300 {
		t.Fatalf("unexpected top week %+v", top)
	}
}

func TestManagerTodayFollowsClock(t *testing.T) {
	sm, clock := newTestManager(t, t.TempDir())
	defer sm.Close()

	if sm.CurrentBucket() != database.Slot1011 {
		t.Fatalf("expected 10-11 bucket, got %s", sm.CurrentBucket())
	}
	if _, err := sm.AddMinutes(sm.CurrentBucket(), 15); err != nil {
		t.Fatalf("add: %v", err)
	}

	clock.Set(time.Date(2024, 5, 2, 22, 0, 0, 0, time.UTC))
	if sm.Today() != "2024-05-02" || sm.CurrentBucket() != database.Other {
		t.Fatalf("expected next day in other bucket, got %s %s", sm.Today(), sm.CurrentBucket())
	}
	today, err := sm.GetToday()
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.TotalMinutes != 0 || today.DayName != "Thursday" {
		t.Fatalf("unexpected new day %+v", today)
	}
	if week := sm.GetCurrentWeek(); week.TotalMinutes != 15 {
		t.Fatalf("expected week to keep yesterday's minutes, got %d", week.TotalMinutes)
	}

	days, err := sm.GetRecentDays(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(days) != 3 || days[0].Date != "2024-04-30" || days[1].TotalMinutes != 15 || days[2].Date != "2024-05-02" {
		t.Fatalf("unexpected recent days %+v", days)
	}
	if _, err := sm.GetRecentDays(0); err == nil {
		t.Fatalf("expected zero days to be rejected")
	}
}

func TestManagerNotesAndAnalytics(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	if _, err := sm.SetNotes("wrote the report"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	if _, err := sm.AddMinutes(database.Slot0910, 40); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sm.AddMinutesOn("2024-05-20", database.Other, 20); err != nil {
		t.Fatalf("add: %v", err)
	}

	today, _ := sm.GetDay("2024-05-01")
	if today.Notes != "wrote the report" {
		t.Fatalf("unexpected notes %q", today.Notes)
	}

	breakdown, err := sm.GetHourlyBreakdown("2024-05-01")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(breakdown) != 1 || breakdown[0].Bucket != database.Slot0910 || breakdown[0].Hours != "0H 40M" {
		t.Fatalf("unexpected breakdown %+v", breakdown)
	}

	month, err := sm.GetMonthSummary(2024, time.May)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if month.TotalDays != 2 || month.TotalMinutes != 60 || month.BestDay != 40 || month.WorstDay != 20 || month.AverageMinutes != 30 {
		t.Fatalf("unexpected month %+v", month)
	}
	if _, err := sm.GetMonthSummary(2024, 13); err == nil {
		t.Fatalf("expected month 13 to be rejected")
	}

	stats := sm.GetDataStatistics()
	if stats.TotalDays != 2 || stats.TotalMinutes != 60 || stats.TotalHours != "1H 0M" {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

func TestManagerSettings(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	value, err := sm.GetSetting(database.SettingAlarmTimes)
	if err != nil || value != defaultAlarmTimes {
		t.Fatalf("expected default alarm times, got %q %v", value, err)
	}
	alarms, err := sm.AlarmTimes()
	if err != nil || len(alarms) != 20 || alarms[0].CronSpec() != "59 3 * * *" {
		t.Fatalf("unexpected alarms %+v %v", alarms, err)
	}

	var changed []string
	sm.OnSettingChange(func(name, value string) {
		changed = append(changed, name+"="+value)
	})

	var validation *database.ValidationError
	if err := sm.SetSetting(database.SettingAppPin, "12a4"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for bad PIN, got %v", err)
	}
	if err := sm.SetSetting(database.SettingAlarmTimes, "7:30,25:00"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for bad alarm time, got %v", err)
	}
	if err := sm.SetSetting(database.SettingSilentMode, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sm.SetSetting(database.SettingAlarmTimes, "7:30, 12:00"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if !sm.SettingEnabled(database.SettingSilentMode) {
		t.Fatalf("expected silent mode on")
	}
	if strings.Join(changed, ";") != "silent_mode=true;alarm_times=7:30, 12:00" {
		t.Fatalf("unexpected notifications %v", changed)
	}
	alarms, _ = sm.AlarmTimes()
	if len(alarms) != 2 || alarms[1].String() != "12:00" {
		t.Fatalf("unexpected alarms %+v", alarms)
	}
}

func TestManagerImportExport(t *testing.T) {
	source, _ := newTestManager(t, t.TempDir())
	defer source.Close()

	if _, err := source.AddMinutesOn("2024-04-29", database.Slot0506, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := source.AddMinutesOn("2024-04-30", database.Slot0607, 45); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := source.SetNotesOn("2024-04-30", "a, b"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	export := source.ExportCSV()
	if !strings.Contains(export.Weekly, "Week 18,2024,Apr 29 - May 5,75,1H 15M,1") {
		t.Fatalf("unexpected weekly export %q", export.Weekly)
	}

	target, _ := newTestManager(t, t.TempDir())
	defer target.Close()
	result, err := target.ImportCSV(export.Daily)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.ImportedCount != 2 || result.ErrorCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	week, err := target.GetWeek("2024-05-01")
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.TotalMinutes != 75 || week.Rank != 1 || week.DaysWithData != 2 {
		t.Fatalf("unexpected imported week %+v", week)
	}
	day, _ := target.GetDay("2024-04-30")
	if day.Notes != "a, b" {
		t.Fatalf("unexpected notes %q", day.Notes)
	}

	if _, err := target.ImportCSV("Date,Day\n"); err == nil {
		t.Fatalf("expected header-only import to fail")
	}
}

func TestManagerBackup(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	path, err := sm.Backup()
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Fatalf("unexpected backup path %s", path)
	}
}

func TestManagerConcurrentWrites(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sm.AddMinutes(database.Other, 1); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	today, _ := sm.GetToday()
	if today.Slots[database.Other] != 20 || today.TotalMinutes != 20 {
		t.Fatalf("expected 20 minutes, got %d", today.TotalMinutes)
	}
}

func TestManagerJSONExportImport(t *testing.T) {
	source, _ := newTestManager(t, t.TempDir())
	defer source.Close()
	if _, err := source.AddMinutes(database.Slot0910, 50); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := source.AddMinutesOn("2024-04-22", database.Other, 200); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := source.SetNotes("from the other device"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	if err := source.SetSetting(database.SettingAlarmTimes, "6:30,20:00"); err != nil {
		t.Fatalf("setting: %v", err)
	}
	data, err := source.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dir := t.TempDir()
	target, _ := newTestManager(t, dir)
	if _, err := target.AddMinutes(database.Slot0506, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := target.AddMinutesOn("2024-04-30", database.Slot1213, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	var heard []string
	target.OnSettingChange(func(name, value string) {
		heard = append(heard, name+"="+value)
	})

	result, err := target.ImportJSON(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.ImportedDays != 2 || len(result.SkippedDays) != 0 || len(result.SkippedSettings) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	today, err := target.GetToday()
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.Slots[database.Slot0910] != 50 || today.Slots[database.Slot0506] != 0 || today.Notes != "from the other device" {
		t.Fatalf("expected imported day to replace today, got %+v", today)
	}
	if day, err := target.GetDay("2024-04-30"); err != nil || day.TotalMinutes != 30 {
		t.Fatalf("expected untouched day to survive, got %+v %v", day, err)
	}
	if week := target.GetCurrentWeek(); week.TotalMinutes != 80 || week.Rank != 2 {
		t.Fatalf("expected current week 80 minutes at rank 2, got %+v", week)
	}
	if top := target.GetRankedWeeks(1); len(top) != 1 || top[0].WeekNumber != 17 {
		t.Fatalf("expected imported week 17 on top, got %+v", top)
	}
	if !slices.Contains(heard, database.SettingAlarmTimes+"=6:30,20:00") {
		t.Fatalf("expected alarm listener call, got %v", heard)
	}
	target.Close()

	reopened, _ := newTestManager(t, dir)
	defer reopened.Close()
	if value, _ := reopened.GetSetting(database.SettingAlarmTimes); value != "6:30,20:00" {
		t.Fatalf("expected imported setting to persist, got %q", value)
	}
}

func TestManagerImportJSONRejectsBadInput(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()

	var validation *database.ValidationError
	if _, err := sm.ImportJSON([]byte("{broken")); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for broken json, got %v", err)
	}

	data := []byte(`{
		"dailyData": {
			"2024-04-29": {"slots": {"5-6am": 15}},
			"29.04.2024": {"slots": {"09-10": 30}},
			"2024-04-28": {"slots": {"other": 99999999}}
		},
		"settings": {"app_pin": "12", "theme": "dark"}
	}`)
	result, err := sm.ImportJSON(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.ImportedDays != 1 || result.ImportedSettings != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if strings.Join(result.SkippedDays, ",") != "29.04.2024,2024-04-28" {
		t.Fatalf("unexpected skipped days %v", result.SkippedDays)
	}
	if strings.Join(result.SkippedSettings, ",") != database.SettingAppPin {
		t.Fatalf("unexpected skipped settings %v", result.SkippedSettings)
	}
	if day, err := sm.GetDay("2024-04-29"); err != nil || day.Slots[database.Slot0506] != 15 {
		t.Fatalf("expected alias folded on import, got %+v %v", day, err)
	}
	if pin, _ := sm.GetSetting(database.SettingAppPin); pin != "1234" {
		t.Fatalf("expected invalid pin to be ignored, got %q", pin)
	}
}
