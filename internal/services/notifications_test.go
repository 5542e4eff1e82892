package services

import (
	"strings"
	"testing"

	"productivity-timer/internal/database"
)

type recordingSender struct {
	messages []string
	alarms   []AlarmNotification
}

func (s *recordingSender) SendMessage(text string) error {
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) SendAlarmNotification(alarm AlarmNotification) error {
	s.alarms = append(s.alarms, alarm)
	return nil
}

func TestSendAlarmReportsCurrentBucket(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()
	sender := &recordingSender{}
	sm.SetNotificationSender(sender)

	if _, err := sm.AddMinutes(database.Slot1011, 25); err != nil {
		t.Fatalf("add: %v", err)
	}
	sm.Notification.SendAlarm(AlarmTime{Hour: 10, Minute: 59})

	if len(sender.alarms) != 1 {
		t.Fatalf("expected one alarm, got %d", len(sender.alarms))
	}
	alarm := sender.alarms[0]
	if alarm.Time != "10:59" || alarm.Date != "2024-05-01" || alarm.Bucket != database.Slot1011 {
		t.Fatalf("unexpected alarm %+v", alarm)
	}
	if alarm.BucketMinutes != 25 || alarm.TotalMinutes != 25 || alarm.Rank.Rank != 1 {
		t.Fatalf("unexpected alarm numbers %+v", alarm)
	}
}

func TestSendAlarmSilentMode(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()
	sender := &recordingSender{}
	sm.SetNotificationSender(sender)

	if err := sm.SetSetting(database.SettingSilentMode, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	sm.Notification.SendAlarm(AlarmTime{Hour: 10, Minute: 59})

	if len(sender.alarms) != 0 {
		t.Fatalf("expected no alarm in silent mode")
	}
}

func TestDailySummaryAndRanking(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()
	sender := &recordingSender{}
	sm.SetNotificationSender(sender)

	if _, err := sm.AddMinutes(database.Slot0506, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sm.AddMinutes(database.Slot0607, 45); err != nil {
		t.Fatalf("add: %v", err)
	}

	sm.Notification.SendDailySummary()
	sm.Notification.SendWeeklyRanking()

	if len(sender.messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(sender.messages))
	}
	summary := sender.messages[0]
	if !strings.Contains(summary, "Total: 1H 15M") || !strings.Contains(summary, "5-6 AM: 0H 30M") {
		t.Fatalf("unexpected summary %q", summary)
	}
	ranking := sender.messages[1]
	if !strings.Contains(ranking, "Rank 1 of 1") || !strings.Contains(ranking, "1. Week 18, 2024") {
		t.Fatalf("unexpected ranking %q", ranking)
	}
}

func TestFormatRankingEmpty(t *testing.T) {
	if got := FormatRanking(nil); !strings.Contains(got, "No ranked weeks") {
		t.Fatalf("unexpected empty ranking %q", got)
	}
}

func TestDailySummaryEscapesNotes(t *testing.T) {
	sm, _ := newTestManager(t, t.TempDir())
	defer sm.Close()
	sender := &recordingSender{}
	sm.SetNotificationSender(sender)

	if _, err := sm.SetNotes("focus <3 & rest"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	sm.Notification.SendDailySummary()

	if len(sender.messages) != 1 {
		t.Fatalf("expected one summary, got %d", len(sender.messages))
	}
	got := sender.messages[0]
	if !strings.Contains(got, "📝 focus &lt;3 &amp; rest") {
		t.Fatalf("expected escaped notes in %q", got)
	}
	if strings.Contains(got, "<3") {
		t.Fatalf("raw notes leaked into %q", got)
	}
}
