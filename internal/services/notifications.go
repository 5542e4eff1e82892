package services

import (
	"fmt"
	"html"
	"log"
	"strings"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

// NotificationSender delivers messages to the user.
type NotificationSender interface {
	SendMessage(text string) error
	SendAlarmNotification(alarm AlarmNotification) error
}

// AlarmNotification is what an alarm tells the user: where the current hour
// stands and what today adds up to so far.
type AlarmNotification struct {
	Time          string
	Date          string
	Bucket        database.BucketID
	BucketMinutes int
	TotalMinutes  int
	Rank          WeekRank
}

type NotificationService struct {
	sender  NotificationSender
	manager *ServiceManager
}

func NewNotificationService(sender NotificationSender, manager *ServiceManager) *NotificationService {
	return &NotificationService{
		sender:  sender,
		manager: manager,
	}
}

// SendAlarm fires one scheduled alarm unless silent mode is on.
func (ns *NotificationService) SendAlarm(at AlarmTime) {
	if ns.manager.SettingEnabled(database.SettingSilentMode) {
		log.Printf("🔕 Silent mode, alarm %s skipped", at)
		return
	}

	today, err := ns.manager.GetToday()
	if err != nil {
		log.Printf("⚠️ Failed to read today: %v", err)
		return
	}
	bucket := ns.manager.CurrentBucket()

	alarm := AlarmNotification{
		Time:          at.String(),
		Date:          today.Date,
		Bucket:        bucket,
		BucketMinutes: today.Slots[bucket],
		TotalMinutes:  today.TotalMinutes,
		Rank:          ns.manager.GetCurrentWeekRank(),
	}

	log.Printf("🔔 Alarm %s: %s has %d minutes", alarm.Time, bucket, alarm.BucketMinutes)
	if err := ns.sender.SendAlarmNotification(alarm); err != nil {
		log.Printf("❌ Failed to send alarm: %v", err)
	}
}

// SendDailySummary sends today's total and its non-empty buckets.
func (ns *NotificationService) SendDailySummary() {
	today, err := ns.manager.GetToday()
	if err != nil {
		log.Printf("⚠️ Failed to read today: %v", err)
		return
	}
	breakdown, err := ns.manager.GetHourlyBreakdown(today.Date)
	if err != nil {
		log.Printf("⚠️ Failed to read breakdown: %v", err)
		return
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("📊 <b>Day summary %s</b>\n\n", today.Date))
	message.WriteString(fmt.Sprintf("⏱ Total: %s\n\n", utils.FormatMinutes(today.TotalMinutes)))
	for _, item := range breakdown {
		message.WriteString(fmt.Sprintf("%s %s: %s\n", utils.GetBucketEmoji(item.Bucket), item.Label, item.Hours))
	}
	if today.Notes != "" {
		message.WriteString(fmt.Sprintf("\n📝 %s\n", html.EscapeString(today.Notes)))
	}

	if err := ns.sender.SendMessage(message.String()); err != nil {
		log.Printf("❌ Failed to send day summary: %v", err)
	}
}

// SendWeeklyRanking sends the current week's standing and the top weeks.
func (ns *NotificationService) SendWeeklyRanking() {
	stats := ns.manager.GetWeekStats()
	top := ns.manager.GetRankedWeeks(5)

	if err := ns.sender.SendMessage(FormatWeekStats(stats) + "\n\n" + FormatRanking(top)); err != nil {
		log.Printf("❌ Failed to send weekly ranking: %v", err)
	}
}

// FormatWeekStats renders week stats as chat HTML.
func FormatWeekStats(stats WeekStats) string {
	week := stats.CurrentWeek
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Week %d, %d</b>\n", week.WeekNumber, week.Year))
	b.WriteString(fmt.Sprintf("📅 %s\n\n", week.DateRange))
	b.WriteString(fmt.Sprintf("⏱ Total: %s (%d days with data)\n", week.TotalHours, week.DaysWithData))
	if stats.CurrentRank.Rank > 0 {
		b.WriteString(fmt.Sprintf("🏆 Rank %d of %d\n", stats.CurrentRank.Rank, stats.CurrentRank.Of))
	} else {
		b.WriteString(fmt.Sprintf("🏆 Unranked (%d ranked weeks)\n", stats.CurrentRank.Of))
	}
	b.WriteString(fmt.Sprintf("📊 Average week: %s", stats.AverageHours))
	if stats.BestWeek != nil {
		b.WriteString(fmt.Sprintf("\n🥇 Best: week %d, %d (%s)", stats.BestWeek.WeekNumber, stats.BestWeek.Year, stats.BestWeek.TotalHours))
	}
	return b.String()
}

// FormatRanking renders ranked weeks as chat HTML.
func FormatRanking(weeks []*database.WeeklyRecord) string {
	if len(weeks) == 0 {
		return "📭 No ranked weeks yet"
	}
	var b strings.Builder
	b.WriteString("🏆 <b>Top weeks</b>\n")
	for _, week := range weeks {
		b.WriteString(fmt.Sprintf("%d. Week %d, %d (%s): %s\n", week.Rank, week.WeekNumber, week.Year, week.DateRange, week.TotalHours))
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogSender is used when no chat is configured.
type LogSender struct{}

func (LogSender) SendMessage(text string) error {
	log.Printf("📨 %s", text)
	return nil
}

func (LogSender) SendAlarmNotification(alarm AlarmNotification) error {
	log.Printf("⏰ %s %s: %s in %s, %s today",
		alarm.Date, alarm.Time,
		utils.FormatMinutes(alarm.BucketMinutes), utils.GetBucketName(alarm.Bucket),
		utils.FormatMinutes(alarm.TotalMinutes))
	return nil
}
