package telegram

import (
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"productivity-timer/internal/database"
	"productivity-timer/internal/services"
	"productivity-timer/internal/utils"
)

func (b *Bot) SendMessageOrLogError(message string) {
	if err := b.SendMessage(message); err != nil {
		log.Printf("❌ Failed to send message: %v", err)
	}
}

// replyError shows validation problems to the user and logs everything else.
func (b *Bot) replyError(action string, err error) {
	var validation *database.ValidationError
	switch {
	case errors.As(err, &validation):
		b.SendMessageOrLogError("❌ " + html.EscapeString(validation.Error()))
	case errors.Is(err, database.ErrNotFound):
		b.SendMessageOrLogError("📭 Nothing recorded")
	default:
		log.Printf("❌ %s: %v", action, err)
		b.SendMessageOrLogError("❌ " + action)
	}
}

func formatRankLine(rank services.WeekRank) string {
	if rank.Rank == 0 {
		return fmt.Sprintf("🏆 Week unranked (%d ranked)", rank.Of)
	}
	return fmt.Sprintf("🏆 Week rank %d of %d", rank.Rank, rank.Of)
}

func formatDayTotal(rec *database.DailyRecord) string {
	return fmt.Sprintf("⏱ %s total: %s", rec.Date, utils.FormatMinutes(rec.TotalMinutes))
}

// formatDay lists every bucket of a day, empty ones included.
func formatDay(rec *database.DailyRecord, current database.BucketID) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 <b>%s, %s</b>\n\n", rec.DayName, rec.Date))
	for _, id := range database.Buckets {
		marker := ""
		if id == current {
			marker = " ◀"
		}
		message.WriteString(fmt.Sprintf("%s %s: %s%s\n",
			utils.GetBucketEmoji(id), utils.GetBucketName(id), utils.FormatMinutes(rec.Slots[id]), marker))
	}
	message.WriteString("\n" + formatDayTotal(rec))
	if rec.Notes != "" {
		message.WriteString("\n📝 " + html.EscapeString(rec.Notes))
	}
	return message.String()
}

func formatDaySummaries(title string, days []services.DaySummary) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("📆 <b>%s</b>\n\n", title))
	for _, day := range days {
		message.WriteString(fmt.Sprintf("%s %s: %s\n", day.Date, day.DayName, day.TotalHours))
	}
	return strings.TrimRight(message.String(), "\n")
}

func formatMonth(summary services.MonthSummary) string {
	title := fmt.Sprintf("%s %d", summary.Month, summary.Year)
	if summary.TotalDays == 0 {
		return fmt.Sprintf("📭 Nothing recorded in %s", title)
	}
	message := formatDaySummaries(title, summary.Days)
	message += fmt.Sprintf("\n\n⏱ Total: %s over %d days\n📊 Average: %s\n🥇 Best: %s\n🐢 Worst: %s",
		utils.FormatMinutes(summary.TotalMinutes), summary.TotalDays,
		utils.FormatMinutes(summary.AverageMinutes),
		utils.FormatMinutes(summary.BestDay),
		utils.FormatMinutes(summary.WorstDay))
	return message
}

func formatImportResult(result services.ImportResult) string {
	message := fmt.Sprintf("📥 Imported %d of %d rows", result.ImportedCount, result.TotalRows)
	if result.ErrorCount == 0 {
		return message
	}
	message += fmt.Sprintf("\n⚠️ %d rows skipped", result.ErrorCount)
	for i, rowErr := range result.Errors {
		if i == 5 {
			message += "\n..."
			break
		}
		message += "\n• " + html.EscapeString(rowErr.Error())
	}
	return message
}

func formatJSONImportResult(result services.JSONImportResult) string {
	message := fmt.Sprintf("📥 Imported %d days and %d settings", result.ImportedDays, result.ImportedSettings)
	if len(result.SkippedDays) > 0 {
		message += fmt.Sprintf("\n⚠️ Days skipped: %s", html.EscapeString(strings.Join(result.SkippedDays, ", ")))
	}
	if len(result.SkippedSettings) > 0 {
		message += fmt.Sprintf("\n⚠️ Settings skipped: %s", html.EscapeString(strings.Join(result.SkippedSettings, ", ")))
	}
	return message
}
