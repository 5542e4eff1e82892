package telegram

import (
	"fmt"
	"html"
	"log"
	"sort"
	"strings"

	"productivity-timer/internal/database"
	"productivity-timer/internal/services"
	"productivity-timer/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handlers.go - bot command handlers

const helpText = `🎯 <b>Productivity Timer</b>

Commands:
/today - today's buckets
/add [bucket|now] [minutes] - add minutes
/set [bucket|now] [minutes] - replace minutes
/notes [text] - today's notes
/day [YYYY-MM-DD] - any stored day
/week [YYYY-MM-DD] - week rollup and rank
/rank [N] - top N weeks
/stats - totals over all data
/month [YYYY-MM] - month summary
/recent [N] - last N days
/export - daily and weekly CSV plus the JSON store
/import - send a CSV or .json file with this caption
/backup - copy the store now
/setting [name] [value] - read or change a setting
/help - this message

Buckets: 05-06 ... 20-21 and other, or now for the current hour.

Example:
/add now 25
/set 09-10 60`

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)
}

func (b *Bot) handleToday(msg *tgbotapi.Message) {
	rec, err := b.services.GetToday()
	if err != nil && rec == nil {
		b.replyError("Failed to read today", err)
		return
	}
	b.SendMessageOrLogError(formatDay(rec, b.services.CurrentBucket()))
}

func (b *Bot) handleAdd(msg *tgbotapi.Message) {
	bucket, minutes, err := parseSlotArgs(msg.CommandArguments(), b.services.CurrentBucket())
	if err != nil {
		b.replyError("Failed to read arguments", err)
		return
	}

	rec, err := b.services.AddMinutes(bucket, minutes)
	if err != nil {
		b.replyError("Failed to add minutes", err)
		return
	}

	b.SendMessageOrLogError(fmt.Sprintf("✅ %s: %s\n%s",
		utils.GetBucketName(bucket), utils.FormatMinutes(rec.Slots[bucket]), formatDayTotal(rec)))
}

func (b *Bot) handleSet(msg *tgbotapi.Message) {
	bucket, minutes, err := parseSlotArgs(msg.CommandArguments(), b.services.CurrentBucket())
	if err != nil {
		b.replyError("Failed to read arguments", err)
		return
	}

	rec, err := b.services.SetMinutes(bucket, minutes)
	if err != nil {
		b.replyError("Failed to set minutes", err)
		return
	}

	b.SendMessageOrLogError(fmt.Sprintf("✏️ %s set to %s\n%s",
		utils.GetBucketName(bucket), utils.FormatMinutes(minutes), formatDayTotal(rec)))
}

func (b *Bot) handleNotes(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		rec, err := b.services.GetToday()
		if err != nil && rec == nil {
			b.replyError("Failed to read today", err)
			return
		}
		if rec.Notes == "" {
			b.SendMessageOrLogError("📝 No notes today. Use /notes [text]")
			return
		}
		b.SendMessageOrLogError("📝 " + html.EscapeString(rec.Notes))
		return
	}

	if _, err := b.services.SetNotes(text); err != nil {
		b.replyError("Failed to save notes", err)
		return
	}
	b.SendMessageOrLogError("📝 Notes saved")
}

func (b *Bot) handleDay(msg *tgbotapi.Message) {
	date := strings.TrimSpace(msg.CommandArguments())
	if date == "" {
		date = b.services.Today()
	}

	rec, err := b.services.GetDay(date)
	if err != nil {
		b.replyError("Failed to read day", err)
		return
	}
	b.SendMessageOrLogError(formatDay(rec, ""))
}

func (b *Bot) handleWeek(msg *tgbotapi.Message) {
	date := strings.TrimSpace(msg.CommandArguments())
	if date == "" {
		b.SendMessageOrLogError(services.FormatWeekStats(b.services.GetWeekStats()))
		return
	}

	week, err := b.services.GetWeek(date)
	if err != nil {
		b.replyError("Failed to read week", err)
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("📈 <b>Week %d, %d</b>\n📅 %s\n\n⏱ Total: %s (%d days with data)\n%s",
		week.WeekNumber, week.Year, week.DateRange, week.TotalHours, week.DaysWithData,
		formatRankLine(services.WeekRank{Rank: week.Rank, Of: len(b.services.GetRankedWeeks(0))})))
}

func (b *Bot) handleRank(msg *tgbotapi.Message) {
	limit, err := parseCountArg(msg.CommandArguments(), 10)
	if err != nil {
		b.replyError("Failed to read count", err)
		return
	}
	b.SendMessageOrLogError(services.FormatRanking(b.services.GetRankedWeeks(limit)))
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	stats := b.services.GetDataStatistics()
	weekStats := b.services.GetWeekStats()
	b.SendMessageOrLogError(fmt.Sprintf("📊 <b>All data</b>\n\n📅 Days stored: %d\n⏱ Total: %s\n🗓 Weeks ranked: %d of %d\n📈 Average week: %s",
		stats.TotalDays, stats.TotalHours, weekStats.RankedWeeks, weekStats.TotalWeeks, weekStats.AverageHours))
}

func (b *Bot) handleMonth(msg *tgbotapi.Message) {
	today, err := database.ParseDate(b.services.Today())
	if err != nil {
		b.replyError("Failed to read today", err)
		return
	}
	year, month, err := parseMonthArg(msg.CommandArguments(), today)
	if err != nil {
		b.replyError("Failed to read month", err)
		return
	}

	summary, err := b.services.GetMonthSummary(year, month)
	if err != nil {
		b.replyError("Failed to read month", err)
		return
	}
	b.SendMessageOrLogError(formatMonth(summary))
}

func (b *Bot) handleRecent(msg *tgbotapi.Message) {
	n, err := parseCountArg(msg.CommandArguments(), 7)
	if err != nil {
		b.replyError("Failed to read count", err)
		return
	}

	days, err := b.services.GetRecentDays(n)
	if err != nil {
		b.replyError("Failed to read recent days", err)
		return
	}
	b.SendMessageOrLogError(formatDaySummaries(fmt.Sprintf("Last %d days", n), days))
}

func (b *Bot) handleExport(msg *tgbotapi.Message) {
	export := b.services.ExportCSV()
	today := b.services.Today()

	if err := b.sendDocument("daily-"+today+".csv", export.Daily); err != nil {
		log.Printf("❌ Failed to send daily export: %v", err)
		b.SendMessageOrLogError("❌ Export failed")
		return
	}
	if err := b.sendDocument("weekly-"+today+".csv", export.Weekly); err != nil {
		log.Printf("❌ Failed to send weekly export: %v", err)
		b.SendMessageOrLogError("❌ Export failed")
		return
	}

	store, err := b.services.ExportJSON()
	if err != nil {
		log.Printf("❌ Failed to encode store export: %v", err)
		b.SendMessageOrLogError("❌ Export failed")
		return
	}
	if err := b.sendDocument("productivity-data-"+today+".json", string(store)); err != nil {
		log.Printf("❌ Failed to send store export: %v", err)
		b.SendMessageOrLogError("❌ Export failed")
	}
}

func (b *Bot) handleImportHint(msg *tgbotapi.Message) {
	b.SendMessageOrLogError("📎 Send a daily CSV or an exported .json store as a file with the caption /import")
}

func (b *Bot) handleImport(msg *tgbotapi.Message) {
	if msg.Document.FileSize > maxImportBytes {
		b.SendMessageOrLogError("❌ File is too large")
		return
	}

	data, err := b.downloadDocument(msg.Document.FileID)
	if err != nil {
		log.Printf("❌ Failed to download import: %v", err)
		b.SendMessageOrLogError("❌ Could not download the file")
		return
	}

	if isJSONFile(msg.Document.FileName) {
		b.importJSON(data)
		return
	}

	result, err := b.services.ImportCSV(string(data))
	if err != nil && result.ImportedCount == 0 {
		b.replyError("Import failed", err)
		return
	}
	if err != nil {
		log.Printf("⚠️ Import saved in memory only: %v", err)
	}
	b.SendMessageOrLogError(formatImportResult(result))
}

func (b *Bot) importJSON(data []byte) {
	result, err := b.services.ImportJSON(data)
	if err != nil && result.ImportedDays == 0 && result.ImportedSettings == 0 {
		b.replyError("Import failed", err)
		return
	}
	if err != nil {
		log.Printf("⚠️ Import saved in memory only: %v", err)
	}
	b.SendMessageOrLogError(formatJSONImportResult(result))
}

func (b *Bot) handleBackup(msg *tgbotapi.Message) {
	path, err := b.services.Backup()
	if err != nil {
		b.replyError("Backup failed", err)
		return
	}
	b.SendMessageOrLogError("💾 Backup saved to " + html.EscapeString(path))
}

func (b *Bot) handleSetting(msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	switch len(fields) {
	case 0:
		var names []string
		for name := range services.DefaultSettings {
			names = append(names, name)
		}
		sort.Strings(names)
		var message strings.Builder
		message.WriteString("⚙️ <b>Settings</b>\n\n")
		for _, name := range names {
			value, err := b.services.GetSetting(name)
			if err != nil {
				value = "-"
			}
			message.WriteString(fmt.Sprintf("%s = %s\n", name, html.EscapeString(value)))
		}
		b.SendMessageOrLogError(strings.TrimRight(message.String(), "\n"))
	case 1:
		value, err := b.services.GetSetting(fields[0])
		if err != nil {
			b.replyError("Failed to read setting", err)
			return
		}
		b.SendMessageOrLogError(fmt.Sprintf("⚙️ %s = %s", html.EscapeString(fields[0]), html.EscapeString(value)))
	default:
		name := fields[0]
		value := strings.Join(fields[1:], " ")
		if err := b.services.SetSetting(name, value); err != nil {
			b.replyError("Failed to save setting", err)
			return
		}
		b.SendMessageOrLogError(fmt.Sprintf("✅ %s = %s", html.EscapeString(name), html.EscapeString(value)))
	}
}
