package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"productivity-timer/internal/database"
	"productivity-timer/internal/services"
	"productivity-timer/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxImportBytes = 5 << 20

type Bot struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	services   *services.ServiceManager
	handlers   map[string]func(*tgbotapi.Message)
	httpClient *http.Client
}

func NewBot(token string, chatID int64, serviceManager *services.ServiceManager) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		bot:        botAPI,
		chatID:     chatID,
		services:   serviceManager,
		handlers:   make(map[string]func(*tgbotapi.Message)),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	bot.registerHandlers()
	log.Printf("🤖 Bot initialized: %s", botAPI.Self.UserName)
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.handlers["start"] = b.handleStart
	b.handlers["today"] = b.handleToday
	b.handlers["add"] = b.handleAdd
	b.handlers["set"] = b.handleSet
	b.handlers["notes"] = b.handleNotes
	b.handlers["day"] = b.handleDay
	b.handlers["week"] = b.handleWeek
	b.handlers["rank"] = b.handleRank
	b.handlers["stats"] = b.handleStats
	b.handlers["month"] = b.handleMonth
	b.handlers["recent"] = b.handleRecent
	b.handlers["export"] = b.handleExport
	b.handlers["import"] = b.handleImportHint
	b.handlers["backup"] = b.handleBackup
	b.handlers["setting"] = b.handleSetting
	b.handlers["help"] = b.handleHelp
}

func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.bot.Send(msg)
	return err
}

// SendAlarmNotification shows where the current hour stands and offers
// quick-add buttons for it.
func (b *Bot) SendAlarmNotification(alarm services.AlarmNotification) error {
	message := fmt.Sprintf(
		"⏰ <b>%s</b>\n\n"+
			"%s %s: %s\n"+
			"📅 Today: %s\n"+
			"%s",
		alarm.Time,
		utils.GetBucketEmoji(alarm.Bucket), utils.GetBucketName(alarm.Bucket), utils.FormatMinutes(alarm.BucketMinutes),
		utils.FormatMinutes(alarm.TotalMinutes),
		formatRankLine(alarm.Rank),
	)

	if err := b.SendMessage(message); err != nil {
		return err
	}

	actionMsg := tgbotapi.NewMessage(b.chatID, "Log time for this hour?")
	actionMsg.ReplyMarkup = b.createQuickAddKeyboard(alarm.Bucket)
	_, err := b.bot.Send(actionMsg)
	return err
}

func (b *Bot) createQuickAddKeyboard(bucket database.BucketID) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, minutes := range quickAddMinutes {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("+%d", minutes), addCallbackData(bucket, minutes)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) GetUsername() string {
	return b.bot.Self.UserName
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		log.Printf("⛔ Ignored message from chat %d", update.Message.Chat.ID)
		return
	}

	b.handleMessage(update.Message)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.Document != nil && strings.HasPrefix(strings.TrimSpace(msg.Caption), "/import") {
		b.handleImport(msg)
		return
	}

	if !msg.IsCommand() {
		return
	}

	if handler, exists := b.handlers[msg.Command()]; exists {
		handler(msg)
	} else {
		b.SendMessageOrLogError("❌ Unknown command. Use /help")
	}
}

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	defer func(bot *tgbotapi.BotAPI, c tgbotapi.Chattable) {
		_, err := bot.Request(c)
		if err != nil {
			log.Printf("⚠️ Callback answer failed: %v", err)
		}
	}(b.bot, tgbotapi.NewCallback(callback.ID, "✅"))

	if callback.Message == nil || callback.Message.Chat.ID != b.chatID {
		return
	}

	data := callback.Data
	log.Printf("Received callback: %s", data)

	if strings.HasPrefix(data, callbackAddPrefix) {
		b.handleQuickAdd(data, callback.Message.MessageID)
	}
}

// handleQuickAdd adds the minutes of an alarm button and removes the
// keyboard so it cannot be pressed twice.
func (b *Bot) handleQuickAdd(data string, messageID int) {
	bucket, minutes, err := parseAddCallback(data)
	if err != nil {
		b.SendMessageOrLogError("❌ Could not read the button")
		log.Printf("⚠️ Bad callback %q: %v", data, err)
		return
	}

	rec, err := b.services.AddMinutes(bucket, minutes)
	if err != nil {
		b.replyError("Failed to add minutes", err)
		return
	}

	b.safeDeleteMessage(messageID)
	b.SendMessageOrLogError(fmt.Sprintf("✅ +%d min to %s\n%s", minutes, utils.GetBucketName(bucket), formatDayTotal(rec)))
}

// downloadDocument fetches an uploaded file through the Bot API file URL.
func (b *Bot) downloadDocument(fileID string) ([]byte, error) {
	url, err := b.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportBytes))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

func (b *Bot) sendDocument(name string, content string) error {
	doc := tgbotapi.NewDocument(b.chatID, tgbotapi.FileBytes{Name: name, Bytes: []byte(content)})
	_, err := b.bot.Send(doc)
	return err
}

func (b *Bot) safeDeleteMessage(messageID int) {
	deleteConfig := tgbotapi.NewDeleteMessage(b.chatID, messageID)

	resp, err := b.bot.Request(deleteConfig)
	if err != nil {
		log.Printf("⚠️ Failed to delete message %d: %v", messageID, err)
		return
	}

	var ok bool
	if err := json.Unmarshal(resp.Result, &ok); err != nil {
		log.Printf("⚠️ Could not decode delete response for message %d: %v", messageID, err)
		return
	}
	if ok {
		log.Printf("✅ Message %d deleted", messageID)
	}
}
