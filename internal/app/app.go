package app

import (
	"context"
	"log"
	"sync"

	"productivity-timer/internal/config"
	"productivity-timer/internal/database"
	"productivity-timer/internal/services"
	"productivity-timer/internal/telegram"
	"productivity-timer/internal/utils"

	"github.com/robfig/cron/v3"
)

type Application struct {
	config     *config.Config
	bot        *telegram.Bot
	services   *services.ServiceManager
	cron       *cron.Cron
	cancelFunc context.CancelFunc
	ctx        context.Context

	alarmMu  sync.Mutex
	alarmIDs []cron.EntryID
}

func New(cfg *config.Config) (*Application, error) {
	loc := utils.LoadLocation(cfg.Timezone)

	var backend services.Backend
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		backend = database.NewSQLiteStore(cfg.Storage.Path)
	default:
		backend = database.NewJSONStore(cfg.Storage.Path)
	}

	gateway := services.NewGateway(backend, cfg.Storage.BackupDir, nil)
	serviceManager, loadResult := services.NewServiceManager(gateway, loc, nil)

	app := &Application{
		config:   cfg,
		services: serviceManager,
		cron:     cron.New(cron.WithLocation(loc)),
	}

	var sender services.NotificationSender = services.LogSender{}
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, serviceManager)
		if err != nil {
			serviceManager.Close()
			return nil, err
		}
		app.bot = bot
		sender = bot
	} else {
		log.Println("ℹ️ Telegram is not configured, notifications go to the log")
	}
	serviceManager.SetNotificationSender(sender)

	if loadResult.LoadErr != nil {
		reportLoadFailure(sender, loadResult)
	}

	app.ctx, app.cancelFunc = context.WithCancel(context.Background())
	app.setupCronJobs()
	serviceManager.OnSettingChange(func(name, value string) {
		if name == database.SettingAlarmTimes {
			app.scheduleAlarms()
		}
	})

	return app, nil
}

// reportLoadFailure tells the user once that the store had to be replaced.
func reportLoadFailure(sender services.NotificationSender, result services.LoadResult) {
	message := "⚠️ The data file could not be read and a fresh store was started."
	if result.BackupPath != "" {
		message += "\n📋 The old file was saved to " + result.BackupPath
	}
	if result.Degraded {
		message += "\n❌ The old file could not be backed up either. Changes are kept in memory only until restart."
	}
	if err := sender.SendMessage(message); err != nil {
		log.Printf("⚠️ Failed to report load failure: %v", err)
	}
}

func (a *Application) Start() error {
	log.Println("🚀 Starting application...")

	if a.bot != nil {
		go a.bot.Start(a.ctx)
	}

	a.cron.Start()

	if _, err := a.services.GetToday(); err != nil {
		log.Printf("⚠️ Failed to initialize today: %v", err)
	}

	if a.bot != nil {
		a.sendWelcomeMessage()
		log.Printf("✅ Application started. Bot: @%s", a.bot.GetUsername())
	} else {
		log.Println("✅ Application started")
	}

	return nil
}

func (a *Application) Stop() error {
	log.Println("🛑 Stopping application...")

	a.cancelFunc()
	<-a.cron.Stop().Done()

	if err := a.services.Close(); err != nil {
		log.Printf("⚠️ Failed to close store: %v", err)
	}

	log.Println("✅ Application stopped")
	return nil
}

func (a *Application) setupCronJobs() {
	a.scheduleAlarms()

	// Day summary at 21:30
	_, err := a.cron.AddFunc("30 21 * * *", func() {
		a.services.Notification.SendDailySummary()
	})
	if err != nil {
		panic(err)
	}

	// Weekly ranking on Sunday at 21:45
	_, err = a.cron.AddFunc("45 21 * * 0", func() {
		a.services.Notification.SendWeeklyRanking()
	})
	if err != nil {
		panic(err)
	}
}

// scheduleAlarms replaces the alarm entries with the ones in alarm_times.
func (a *Application) scheduleAlarms() {
	a.alarmMu.Lock()
	defer a.alarmMu.Unlock()

	for _, id := range a.alarmIDs {
		a.cron.Remove(id)
	}
	a.alarmIDs = nil

	alarms, err := a.services.AlarmTimes()
	if err != nil {
		log.Printf("⚠️ Invalid alarm times, no alarms scheduled: %v", err)
		return
	}

	for _, alarm := range alarms {
		id, err := a.cron.AddFunc(alarm.CronSpec(), func() {
			a.services.Notification.SendAlarm(alarm)
		})
		if err != nil {
			log.Printf("⚠️ Failed to schedule alarm %s: %v", alarm, err)
			continue
		}
		a.alarmIDs = append(a.alarmIDs, id)
	}
	log.Printf("⏰ Alarms scheduled: %d", len(a.alarmIDs))
}

func (a *Application) sendWelcomeMessage() {
	message := `🎯 <b>Productivity Timer</b>

Tracking started for ` + a.services.Today() + `

/today - today's buckets
/add [bucket|now] [minutes] - add minutes
/set [bucket|now] [minutes] - replace minutes
/week - this week and its rank
/rank - top weeks
/export - CSV export
/help - all commands`

	a.bot.SendMessageOrLogError(message)
}
