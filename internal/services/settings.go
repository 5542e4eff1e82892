package services

import (
	"regexp"
	"strconv"
	"strings"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

const defaultAlarmTimes = "3:59,4:59,5:59,6:59,7:59,8:59,9:59,10:59,11:59,12:59," +
	"13:59,14:59,15:59,16:59,17:59,18:59,19:59,20:59,21:59,22:59"

// DefaultSettings are written into a store that lacks them.
var DefaultSettings = map[string]string{
	database.SettingAppPin:        "1234",
	database.SettingAlarmTimes:    defaultAlarmTimes,
	database.SettingSilentMode:    "false",
	database.SettingAlarmSound:    "default",
	database.SettingBackupEnabled: "true",
}

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// ApplyDefaultSettings fills in missing settings and reports how many were
// added.
func ApplyDefaultSettings(settings database.Settings) int {
	added := 0
	for name, value := range DefaultSettings {
		if _, ok := settings[name]; !ok {
			settings[name] = value
			added++
		}
	}
	return added
}

// ValidateSetting checks the settings the engine knows the shape of.
// Unknown names are free-form.
func ValidateSetting(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return &database.ValidationError{Field: "setting", Value: name, Reason: "name must not be empty"}
	}
	switch name {
	case database.SettingAppPin:
		if !pinPattern.MatchString(value) {
			return &database.ValidationError{Field: name, Value: value, Reason: "PIN must be exactly 4 digits"}
		}
	case database.SettingAlarmTimes:
		if _, err := ParseAlarmTimes(value); err != nil {
			return &database.ValidationError{Field: name, Value: value, Reason: err.Error()}
		}
	case database.SettingSilentMode, database.SettingBackupEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return &database.ValidationError{Field: name, Value: value, Reason: "must be true or false"}
		}
	}
	return nil
}

// AlarmTime is one daily alarm in local time.
type AlarmTime struct {
	Hour   int
	Minute int
}

func (a AlarmTime) String() string {
	return strconv.Itoa(a.Hour) + ":" + pad2(a.Minute)
}

// CronSpec renders the alarm as a five-field cron expression.
func (a AlarmTime) CronSpec() string {
	return strconv.Itoa(a.Minute) + " " + strconv.Itoa(a.Hour) + " * * *"
}

// ParseAlarmTimes parses a comma separated "H:MM" list. Empty entries are
// ignored; duplicates are kept once.
func ParseAlarmTimes(raw string) ([]AlarmTime, error) {
	var alarms []AlarmTime
	seen := make(map[AlarmTime]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hour, minute, err := utils.ParseClock(part)
		if err != nil {
			return nil, err
		}
		alarm := AlarmTime{Hour: hour, Minute: minute}
		if _, dup := seen[alarm]; dup {
			continue
		}
		seen[alarm] = struct{}{}
		alarms = append(alarms, alarm)
	}
	return alarms, nil
}

func settingBool(settings database.Settings, name string) bool {
	value, ok := settings[name]
	if !ok {
		value = DefaultSettings[name]
	}
	b, _ := strconv.ParseBool(value)
	return b
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
