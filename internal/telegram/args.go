package telegram

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"productivity-timer/internal/database"
)

const callbackAddPrefix = "add_"

// quickAddMinutes are the buttons attached to every alarm.
var quickAddMinutes = []int{15, 30, 60}

// parseBucketArg accepts a canonical bucket id or "now" for the bucket of
// the current hour.
func parseBucketArg(raw string, current database.BucketID) (database.BucketID, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "now" {
		return current, nil
	}
	return database.ParseBucket(raw)
}

func parseMinutesArg(raw string) (int, error) {
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &database.ValidationError{Field: "minutes", Value: raw, Reason: "must be a whole number"}
	}
	if minutes < 0 {
		return 0, &database.ValidationError{Field: "minutes", Value: raw, Reason: "must not be negative"}
	}
	return minutes, nil
}

// parseSlotArgs reads "[bucket|now] minutes". A lone number applies to the
// current bucket.
func parseSlotArgs(args string, current database.BucketID) (database.BucketID, int, error) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 1:
		minutes, err := parseMinutesArg(fields[0])
		return current, minutes, err
	case 2:
		bucket, err := parseBucketArg(fields[0], current)
		if err != nil {
			return "", 0, err
		}
		minutes, err := parseMinutesArg(fields[1])
		return bucket, minutes, err
	default:
		return "", 0, &database.ValidationError{Field: "arguments", Value: args, Reason: "expected [bucket|now] minutes"}
	}
}

func addCallbackData(bucket database.BucketID, minutes int) string {
	return fmt.Sprintf("%s%s_%d", callbackAddPrefix, bucket, minutes)
}

// parseAddCallback reads data produced by addCallbackData.
func parseAddCallback(data string) (database.BucketID, int, error) {
	rest, ok := strings.CutPrefix(data, callbackAddPrefix)
	if !ok {
		return "", 0, fmt.Errorf("unexpected callback %q", data)
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed callback %q", data)
	}
	bucket, err := database.ParseBucket(rest[:i])
	if err != nil {
		return "", 0, err
	}
	minutes, err := parseMinutesArg(rest[i+1:])
	if err != nil {
		return "", 0, err
	}
	return bucket, minutes, nil
}

// parseMonthArg reads YYYY-MM, defaulting to the month of today.
func parseMonthArg(raw string, today time.Time) (int, time.Month, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today.Year(), today.Month(), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, &database.ValidationError{Field: "month", Value: raw, Reason: "expected YYYY-MM"}
	}
	return t.Year(), t.Month(), nil
}

// parseCountArg reads an optional positive count.
func parseCountArg(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &database.ValidationError{Field: "count", Value: raw, Reason: "must be a positive number"}
	}
	return n, nil
}

// isJSONFile tells a store export from a CSV upload by its file name.
func isJSONFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
