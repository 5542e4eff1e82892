package utils

import "productivity-timer/internal/database"

// GetBucketName returns the display label of a bucket, or the raw id.
func GetBucketName(id database.BucketID) string {
	if label, ok := database.BucketLabels[id]; ok {
		return label
	}
	return string(id)
}

// GetBucketEmoji groups buckets by time of day.
func GetBucketEmoji(id database.BucketID) string {
	switch id {
	case database.Slot0506, database.Slot0607, database.Slot0708, database.Slot0809:
		return "🌅"
	case database.Slot0910, database.Slot1011, database.Slot1112, database.Slot1213:
		return "☀️"
	case database.Slot1314, database.Slot1415, database.Slot1516, database.Slot1617:
		return "🌤"
	case database.Slot1718, database.Slot1819, database.Slot1920, database.Slot2021:
		return "🌆"
	default:
		return "📌"
	}
}
