package model

// SchedulingIntent is a candidate calendar event inferred from message text.
// It is produced fresh on every extraction and never persisted.
type SchedulingIntent struct {
	Title string `json:"title"`

	// Date is formatted as YYYY-MM-DD.
	Date string `json:"date"`

	// Time is a 24-hour HH:MM string. It is not validated.
	Time string `json:"time"`

	TimeZone string `json:"timezone"`
}
