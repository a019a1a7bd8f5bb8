package model

import "time"

// DefaultDailyFreeLimit is the number of conversions a free user gets per UTC day.
const DefaultDailyFreeLimit = 10

// UsageRecord is a user's conversion counter for a single UTC calendar day.
type UsageRecord struct {
	UserID          string    `db:"user_id" json:"user_id"`
	DailyCount      int       `db:"daily_count" json:"daily_count"`
	LastCountedDate time.Time `db:"last_counted_date" json:"last_counted_date"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UTCDay truncates t to midnight UTC of its calendar day.
func UTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCDay returns the next UTC midnight after t, which is when daily counters reset.
func NextUTCDay(t time.Time) time.Time {
	return UTCDay(t).AddDate(0, 0, 1)
}

// IsStale reports whether the record was last counted before day.
func (u *UsageRecord) IsStale(day time.Time) bool {
	return UTCDay(u.LastCountedDate).Before(UTCDay(day))
}
