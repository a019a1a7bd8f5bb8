package dto

import "time"

// UsageResponseDTO is returned by GET /usage.
type UsageResponseDTO struct {
	CanConvert bool      `json:"canConvert"`
	Reason     string    `json:"reason,omitempty"`
	IsPro      bool      `json:"isPro"`
	DailyCount int       `json:"dailyCount"`
	DailyLimit int       `json:"dailyLimit"`
	Remaining  int       `json:"remaining"` // -1 for Pro users
	ResetAt    time.Time `json:"resetAt"`
}

// LimitReachedDTO is the 429 body returned when a free user is out of conversions.
type LimitReachedDTO struct {
	Error      string    `json:"error"`
	Reason     string    `json:"reason"`
	DailyCount int       `json:"dailyCount"`
	DailyLimit int       `json:"dailyLimit"`
	ResetAt    time.Time `json:"resetAt"`
}
