package dto

import "time"

// ConversionResponseDTO is returned after a successful conversion.
type ConversionResponseDTO struct {
	ConversionID string    `json:"conversionId"`
	FileName     string    `json:"fileName"`
	DownloadURL  string    `json:"downloadUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsPro        bool      `json:"isPro"`
}

// ConversionHistoryDTO is one entry of the user's recent conversions.
type ConversionHistoryDTO struct {
	ConversionID   string    `json:"conversionId"`
	SourceFileName string    `json:"sourceFileName"`
	Status         string    `json:"status"`
	SizeBytes      int64     `json:"sizeBytes"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
