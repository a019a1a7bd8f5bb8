package model

import "time"

type ConversionStatus string

const (
	ConversionPending   ConversionStatus = "pending"
	ConversionCompleted ConversionStatus = "completed"
	ConversionFailed    ConversionStatus = "failed"
)

// ConversionRecord is one row of a user's conversion history.
type ConversionRecord struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	OriginalName  string           `db:"original_name" json:"original_name"`
	FileSizeBytes int64            `db:"file_size_bytes" json:"file_size_bytes"`
	Status        ConversionStatus `db:"status" json:"status"`
	StorageKey    *string          `db:"storage_key" json:"storage_key,omitempty"`
	ErrorMessage  *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}
