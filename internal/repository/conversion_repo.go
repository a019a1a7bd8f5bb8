package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversionRepository stores the conversion history shown to users.
type ConversionRepository interface {
	Create(ctx context.Context, rec *model.ConversionRecord) error
	MarkCompleted(ctx context.Context, id, storageKey string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
	ListRecent(ctx context.Context, userID string, limit int) ([]model.ConversionRecord, error)
}

type conversionRepo struct {
	pool *pgxpool.Pool
}

func NewConversionRepo(pool *pgxpool.Pool) ConversionRepository {
	return &conversionRepo{pool: pool}
}

func (r *conversionRepo) Create(ctx context.Context, rec *model.ConversionRecord) error {
	const q = `
		INSERT INTO conversion_history (id, user_id, original_name, file_size_bytes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, q, rec.ID, rec.UserID, rec.OriginalName, rec.FileSizeBytes, rec.Status, rec.CreatedAt); err != nil {
		return fmt.Errorf("creating conversion %s for user %s: %w", rec.ID, rec.UserID, err)
	}
	return nil
}

func (r *conversionRepo) MarkCompleted(ctx context.Context, id, storageKey string, at time.Time) error {
	const q = `
		UPDATE conversion_history
		SET status = 'completed', storage_key = $2, completed_at = $3
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, q, id, storageKey, at); err != nil {
		return fmt.Errorf("completing conversion %s: %w", id, err)
	}
	return nil
}

func (r *conversionRepo) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	const q = `
		UPDATE conversion_history
		SET status = 'failed', error_message = $2, completed_at = $3
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, q, id, message, at); err != nil {
		return fmt.Errorf("failing conversion %s: %w", id, err)
	}
	return nil
}

func (r *conversionRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.ConversionRecord, error) {
	const q = `
		SELECT id, user_id, original_name, file_size_bytes, status, storage_key, error_message, created_at, completed_at
		FROM conversion_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversions for user %s: %w", userID, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.ConversionRecord])
	if err != nil {
		return nil, fmt.Errorf("scanning conversions for user %s: %w", userID, err)
	}
	return records, nil
}
