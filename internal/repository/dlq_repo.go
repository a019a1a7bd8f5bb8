package repository

import (
	"context"
	"fmt"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DLQRepository interface {
	// Create stores a dead-lettered message. Redelivery of the same message is a no-op.
	Create(ctx context.Context, message *model.DeadLetterMessage) error
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	const q = `
		INSERT INTO dead_letter_messages (id, subscription_name, message_id, order_id, user_id, payload, attributes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subscription_name, message_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, q,
		message.ID,
		message.SubscriptionName,
		message.MessageID,
		message.OrderID,
		message.UserID,
		message.Payload,
		message.Attributes,
		message.Status,
	)
	if err != nil {
		return fmt.Errorf("saving dead letter %s: %w", message.MessageID, err)
	}
	return nil
}
