package model

import "time"

type DeadLetterStatus string

const (
	DeadLetterUnprocessed DeadLetterStatus = "unprocessed"
	DeadLetterReplayed    DeadLetterStatus = "replayed"
	DeadLetterDiscarded   DeadLetterStatus = "discarded"
)

// DeadLetterMessage is an order notification that Pub/Sub gave up delivering.
type DeadLetterMessage struct {
	ID               string           `db:"id" json:"id"`
	SubscriptionName string           `db:"subscription_name" json:"subscription_name"`
	MessageID        string           `db:"message_id" json:"message_id"`
	OrderID          string           `db:"order_id" json:"order_id,omitempty"`
	UserID           string           `db:"user_id" json:"user_id,omitempty"`
	Payload          string           `db:"payload" json:"payload"`
	Attributes       *string          `db:"attributes" json:"attributes,omitempty"` // JSON object, may be null
	Status           DeadLetterStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
