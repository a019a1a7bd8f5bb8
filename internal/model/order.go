package model

import "time"

// EventClass groups payment events for order idempotence.
type EventClass string

const (
	EventClassPaid   EventClass = "paid"
	EventClassFailed EventClass = "failed"
)

// OrderPhase is the lifecycle phase of a charge order.
type OrderPhase string

const (
	OrderPaid   OrderPhase = "Paid"
	OrderFailed OrderPhase = "Failed"
)

// Order records a paid (or failed) subscription charge.
// At most one order exists per (user, provider, subscription, event class).
type Order struct {
	ID                     string     `db:"id" json:"id"`
	UserID                 string     `db:"user_id" json:"user_id"`
	Provider               Provider   `db:"provider" json:"provider"`
	ProviderSubscriptionID string     `db:"provider_subscription_id" json:"provider_subscription_id"`
	EventClass             EventClass `db:"event_class" json:"event_class"`
	Phase                  OrderPhase `db:"phase" json:"phase"`
	AmountCents            int64      `db:"amount_cents" json:"amount_cents"`
	Currency               string     `db:"currency" json:"currency"`
	PlanID                 string     `db:"plan_id" json:"plan_id,omitempty"`
	PlanType               PlanType   `db:"plan_type" json:"plan_type"`
	Credits                int        `db:"credits" json:"credits"`
	ProviderEventType      string     `db:"provider_event_type" json:"provider_event_type"`
	PaidAt                 *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
}

// Plan describes what a provider product or price grants.
type Plan struct {
	ID          string   `json:"id"`
	PlanType    PlanType `json:"plan_type"`
	AmountCents int64    `json:"amount_cents"`
	Credits     int      `json:"credits"`
}
