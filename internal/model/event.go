package model

import "time"

// EventKind classifies a provider webhook into the canonical lifecycle vocabulary.
type EventKind string

const (
	EventActivated        EventKind = "activated"
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventCreated          EventKind = "created"
	EventUpdated          EventKind = "updated"
	EventCancelled        EventKind = "cancelled"
	EventExpired          EventKind = "expired"
)

// Activates reports whether the kind moves a subscription to active.
func (k EventKind) Activates() bool {
	return k == EventActivated || k == EventPaymentSucceeded
}

// Known reports whether the kind is part of the canonical vocabulary.
func (k EventKind) Known() bool {
	switch k {
	case EventActivated, EventPaymentSucceeded, EventPaymentFailed,
		EventCreated, EventUpdated, EventCancelled, EventExpired:
		return true
	}
	return false
}

// Event is a verified provider webhook translated into canonical form.
type Event struct {
	Provider               Provider   `json:"provider" validate:"required,oneof=creem paypal stripe"`
	EventID                string     `json:"event_id,omitempty"`
	ProviderEventType      string     `json:"provider_event_type" validate:"required"`
	Kind                   EventKind  `json:"kind,omitempty"`
	UserID                 string     `json:"user_id,omitempty"`
	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string     `json:"provider_customer_id,omitempty"`
	RawStatus              string     `json:"raw_status,omitempty"`
	PlanID                 string     `json:"plan_id,omitempty"`
	PeriodEnd              *time.Time `json:"period_end,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end,omitempty"`
	AmountCents            int64      `json:"amount_cents,omitempty" validate:"gte=0"`
	Currency               string     `json:"currency,omitempty"`
	OccurredAt             time.Time  `json:"occurred_at,omitempty"`
}

// Outcome is what the reconciler did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeStale     Outcome = "stale"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"
)

// Settled reports whether an event that ended with o counts as processed. Redeliveries of a
// settled event are duplicates; dropped and ignored events may be replayed.
func (o Outcome) Settled() bool {
	switch o {
	case OutcomeApplied, OutcomeUnchanged, OutcomeStale:
		return true
	}
	return false
}

// WebhookEventLog is the audit row written for every received webhook.
type WebhookEventLog struct {
	ID                int64     `db:"id" json:"id"`
	Provider          Provider  `db:"provider" json:"provider"`
	EventID           string    `db:"event_id" json:"event_id,omitempty"`
	ProviderEventType string    `db:"event_type" json:"event_type"`
	UserID            string    `db:"user_id" json:"user_id,omitempty"`
	Outcome           Outcome   `db:"outcome" json:"outcome"`
	Error             string    `db:"error" json:"error,omitempty"`
	ReceivedAt        time.Time `db:"received_at" json:"received_at"`
}
