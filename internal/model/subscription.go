package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not_found")

// Provider identifies the payment provider that owns a subscription.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderCreem  Provider = "creem"
	ProviderPayPal Provider = "paypal"
	ProviderStripe Provider = "stripe"
)

// ParseProvider maps a URL or CLI name onto a Provider.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderCreem, ProviderPayPal, ProviderStripe:
		return Provider(s), true
	}
	return "", false
}

// Status is the canonical subscription status shared by all providers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ParseStatus maps a provider status string onto a canonical Status.
// Unknown values return ok=false so callers can keep the current status.
func ParseStatus(raw string) (Status, bool) {
	switch raw {
	case "pending", "incomplete", "trialing":
		return StatusPending, true
	case "active", "paid":
		return StatusActive, true
	case "cancelled", "canceled", "suspended":
		return StatusCancelled, true
	case "expired", "incomplete_expired", "unpaid":
		return StatusExpired, true
	}
	return "", false
}

// PlanType is the billing period of a paid plan.
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
)

// SubscriptionRecord is the canonical subscription state of a user.
type SubscriptionRecord struct {
	UserID                 string     `db:"user_id" json:"user_id"`
	Provider               Provider   `db:"provider" json:"provider"`
	ProviderSubscriptionID string     `db:"provider_subscription_id" json:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string     `db:"provider_customer_id" json:"provider_customer_id,omitempty"`
	Status                 Status     `db:"status" json:"status"`
	PlanID                 string     `db:"plan_id" json:"plan_id,omitempty"`
	ExpiresAt              *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CancelAtPeriodEnd      bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	LastEventAt            *time.Time `db:"last_event_at" json:"last_event_at,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// Entitled reports whether the record grants Pro access at now.
func (s *SubscriptionRecord) Entitled(now time.Time) bool {
	if s == nil || s.Provider == ProviderNone || s.Status != StatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s *SubscriptionRecord) Clone() *SubscriptionRecord {
	if s == nil {
		return nil
	}
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	if s.LastEventAt != nil {
		t := *s.LastEventAt
		c.LastEventAt = &t
	}
	return &c
}

// SameState reports whether two records carry the same canonical fields.
// Bookkeeping timestamps are ignored.
func (s *SubscriptionRecord) SameState(o *SubscriptionRecord) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.UserID == o.UserID &&
		s.Provider == o.Provider &&
		s.ProviderSubscriptionID == o.ProviderSubscriptionID &&
		s.ProviderCustomerID == o.ProviderCustomerID &&
		s.Status == o.Status &&
		s.PlanID == o.PlanID &&
		s.CancelAtPeriodEnd == o.CancelAtPeriodEnd &&
		timePtrEqual(s.ExpiresAt, o.ExpiresAt)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
