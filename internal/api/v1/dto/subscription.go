package dto

import "time"

// SubscriptionResponseDTO is the subscription view served to clients.
type SubscriptionResponseDTO struct {
	Status            string     `json:"status"`
	Provider          string     `json:"provider,omitempty"`
	PlanType          string     `json:"planType,omitempty"`
	SubscriptionID    string     `json:"subscriptionId,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	IsActive          bool       `json:"isActive"`
	IsPro             bool       `json:"isPro"`
}

type OrderResponseDTO struct {
	OrderID        string     `json:"orderId"`
	Provider       string     `json:"provider"`
	SubscriptionID string     `json:"subscriptionId"`
	Phase          string     `json:"phase"`
	AmountCents    int64      `json:"amountCents"`
	Currency       string     `json:"currency"`
	PlanType       string     `json:"planType"`
	Credits        int        `json:"credits"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
