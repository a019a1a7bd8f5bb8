package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"

	"github.com/rs/zerolog"
)

const (
	ReasonLimitReached     = "Daily conversion limit reached. Upgrade to Pro for unlimited conversions."
	ReasonNotAuthenticated = "User not authenticated"
)

// Decision is the answer to "may this user convert a file now".
type Decision struct {
	CanConvert bool   `json:"canConvert"`
	Reason     string `json:"reason,omitempty"`
	IsPro      bool   `json:"isPro"`
	DailyCount int    `json:"dailyCount"`
}

// UsageReport extends a Decision with the numbers a client needs to render the quota.
type UsageReport struct {
	Decision
	DailyLimit int       `json:"dailyLimit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetAt"`
}

// SubscriptionStatus is the read-only subscription view served to clients.
type SubscriptionStatus struct {
	Status            string         `json:"status"`
	Provider          model.Provider `json:"provider,omitempty"`
	PlanType          model.PlanType `json:"planType,omitempty"`
	SubscriptionID    string         `json:"subscriptionId,omitempty"`
	ExpiresAt         *time.Time     `json:"expiresAt,omitempty"`
	CancelAtPeriodEnd bool           `json:"cancelAtPeriodEnd"`
	IsActive          bool           `json:"isActive"`
	IsPro             bool           `json:"isPro"`
}

// PlanCatalog maps provider plan identifiers to plan details.
type PlanCatalog interface {
	Lookup(provider model.Provider, planID string) model.Plan
}

// EntitlementResolver decides Pro vs Free. Unlike the usage ledger it fails closed:
// a lookup error means "not Pro".
type EntitlementResolver interface {
	IsPro(ctx context.Context, userID string) bool
	CanConvert(ctx context.Context, userID string) Decision
	Usage(ctx context.Context, userID string) UsageReport
	Status(ctx context.Context, userID string) (*SubscriptionStatus, error)
}

type entitlementResolver struct {
	subs    repository.SubscriptionRepository
	ledger  UsageLedger
	catalog PlanCatalog
	opts    Options
	logger  zerolog.Logger
}

func NewEntitlementResolver(subs repository.SubscriptionRepository, ledger UsageLedger, catalog PlanCatalog, logger zerolog.Logger, opts Options) EntitlementResolver {
	return &entitlementResolver{
		subs:    subs,
		ledger:  ledger,
		catalog: catalog,
		opts:    opts.withDefaults(),
		logger:  logger.With().Str("service", "EntitlementResolver").Logger(),
	}
}

func (r *entitlementResolver) IsPro(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	sub, err := r.subs.GetSubscription(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return false
	}
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription, treating user as free")
		return false
	}
	return sub.Entitled(r.opts.Now())
}

func (r *entitlementResolver) CanConvert(ctx context.Context, userID string) Decision {
	if userID == "" {
		return Decision{CanConvert: false, Reason: ReasonNotAuthenticated}
	}
	if r.IsPro(ctx, userID) {
		return Decision{CanConvert: true, IsPro: true}
	}

	usage := r.ledger.CheckAndMaybeReset(ctx, userID)
	d := Decision{
		CanConvert: !usage.IsLimitReached,
		IsPro:      false,
		DailyCount: usage.DailyCount,
	}
	if usage.IsLimitReached {
		d.Reason = ReasonLimitReached
	}
	return d
}

func (r *entitlementResolver) Usage(ctx context.Context, userID string) UsageReport {
	d := r.CanConvert(ctx, userID)
	limit := r.ledger.DailyLimit()
	report := UsageReport{
		Decision:   d,
		DailyLimit: limit,
		Remaining:  max(limit-d.DailyCount, 0),
		ResetAt:    model.NextUTCDay(r.opts.Now()),
	}
	if d.IsPro {
		report.Remaining = -1
	}
	return report
}

// Status reports FREE for users without a record and EXPIRED for active records past their expiry.
func (r *entitlementResolver) Status(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	sub, err := r.subs.GetSubscription(ctx, userID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && sub.Provider == model.ProviderNone) {
		return &SubscriptionStatus{Status: "FREE"}, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription status")
		return nil, err
	}

	now := r.opts.Now()
	entitled := sub.Entitled(now)
	status := strings.ToUpper(string(sub.Status))
	if sub.Status == model.StatusActive && !entitled {
		status = strings.ToUpper(string(model.StatusExpired))
	}
	out := &SubscriptionStatus{
		Status:            status,
		Provider:          sub.Provider,
		SubscriptionID:    sub.ProviderSubscriptionID,
		ExpiresAt:         sub.ExpiresAt,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		IsActive:          entitled,
		IsPro:             entitled,
	}
	if r.catalog != nil && sub.PlanID != "" {
		out.PlanType = r.catalog.Lookup(sub.Provider, sub.PlanID).PlanType
	}
	return out, nil
}
