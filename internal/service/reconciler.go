package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ApplyResult reports what ApplyEvent did.
type ApplyResult struct {
	Outcome model.Outcome
	UserID  string
	Record  *model.SubscriptionRecord
	// Order is set when this event created a new order row.
	Order *model.Order
}

// OrderNotifier announces newly recorded orders to downstream consumers.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order model.Order) error
}

// Reconciler turns canonical provider events into the stored subscription record.
// ApplyEvent is idempotent: replays leave the record unchanged and create no extra orders.
type Reconciler interface {
	ApplyEvent(ctx context.Context, ev *model.Event) (*ApplyResult, error)
	// SweepExpired moves active subscriptions past their expiry to expired.
	SweepExpired(ctx context.Context) ([]string, error)
}

type reconciler struct {
	repo     repository.SubscriptionRepository
	catalog  PlanCatalog
	notifier OrderNotifier
	validate *validator.Validate
	opts     Options
	logger   zerolog.Logger
}

func NewReconciler(repo repository.SubscriptionRepository, catalog PlanCatalog, notifier OrderNotifier, validate *validator.Validate, logger zerolog.Logger, opts Options) Reconciler {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &reconciler{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		validate: validate,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("service", "Reconciler").Logger(),
	}
}

func (r *reconciler) ApplyEvent(ctx context.Context, ev *model.Event) (*ApplyResult, error) {
	log := r.logger.With().
		Str("provider", string(ev.Provider)).
		Str("event_type", ev.ProviderEventType).
		Str("event_id", ev.EventID).
		Str("subscription_id", ev.ProviderSubscriptionID).
		Logger()

	entry := model.WebhookEventLog{
		Provider:          ev.Provider,
		EventID:           ev.EventID,
		ProviderEventType: ev.ProviderEventType,
		UserID:            ev.UserID,
		ReceivedAt:        r.opts.Now().UTC(),
	}

	if err := r.validate.Struct(ev); err != nil {
		log.Error().Err(err).Msg("Dropping malformed subscription event")
		return r.drop(ctx, entry, err.Error())
	}

	if ev.UserID == "" && ev.ProviderCustomerID != "" {
		userID, err := r.repo.FindUserByCustomerID(ctx, ev.Provider, ev.ProviderCustomerID)
		switch {
		case err == nil:
			log.Warn().Str("customer_id", ev.ProviderCustomerID).Str("user_id", userID).Msg("Missing user_id metadata; resolved by customer ID")
			ev.UserID = userID
			entry.UserID = userID
		case !errors.Is(err, model.ErrNotFound):
			log.Error().Err(err).Str("customer_id", ev.ProviderCustomerID).Msg("Failed to lookup user by customer ID")
			return nil, err
		}
	}
	if ev.UserID == "" {
		log.Error().Msg("Dropping subscription event without user ID")
		return r.drop(ctx, entry, "missing user id")
	}

	if !ev.Kind.Known() {
		log.Info().Msg("Ignoring unhandled subscription event")
		entry.Outcome = model.OutcomeIgnored
		if err := r.repo.LogEvent(ctx, entry); err != nil {
			log.Error().Err(err).Msg("Failed to log ignored event")
		}
		return &ApplyResult{Outcome: model.OutcomeIgnored, UserID: ev.UserID}, nil
	}

	now := r.opts.Now()
	res, err := r.repo.Reconcile(ctx, entry, func(current *model.SubscriptionRecord) (repository.Decision, error) {
		next, outcome := transition(current, ev, now)
		d := repository.Decision{Outcome: outcome, Next: next}
		if outcome == model.OutcomeApplied || outcome == model.OutcomeUnchanged {
			d.Order = r.orderFor(ev, now)
		}
		return d, nil
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", ev.UserID).Msg("Failed to reconcile subscription event")
		return nil, fmt.Errorf("reconciling %s event %s for user %s: %w", ev.Provider, ev.ProviderEventType, ev.UserID, err)
	}

	result := &ApplyResult{Outcome: res.Outcome, UserID: ev.UserID, Record: res.Record, Order: res.Order}
	evt := log.Info().Str("user_id", ev.UserID).Str("outcome", string(res.Outcome))
	if res.Record != nil {
		evt = evt.Str("status", string(res.Record.Status))
	}
	evt.Msg("Subscription event reconciled")

	if res.Order != nil && r.notifier != nil {
		if err := r.notifier.OrderCreated(ctx, *res.Order); err != nil {
			log.Error().Err(err).Str("order_id", res.Order.ID).Msg("Failed to publish order notification")
		}
	}
	return result, nil
}

// drop records an event that cannot be attributed or parsed. It is acknowledged, never retried.
func (r *reconciler) drop(ctx context.Context, entry model.WebhookEventLog, reason string) (*ApplyResult, error) {
	entry.Outcome = model.OutcomeDropped
	entry.Error = reason
	if err := r.repo.LogEvent(ctx, entry); err != nil {
		r.logger.Error().Err(err).Str("event_id", entry.EventID).Msg("Failed to log dropped event")
	}
	return &ApplyResult{Outcome: model.OutcomeDropped}, nil
}

// orderFor builds the order an event should produce, or nil.
func (r *reconciler) orderFor(ev *model.Event, now time.Time) *model.Order {
	var class model.EventClass
	var phase model.OrderPhase
	switch ev.Kind {
	case model.EventActivated, model.EventPaymentSucceeded:
		class, phase = model.EventClassPaid, model.OrderPaid
	case model.EventPaymentFailed:
		class, phase = model.EventClassFailed, model.OrderFailed
	default:
		return nil
	}
	if ev.ProviderSubscriptionID == "" {
		return nil
	}

	var plan model.Plan
	if r.catalog != nil {
		plan = r.catalog.Lookup(ev.Provider, ev.PlanID)
	}
	amount := ev.AmountCents
	if amount == 0 {
		amount = plan.AmountCents
	}
	currency := strings.ToUpper(ev.Currency)
	if currency == "" {
		currency = "USD"
	}
	order := &model.Order{
		ID:                     uuid.NewString(),
		UserID:                 ev.UserID,
		Provider:               ev.Provider,
		ProviderSubscriptionID: ev.ProviderSubscriptionID,
		EventClass:             class,
		Phase:                  phase,
		AmountCents:            amount,
		Currency:               currency,
		PlanID:                 ev.PlanID,
		PlanType:               plan.PlanType,
		ProviderEventType:      ev.ProviderEventType,
	}
	if order.PlanType == "" {
		order.PlanType = model.PlanMonthly
	}
	if class == model.EventClassPaid {
		order.Credits = plan.Credits
		paidAt := now.UTC()
		if !ev.OccurredAt.IsZero() {
			paidAt = ev.OccurredAt.UTC()
		}
		order.PaidAt = &paidAt
	}
	return order
}

func (r *reconciler) SweepExpired(ctx context.Context) ([]string, error) {
	now := r.opts.Now()
	expired, err := r.repo.ExpireDue(ctx, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to expire subscriptions")
		return nil, err
	}
	if len(expired) > 0 {
		r.logger.Info().Int("count", len(expired)).Strs("user_ids", expired).Msg("Expired subscriptions past their period end")
	}
	return expired, nil
}
