package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/payment"
	"github.com/heic2pdf/backend/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrNoSubscription        = errors.New("no subscription found")
	ErrSubscriptionNotActive = errors.New("subscription is not active")
)

// CancellerLookup resolves the cancellation API of a provider.
type CancellerLookup interface {
	Canceller(provider model.Provider) (payment.Canceller, error)
}

// SubscriptionService serves the user-initiated subscription operations.
type SubscriptionService interface {
	// Cancel stops renewal at the end of the paid period. Access continues until then.
	Cancel(ctx context.Context, userID string) (*SubscriptionStatus, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

type subscriptionService struct {
	repo       repository.SubscriptionRepository
	cancellers CancellerLookup
	reconciler Reconciler
	resolver   EntitlementResolver
	opts       Options
	logger     zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, cancellers CancellerLookup, reconciler Reconciler, resolver EntitlementResolver, logger zerolog.Logger, opts Options) SubscriptionService {
	return &subscriptionService{
		repo:       repo,
		cancellers: cancellers,
		reconciler: reconciler,
		resolver:   resolver,
		opts:       opts.withDefaults(),
		logger:     logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) Cancel(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && sub.Provider == model.ProviderNone) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription for cancel")
		return nil, err
	}
	if !sub.Entitled(s.opts.Now()) {
		return nil, ErrSubscriptionNotActive
	}
	if sub.CancelAtPeriodEnd {
		return s.resolver.Status(ctx, userID)
	}

	canceller, err := s.cancellers.Canceller(sub.Provider)
	if err != nil {
		return nil, fmt.Errorf("cancel %s subscription for user %s: %w", sub.Provider, userID, err)
	}
	if err := canceller.CancelSubscription(ctx, sub.ProviderSubscriptionID, true); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("subscription_id", sub.ProviderSubscriptionID).Msg("Provider rejected cancellation")
		return nil, fmt.Errorf("cancel %s subscription for user %s: %w", sub.Provider, userID, err)
	}

	// Record the cancellation now; the provider's own webhook will arrive as a no-op.
	res, err := s.reconciler.ApplyEvent(ctx, &model.Event{
		Provider:               sub.Provider,
		ProviderEventType:      "api.subscription.cancel",
		Kind:                   model.EventCancelled,
		UserID:                 userID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		PeriodEnd:              sub.ExpiresAt,
		CancelAtPeriodEnd:      true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("outcome", string(res.Outcome)).Msg("Subscription set to cancel at period end")
	return s.resolver.Status(ctx, userID)
}

func (s *subscriptionService) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list orders")
		return nil, err
	}
	return orders, nil
}
