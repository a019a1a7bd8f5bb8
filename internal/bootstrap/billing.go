// Package bootstrap builds the billing services shared by the API server,
// the expiry orchestrator and billingctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/heic2pdf/backend/internal/config"
	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/payment"
	"github.com/heic2pdf/backend/internal/pubsub"
	"github.com/heic2pdf/backend/internal/repository"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Billing holds the wired billing stack.
type Billing struct {
	Subs       repository.SubscriptionRepository
	Usage      repository.UsageRepository
	Catalog    *payment.Catalog
	Providers  *payment.Registry
	Ledger     service.UsageLedger
	Resolver   service.EntitlementResolver
	Reconciler service.Reconciler
	Validate   *validator.Validate
	Options    service.Options

	closers []func() error
}

// NewBilling wires repositories, providers and services on top of pool.
// Providers without credentials are left out of the registry.
func NewBilling(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*Billing, error) {
	b := &Billing{
		Subs:     repository.NewSubscriptionRepo(pool),
		Catalog:  payment.DefaultCatalog(cfg.CreemMonthlyProduct, cfg.CreemYearlyProduct),
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Options:  service.Options{DailyFreeLimit: cfg.DailyFreeLimit},
	}

	switch cfg.UsageBackend {
	case "redis":
		client, err := repository.ConnectRedis(ctx, cfg.RedisURL, cfg.DBRetryAttempts, cfg.DBRetryInterval)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.Usage = repository.NewRedisUsageRepo(client)
		logger.Info().Msg("Usage ledger backed by Redis")
	case "postgres", "":
		b.Usage = repository.NewUsageRepo(pool)
	default:
		return nil, fmt.Errorf("unknown USAGE_BACKEND %q", cfg.UsageBackend)
	}

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Providers = payment.NewRegistry(providers...)
	logger.Info().Strs("providers", b.Providers.Names()).Msg("Payment providers configured")

	var notifier service.OrderNotifier
	if cfg.GCPProjectID != "" {
		publisher, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, publisher.Close)
		notifier = service.NewOrderNotifier(publisher, cfg.PubSubOrdersTopic, logger)
	} else {
		logger.Warn().Msg("GCP_PROJECT_ID not set; order notifications disabled")
	}

	b.Ledger = service.NewUsageLedger(b.Usage, logger, b.Options)
	b.Resolver = service.NewEntitlementResolver(b.Subs, b.Ledger, b.Catalog, logger, b.Options)
	b.Reconciler = service.NewReconciler(b.Subs, b.Catalog, notifier, b.Validate, logger, b.Options)
	return b, nil
}

func buildProviders(cfg *config.Config, logger zerolog.Logger) ([]payment.Provider, error) {
	var out []payment.Provider
	add := func(name model.Provider, p payment.Provider, err error) error {
		if errors.Is(err, payment.ErrNotConfigured) {
			logger.Info().Str("provider", string(name)).Msg("Payment provider not configured; webhooks disabled")
			return nil
		}
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}

	creem, err := payment.NewCreemProvider(payment.CreemConfig{
		APIKey:        cfg.CreemAPIKey,
		WebhookSecret: cfg.CreemWebhookSecret,
		APIBaseURL:    cfg.CreemAPIBaseURL,
	}, logger)
	if err := add(model.ProviderCreem, creem, err); err != nil {
		return nil, err
	}
	paypal, err := payment.NewPayPalProvider(payment.PayPalConfig{
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		WebhookID:    cfg.PayPalWebhookID,
		APIBaseURL:   cfg.PayPalAPIBaseURL,
	}, logger)
	if err := add(model.ProviderPayPal, paypal, err); err != nil {
		return nil, err
	}
	stripe, err := payment.NewStripeProvider(cfg.StripeWebhookSecret, logger)
	if err := add(model.ProviderStripe, stripe, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the Redis and Pub/Sub clients. The pool belongs to the caller.
func (b *Billing) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
