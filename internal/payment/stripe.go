package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var stripeKinds = map[stripe.EventType]model.EventKind{
	"checkout.session.completed":    model.EventActivated,
	"invoice.paid":                  model.EventPaymentSucceeded,
	"invoice.payment_succeeded":     model.EventPaymentSucceeded,
	"invoice.payment_failed":        model.EventPaymentFailed,
	"customer.subscription.created": model.EventCreated,
	"customer.subscription.updated": model.EventUpdated,
	"customer.subscription.deleted": model.EventExpired,
}

type StripeProvider struct {
	secret string
	logger zerolog.Logger
}

func NewStripeProvider(webhookSecret string, logger zerolog.Logger) (*StripeProvider, error) {
	if webhookSecret == "" {
		return nil, fmt.Errorf("stripe: %w: webhook secret is required", ErrNotConfigured)
	}
	return &StripeProvider{secret: webhookSecret, logger: logger.With().Str("provider", "stripe").Logger()}, nil
}

func (p *StripeProvider) Name() model.Provider { return model.ProviderStripe }

func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*model.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), p.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Signature verification failed for Stripe webhook")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ev := &model.Event{
		Provider:          model.ProviderStripe,
		EventID:           event.ID,
		ProviderEventType: string(event.Type),
		Kind:              stripeKinds[event.Type],
	}
	if event.Created > 0 {
		ev.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if ev.Kind == "" || event.Data == nil {
		ev.Kind = ""
		return ev, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: checkout.session: %v", ErrMalformedPayload, err)
		}
		if cs.Mode != stripe.CheckoutSessionModeSubscription {
			ev.Kind = ""
			return ev, nil
		}
		ev.UserID = cs.Metadata["user_id"]
		if ev.UserID == "" {
			ev.UserID = cs.ClientReferenceID
		}
		if cs.Subscription != nil {
			ev.ProviderSubscriptionID = cs.Subscription.ID
		}
		if cs.Customer != nil {
			ev.ProviderCustomerID = cs.Customer.ID
		}
		ev.AmountCents = cs.AmountTotal
		ev.Currency = string(cs.Currency)

	case "invoice.paid", "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", ErrMalformedPayload, err)
		}
		ev.UserID = invoice.Metadata["user_id"]
		if invoice.Customer != nil {
			ev.ProviderCustomerID = invoice.Customer.ID
		}
		ev.Currency = string(invoice.Currency)
		ev.AmountCents = invoice.AmountPaid
		if ev.Kind == model.EventPaymentFailed {
			ev.AmountCents = invoice.AmountDue
		}
		var periodEnd int64
		if invoice.Lines != nil {
			for _, line := range invoice.Lines.Data {
				if line.Subscription == nil || line.Subscription.ID == "" {
					continue
				}
				ev.ProviderSubscriptionID = line.Subscription.ID
				if line.Period != nil {
					periodEnd = line.Period.End
				}
				break
			}
		}
		if ev.ProviderSubscriptionID == "" {
			// One-time invoices do not touch subscriptions.
			ev.Kind = ""
			return ev, nil
		}
		if ev.Kind == model.EventPaymentSucceeded {
			if periodEnd == 0 {
				periodEnd = invoice.PeriodEnd
			}
			ev.PeriodEnd = unixPtr(periodEnd)
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", ErrMalformedPayload, err)
		}
		ev.UserID = sub.Metadata["user_id"]
		ev.ProviderSubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.ProviderCustomerID = sub.Customer.ID
		}
		ev.RawStatus = strings.ToLower(string(sub.Status))
		ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			if item.Price != nil {
				ev.PlanID = item.Price.ID
			}
			ev.PeriodEnd = unixPtr(item.CurrentPeriodEnd)
		}
	}
	return ev, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
