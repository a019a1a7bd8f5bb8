package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var paypalKinds = map[string]model.EventKind{
	"BILLING.SUBSCRIPTION.CREATED":        model.EventCreated,
	"BILLING.SUBSCRIPTION.ACTIVATED":      model.EventActivated,
	"BILLING.SUBSCRIPTION.UPDATED":        model.EventUpdated,
	"BILLING.SUBSCRIPTION.CANCELLED":      model.EventCancelled,
	"BILLING.SUBSCRIPTION.SUSPENDED":      model.EventCancelled,
	"BILLING.SUBSCRIPTION.EXPIRED":        model.EventExpired,
	"BILLING.SUBSCRIPTION.PAYMENT.FAILED": model.EventPaymentFailed,
	"PAYMENT.SALE.COMPLETED":              model.EventPaymentSucceeded,
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	WebhookID    string
	APIBaseURL   string
}

type PayPalProvider struct {
	cfg    PayPalConfig
	oauth  *clientcredentials.Config
	base   *http.Client
	logger zerolog.Logger
}

func NewPayPalProvider(cfg PayPalConfig, logger zerolog.Logger) (*PayPalProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.WebhookID == "" {
		return nil, fmt.Errorf("paypal: %w: client id, secret and webhook id are required", ErrNotConfigured)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalProvider{
		cfg: cfg,
		oauth: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.APIBaseURL + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		base:   &http.Client{Timeout: 15 * time.Second},
		logger: logger.With().Str("provider", "paypal").Logger(),
	}, nil
}

func (p *PayPalProvider) Name() model.Provider { return model.ProviderPayPal }

type paypalEnvelope struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime time.Time       `json:"create_time"`
	Resource   json.RawMessage `json:"resource"`
}

type paypalResource struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	PlanID             string `json:"plan_id"`
	CustomID           string `json:"custom_id"`
	Custom             string `json:"custom"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Subscriber         *struct {
		PayerID string `json:"payer_id"`
	} `json:"subscriber"`
	BillingInfo *struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
	Amount *struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

// ParseWebhook asks PayPal to verify the transmission before trusting the body.
func (p *PayPalProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*model.Event, error) {
	var env paypalEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := p.verify(ctx, payload, header); err != nil {
		return nil, err
	}

	var res paypalResource
	if len(env.Resource) > 0 {
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, fmt.Errorf("%w: resource: %v", ErrMalformedPayload, err)
		}
	}

	ev := &model.Event{
		Provider:               model.ProviderPayPal,
		EventID:                env.ID,
		ProviderEventType:      env.EventType,
		Kind:                   paypalKinds[env.EventType],
		UserID:                 res.CustomID,
		ProviderSubscriptionID: res.ID,
		RawStatus:              strings.ToLower(res.Status),
		PlanID:                 res.PlanID,
		OccurredAt:             env.CreateTime,
	}
	if ev.UserID == "" {
		ev.UserID = res.Custom
	}
	if res.Subscriber != nil {
		ev.ProviderCustomerID = res.Subscriber.PayerID
	}
	if res.BillingInfo != nil && res.BillingInfo.NextBillingTime != nil {
		end := res.BillingInfo.NextBillingTime.UTC()
		ev.PeriodEnd = &end
	}
	// Sale resources reference the subscription through the billing agreement.
	if strings.HasPrefix(env.EventType, "PAYMENT.SALE.") {
		ev.ProviderSubscriptionID = res.BillingAgreementID
		ev.RawStatus = ""
		if res.Amount != nil {
			ev.AmountCents = parseCents(res.Amount.Total)
			ev.Currency = res.Amount.Currency
		}
	}
	return ev, nil
}

type paypalVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

func (p *PayPalProvider) verify(ctx context.Context, payload []byte, header http.Header) error {
	req := paypalVerifyRequest{
		AuthAlgo:         header.Get("PAYPAL-AUTH-ALGO"),
		CertURL:          header.Get("PAYPAL-CERT-URL"),
		TransmissionID:   header.Get("PAYPAL-TRANSMISSION-ID"),
		TransmissionSig:  header.Get("PAYPAL-TRANSMISSION-SIG"),
		TransmissionTime: header.Get("PAYPAL-TRANSMISSION-TIME"),
		WebhookID:        p.cfg.WebhookID,
		WebhookEvent:     payload,
	}
	if req.AuthAlgo == "" || req.TransmissionID == "" || req.TransmissionSig == "" || req.TransmissionTime == "" {
		return fmt.Errorf("%w: missing PayPal transmission headers", ErrInvalidSignature)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	client := p.oauth.Client(context.WithValue(ctx, oauth2.HTTPClient, p.base))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build paypal verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("verify paypal webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("verify paypal webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode paypal verify response: %w", err)
	}
	if out.VerificationStatus != "SUCCESS" {
		p.logger.Warn().Str("transmission_id", req.TransmissionID).Str("status", out.VerificationStatus).Msg("PayPal webhook verification rejected")
		return ErrInvalidSignature
	}
	return nil
}

// parseCents converts a decimal amount such as "7.00" into cents.
func parseCents(total string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(total), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(math.Round(f * 100))
}
