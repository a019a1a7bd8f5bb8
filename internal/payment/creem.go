package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/rs/zerolog"
)

const creemSignatureHeader = "creem-signature"

var creemKinds = map[string]model.EventKind{
	"subscription.active":    model.EventActivated,
	"subscription.activated": model.EventActivated,
	"subscription.paid":      model.EventPaymentSucceeded,
	"payment.succeeded":      model.EventPaymentSucceeded,
	"checkout.completed":     model.EventPaymentSucceeded,
	"payment.failed":         model.EventPaymentFailed,
	"subscription.canceled":  model.EventCancelled,
	"subscription.expired":   model.EventExpired,
	"subscription.created":   model.EventCreated,
	"subscription.update":    model.EventUpdated,
}

type CreemConfig struct {
	APIKey        string
	WebhookSecret string
	APIBaseURL    string
}

type CreemProvider struct {
	cfg    CreemConfig
	client *http.Client
	logger zerolog.Logger
}

func NewCreemProvider(cfg CreemConfig, logger zerolog.Logger) (*CreemProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("creem: %w: webhook secret is required", ErrNotConfigured)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.creem.io"
	}
	return &CreemProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With().Str("provider", "creem").Logger(),
	}, nil
}

func (p *CreemProvider) Name() model.Provider { return model.ProviderCreem }

// creemRef accepts either a bare id string or an expanded object with an id.
type creemRef struct {
	ID string `json:"id"`
}

func (r *creemRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type plain creemRef
	return json.Unmarshal(b, (*plain)(r))
}

// creemTime accepts unix seconds, unix milliseconds or an RFC 3339 string.
type creemTime struct {
	time.Time
}

func (t *creemTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			t.Time = time.UnixMilli(n).UTC()
		} else {
			t.Time = time.Unix(n, 0).UTC()
		}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("parse creem time %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t *creemTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type creemObject struct {
	ID                   string            `json:"id"`
	Object               string            `json:"object"`
	Status               string            `json:"status"`
	Plan                 string            `json:"plan"`
	Product              *creemRef         `json:"product"`
	Customer             *creemRef         `json:"customer"`
	Subscription         *creemRef         `json:"subscription"`
	CurrentPeriodEnd     *creemTime        `json:"current_period_end"`
	CurrentPeriodEndDate *creemTime        `json:"current_period_end_date"`
	CancelAtPeriodEnd    bool              `json:"cancel_at_period_end"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency"`
	Metadata             map[string]string `json:"metadata"`
	Order                *struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"order"`
}

type creemEnvelope struct {
	ID        string      `json:"id"`
	EventType string      `json:"eventType"`
	CreatedAt creemTime   `json:"created_at"`
	Object    creemObject `json:"object"`
}

// ParseWebhook verifies the hex HMAC-SHA256 of the raw body and decodes the envelope.
func (p *CreemProvider) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*model.Event, error) {
	if err := p.verify(payload, header.Get(creemSignatureHeader)); err != nil {
		return nil, err
	}

	var env creemEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	obj := env.Object

	ev := &model.Event{
		Provider:               model.ProviderCreem,
		EventID:                env.ID,
		ProviderEventType:      env.EventType,
		Kind:                   creemKinds[env.EventType],
		UserID:                 obj.Metadata["user_id"],
		ProviderSubscriptionID: obj.ID,
		RawStatus:              obj.Status,
		PlanID:                 obj.Plan,
		CancelAtPeriodEnd:      obj.CancelAtPeriodEnd,
		AmountCents:            obj.Amount,
		Currency:               obj.Currency,
		OccurredAt:             env.CreatedAt.Time,
	}
	if obj.Product != nil && obj.Product.ID != "" {
		ev.PlanID = obj.Product.ID
	}
	if obj.Customer != nil {
		ev.ProviderCustomerID = obj.Customer.ID
	}
	if end := obj.CurrentPeriodEndDate.ptr(); end != nil {
		ev.PeriodEnd = end
	} else {
		ev.PeriodEnd = obj.CurrentPeriodEnd.ptr()
	}

	// Checkout objects wrap the subscription and the order that paid for it.
	if obj.Object == "checkout" || env.EventType == "checkout.completed" {
		ev.ProviderSubscriptionID = ""
		if obj.Subscription != nil {
			ev.ProviderSubscriptionID = obj.Subscription.ID
		}
		if obj.Order != nil {
			ev.AmountCents = obj.Order.Amount
			ev.Currency = obj.Order.Currency
		}
	}

	if ev.Kind == "" {
		p.logger.Debug().Str("event_type", env.EventType).Msg("Unhandled Creem event type")
	}
	return ev, nil
}

func (p *CreemProvider) verify(payload []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, creemSignatureHeader)
	}
	mac := hmac.New(sha256.New, []byte(p.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// CancelSubscription asks Creem to cancel, by default at the end of the paid period.
func (p *CreemProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("creem: %w: api key is required", ErrNotConfigured)
	}
	body, err := json.Marshal(map[string]bool{"cancel_at_period_end": atPeriodEnd})
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(p.cfg.APIBaseURL, "/") + "/v1/subscriptions/" + url.PathEscape(subscriptionID) + "/cancel"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build creem cancel request: %w", err)
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel creem subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cancel creem subscription %s: status %d: %s", subscriptionID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	p.logger.Info().Str("subscription_id", subscriptionID).Bool("at_period_end", atPeriodEnd).Msg("Creem subscription cancelled")
	return nil
}
