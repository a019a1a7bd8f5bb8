package payment_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/payment"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paypalFake struct {
	status     string
	tokenCalls atomic.Int32
	lastVerify map[string]any
}

func (f *paypalFake) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastVerify))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"verification_status":"`+f.status+`"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func paypalHeaders() http.Header {
	h := http.Header{}
	h.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")
	h.Set("PAYPAL-CERT-URL", "https://api.paypal.com/cert.pem")
	h.Set("PAYPAL-TRANSMISSION-ID", "tx-1")
	h.Set("PAYPAL-TRANSMISSION-SIG", "sig")
	h.Set("PAYPAL-TRANSMISSION-TIME", "2026-06-01T12:00:00Z")
	return h
}

func newPayPal(t *testing.T, baseURL string) *payment.PayPalProvider {
	t.Helper()
	p, err := payment.NewPayPalProvider(payment.PayPalConfig{
		ClientID: "client", ClientSecret: "secret", WebhookID: "WH-1", APIBaseURL: baseURL,
	}, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestPayPalParseSubscriptionActivated(t *testing.T) {
	fake := &paypalFake{status: "SUCCESS"}
	srv := fake.server(t)
	payload := []byte(`{
		"id": "WH-EVT-1",
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"create_time": "2026-06-01T12:00:00Z",
		"resource": {
			"id": "I-SUB1",
			"status": "ACTIVE",
			"plan_id": "P-MONTHLY",
			"custom_id": "u9",
			"subscriber": {"payer_id": "PAYER1"},
			"billing_info": {"next_billing_time": "2026-07-01T10:00:00Z"}
		}
	}`)

	ev, err := newPayPal(t, srv.URL).ParseWebhook(context.Background(), payload, paypalHeaders())
	require.NoError(t, err)
	assert.Equal(t, model.ProviderPayPal, ev.Provider)
	assert.Equal(t, model.EventActivated, ev.Kind)
	assert.Equal(t, "u9", ev.UserID)
	assert.Equal(t, "I-SUB1", ev.ProviderSubscriptionID)
	assert.Equal(t, "PAYER1", ev.ProviderCustomerID)
	assert.Equal(t, "active", ev.RawStatus)
	require.NotNil(t, ev.PeriodEnd)
	assert.Equal(t, time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC), *ev.PeriodEnd)

	assert.Equal(t, "WH-1", fake.lastVerify["webhook_id"])
	assert.Equal(t, "tx-1", fake.lastVerify["transmission_id"])
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestPayPalParseSaleCompleted(t *testing.T) {
	srv := (&paypalFake{status: "SUCCESS"}).server(t)
	payload := []byte(`{
		"id": "WH-EVT-2",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"create_time": "2026-06-01T12:00:00Z",
		"resource": {
			"id": "SALE-1",
			"billing_agreement_id": "I-SUB1",
			"custom": "u9",
			"amount": {"total": "7.00", "currency": "USD"}
		}
	}`)

	ev, err := newPayPal(t, srv.URL).ParseWebhook(context.Background(), payload, paypalHeaders())
	require.NoError(t, err)
	assert.Equal(t, model.EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, "I-SUB1", ev.ProviderSubscriptionID)
	assert.Equal(t, "u9", ev.UserID)
	assert.Equal(t, int64(700), ev.AmountCents)
	assert.Equal(t, "USD", ev.Currency)
}

func TestPayPalRejectsFailedVerification(t *testing.T) {
	srv := (&paypalFake{status: "FAILURE"}).server(t)
	payload := []byte(`{"id":"WH-EVT-3","event_type":"BILLING.SUBSCRIPTION.CANCELLED","resource":{"id":"I-SUB1"}}`)

	_, err := newPayPal(t, srv.URL).ParseWebhook(context.Background(), payload, paypalHeaders())
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestPayPalRejectsMissingHeaders(t *testing.T) {
	fake := &paypalFake{status: "SUCCESS"}
	srv := fake.server(t)
	payload := []byte(`{"id":"WH-EVT-4","event_type":"BILLING.SUBSCRIPTION.EXPIRED","resource":{"id":"I-SUB1"}}`)

	_, err := newPayPal(t, srv.URL).ParseWebhook(context.Background(), payload, http.Header{})
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Equal(t, int32(0), fake.tokenCalls.Load())
}

func TestPayPalVerifyOutageIsNotSignatureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	payload := []byte(`{"id":"WH-EVT-5","event_type":"BILLING.SUBSCRIPTION.EXPIRED","resource":{"id":"I-SUB1"}}`)

	_, err := newPayPal(t, srv.URL).ParseWebhook(context.Background(), payload, paypalHeaders())
	require.Error(t, err)
	assert.NotErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestNewPayPalProviderRequiresCredentials(t *testing.T) {
	_, err := payment.NewPayPalProvider(payment.PayPalConfig{ClientID: "x"}, zerolog.Nop())
	assert.ErrorIs(t, err, payment.ErrNotConfigured)
}
