package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/heic2pdf/backend/internal/api/v1/dto"
	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/payment"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
)

const maxWebhookBytes = 1 << 20

// WebhookHandler receives payment provider webhooks. Routes are unauthenticated;
// each provider verifies its own signature.
type WebhookHandler struct {
	providers  *payment.Registry
	reconciler service.Reconciler
	logger     zerolog.Logger
}

func NewWebhookHandler(providers *payment.Registry, reconciler service.Reconciler, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{providers: providers, reconciler: reconciler, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/", h.handleWebhook)
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/webhooks/"), "/")
	p, known := model.ParseProvider(name)
	var provider payment.Provider
	if known {
		provider, known = h.providers.Get(p)
	}
	if !known {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.status(w, p)
	case http.MethodPost:
		h.receive(w, r, provider)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// status godoc
// @Summary Webhook endpoint health
// @Tags webhooks
// @Produce json
// @Param provider path string true "creem, paypal or stripe"
// @Success 200 {object} dto.WebhookStatusDTO
// @Failure 404 {string} string "404 page not found"
// @Router /webhooks/{provider} [get]
func (h *WebhookHandler) status(w http.ResponseWriter, p model.Provider) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.WebhookStatusDTO{Status: fmt.Sprintf("%s webhook endpoint active", p)})
}

// receive godoc
// @Summary Receive a payment provider webhook
// @Description Verifies the signature, then applies the event to the user's subscription. Replays are acknowledged without side effects.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param provider path string true "creem, paypal or stripe"
// @Success 200 {object} dto.WebhookAckDTO
// @Failure 400 {string} string "malformed payload"
// @Failure 401 {string} string "invalid signature"
// @Failure 404 {string} string "404 page not found"
// @Failure 500 {string} string "failed to process webhook"
// @Router /webhooks/{provider} [post]
func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request, provider payment.Provider) {
	log := h.logger.With().Str("provider", string(provider.Name())).Logger()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	ev, err := provider.ParseWebhook(r.Context(), payload, r.Header)
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		log.Warn().Err(err).Msg("Rejected webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	case errors.Is(err, payment.ErrMalformedPayload):
		log.Warn().Err(err).Msg("Rejected malformed webhook")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to verify webhook")
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	res, err := h.reconciler.ApplyEvent(r.Context(), ev)
	if err != nil {
		// Non-2xx makes the provider retry; the event id dedup keeps the retry safe.
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.WebhookAckDTO{Received: true, Outcome: string(res.Outcome)})
}
