package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heic2pdf/backend/internal/api/v1/dto"
	"github.com/heic2pdf/backend/internal/middleware"
	"github.com/heic2pdf/backend/internal/payment"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	resolver service.EntitlementResolver
	subSvc   service.SubscriptionService
	logger   zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(resolver service.EntitlementResolver, subSvc service.SubscriptionService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{resolver: resolver, subSvc: subSvc, logger: logger}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/subscription", authMiddleware(http.HandlerFunc(h.GetStatus)))
	mux.Handle("/subscription/cancel", authMiddleware(http.HandlerFunc(h.Cancel)))
	mux.Handle("/subscription/orders", authMiddleware(http.HandlerFunc(h.ListOrders)))
}

func toSubscriptionDTO(st *service.SubscriptionStatus) dto.SubscriptionResponseDTO {
	return dto.SubscriptionResponseDTO{
		Status:            st.Status,
		Provider:          string(st.Provider),
		PlanType:          string(st.PlanType),
		SubscriptionID:    st.SubscriptionID,
		ExpiresAt:         st.ExpiresAt,
		CancelAtPeriodEnd: st.CancelAtPeriodEnd,
		IsActive:          st.IsActive,
		IsPro:             st.IsPro,
	}
}

// GetStatus godoc
// @Summary Get the subscription of the authenticated user
// @Description Returns FREE when the user never subscribed.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to load subscription"
// @Router /subscription [get]
func (h *SubscriptionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.resolver.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load subscription")
		http.Error(w, "failed to load subscription", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toSubscriptionDTO(st)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// Cancel godoc
// @Summary Cancel the subscription at the end of the paid period
// @Description Asks the provider to stop renewing. Pro access continues until the current period ends.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "no subscription found"
// @Failure 409 {string} string "subscription is not active"
// @Failure 501 {string} string "provider does not support cancellation"
// @Failure 502 {string} string "failed to cancel subscription"
// @Router /subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.subSvc.Cancel(r.Context(), userID)
	switch {
	case errors.Is(err, service.ErrNoSubscription):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, service.ErrSubscriptionNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, payment.ErrCancelUnsupported), errors.Is(err, payment.ErrNotConfigured):
		http.Error(w, "provider does not support cancellation", http.StatusNotImplemented)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to cancel subscription")
		http.Error(w, "failed to cancel subscription", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toSubscriptionDTO(st)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// ListOrders godoc
// @Summary List the orders of the authenticated user
// @Tags subscriptions
// @Produce json
// @Success 200 {array} dto.OrderResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to list orders"
// @Router /subscription/orders [get]
func (h *SubscriptionHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	orders, err := h.subSvc.ListOrders(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, dto.OrderResponseDTO{
			OrderID:        o.ID,
			Provider:       string(o.Provider),
			SubscriptionID: o.ProviderSubscriptionID,
			Phase:          string(o.Phase),
			AmountCents:    o.AmountCents,
			Currency:       o.Currency,
			PlanType:       string(o.PlanType),
			Credits:        o.Credits,
			PaidAt:         o.PaidAt,
			CreatedAt:      o.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
