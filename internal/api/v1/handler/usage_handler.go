package handler

import (
	"encoding/json"
	"net/http"

	"github.com/heic2pdf/backend/internal/api/v1/dto"
	"github.com/heic2pdf/backend/internal/middleware"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
)

// UsageHandler serves the daily quota of the authenticated user.
type UsageHandler struct {
	resolver service.EntitlementResolver
	logger   zerolog.Logger
}

func NewUsageHandler(resolver service.EntitlementResolver, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{resolver: resolver, logger: logger}
}

func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/usage", authMw(http.HandlerFunc(h.getUsage)))
}

// getUsage godoc
// @Summary Get today's conversion usage
// @Description Returns whether the user may convert now, today's count, the daily limit and when it resets (UTC midnight). Pro users report remaining = -1.
// @Tags usage
// @Produce json
// @Success 200 {object} dto.UsageResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 405 {string} string "Method Not Allowed"
// @Router /usage [get]
func (h *UsageHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	u := h.resolver.Usage(r.Context(), userID)
	resp := dto.UsageResponseDTO{
		CanConvert: u.CanConvert,
		Reason:     u.Reason,
		IsPro:      u.IsPro,
		DailyCount: u.DailyCount,
		DailyLimit: u.DailyLimit,
		Remaining:  u.Remaining,
		ResetAt:    u.ResetAt,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode usage response")
	}
}
