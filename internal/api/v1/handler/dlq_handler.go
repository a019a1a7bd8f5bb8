package handler

import (
	"encoding/json"
	"net/http"

	"github.com/heic2pdf/backend/internal/pubsub"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
)

// DLQHandler receives order notifications from the dead-letter push subscription.
type DLQHandler struct {
	service service.DLQService
	logger  zerolog.Logger
}

func NewDLQHandler(s service.DLQService, l zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, logger: l}
}

func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, pubsubAuth func(http.Handler) http.Handler) {
	mux.Handle("/dlq", pubsubAuth(http.HandlerFunc(h.recordDLQ)))
}

// recordDLQ godoc
// @Summary Record a dead-lettered order notification
// @Description Push endpoint for the order notification dead-letter subscription. Always acknowledges once the message is readable.
// @Tags dlq
// @Accept json
// @Param message body pubsub.PushRequest true "Pub/Sub push envelope"
// @Success 204
// @Failure 400 {string} string "Invalid Pub/Sub message format"
// @Failure 401 {string} string "Unauthorized: invalid token"
// @Router /dlq [post]
func (h *DLQHandler) recordDLQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req pubsub.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message.MessageID == "" {
		http.Error(w, "Invalid Pub/Sub message format: missing message ID", http.StatusBadRequest)
		return
	}

	msg, err := h.service.ProcessAndSave(r.Context(), &req)
	if err != nil {
		// Still acknowledge: the message is already dead-lettered and a retry would loop.
		h.logger.Error().Err(err).Str("messageId", req.Message.MessageID).Msg("Failed to save DLQ message to database")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Info().
		Str("messageId", msg.MessageID).
		Str("order_id", msg.OrderID).
		Str("subscription", msg.SubscriptionName).
		Msg("Dead-lettered order notification saved")
	w.WriteHeader(http.StatusNoContent)
}
