package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/pubsub"
	"github.com/heic2pdf/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DLQService stores order notifications that downstream consumers never acknowledged.
type DLQService interface {
	ProcessAndSave(ctx context.Context, req *pubsub.PushRequest) (*model.DeadLetterMessage, error)
}

type dlqService struct {
	repo   repository.DLQRepository
	logger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{repo: repo, logger: logger.With().Str("service", "DLQService").Logger()}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *pubsub.PushRequest) (*model.DeadLetterMessage, error) {
	payload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		// Keep the raw data rather than lose the message.
		payload = []byte(req.Message.Data)
	}

	msg := &model.DeadLetterMessage{
		ID:               uuid.NewString(),
		SubscriptionName: req.Subscription,
		MessageID:        req.Message.MessageID,
		Payload:          string(payload),
		UserID:           req.Message.Attributes["user_id"],
		Status:           model.DeadLetterUnprocessed,
	}
	if len(req.Message.Attributes) > 0 {
		if b, err := json.Marshal(req.Message.Attributes); err == nil {
			attrs := string(b)
			msg.Attributes = &attrs
		}
	}

	var order model.Order
	if err := json.Unmarshal(payload, &order); err == nil {
		msg.OrderID = order.ID
		if msg.UserID == "" {
			msg.UserID = order.UserID
		}
	} else {
		s.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Dead letter payload is not an order")
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
