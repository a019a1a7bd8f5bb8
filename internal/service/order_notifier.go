package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/pubsub"

	"github.com/rs/zerolog"
)

type pubsubOrderNotifier struct {
	publisher pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewOrderNotifier publishes each new order as JSON to topic.
func NewOrderNotifier(publisher pubsub.Publisher, topic string, logger zerolog.Logger) OrderNotifier {
	return &pubsubOrderNotifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("service", "OrderNotifier").Logger(),
	}
}

func (n *pubsubOrderNotifier) OrderCreated(ctx context.Context, order model.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.ID, err)
	}
	attrs := map[string]string{
		"provider":    string(order.Provider),
		"event_class": string(order.EventClass),
		"user_id":     order.UserID,
	}
	msgID, err := n.publisher.Publish(ctx, n.topic, payload, attrs)
	if err != nil {
		return err
	}
	n.logger.Debug().Str("order_id", order.ID).Str("message_id", msgID).Msg("Order notification published")
	return nil
}
