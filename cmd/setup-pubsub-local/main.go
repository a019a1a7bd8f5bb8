// Command setup-pubsub-local creates the order notification topics and
// subscriptions in the Pub/Sub emulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/heic2pdf/backend/internal/bootstrap"
	"github.com/heic2pdf/backend/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// 'host.docker.internal' lets the emulator container reach the API on the host.
const dlqEndpointLocal = "http://host.docker.internal:8080/v1/dlq"

func main() {
	reset := flag.Bool("reset", false, "Delete every topic and subscription in the emulator first")
	flag.Parse()

	logger := logger.New()
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := bootstrap.LoadConfig(ctx, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment.")
	}

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	if *reset {
		resetLocalEmulator(ctx, client, logger)
	}
	if err := createResources(ctx, client, logger, cfg.PubSubOrdersTopic); err != nil {
		logger.Fatal().Err(err).Msg("Pub/Sub setup failed")
	}
	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

// resetLocalEmulator deletes all topics and subscriptions. Only for the emulator.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
	logger.Info().Msg("Emulator reset complete")
}

// createResources ensures:
//
//	<topic>          orders published by the reconciler
//	<topic>-sub      pull subscription for downstream consumers, dead-lettering after 5 attempts
//	<topic>-dlq      dead-letter topic
//	<topic>-dlq-sub  push subscription delivering to the API's /v1/dlq
func createResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) error {
	retention := 7 * 24 * time.Hour
	dlqTopic, err := ensureTopic(ctx, client, logger, topicID+"-dlq", retention)
	if err != nil {
		return err
	}
	mainTopic, err := ensureTopic(ctx, client, logger, topicID, retention)
	if err != nil {
		return err
	}

	retry := &pubsub.RetryPolicy{MinimumBackoff: 10 * time.Second, MaximumBackoff: 600 * time.Second}
	if err := ensureSubscription(ctx, client, logger, topicID+"-sub", pubsub.SubscriptionConfig{
		Topic:       mainTopic,
		AckDeadline: 60 * time.Second,
		RetryPolicy: retry,
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	}); err != nil {
		return err
	}
	return ensureSubscription(ctx, client, logger, topicID+"-dlq-sub", pubsub.SubscriptionConfig{
		Topic:       dlqTopic,
		PushConfig:  pubsub.PushConfig{Endpoint: dlqEndpointLocal},
		AckDeadline: 60 * time.Second,
		RetryPolicy: retry,
	})
}

func ensureTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) (*pubsub.Topic, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking topic %s: %w", topicID, err)
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists", topicID)
		return topic, nil
	}
	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	return client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: retention})
}

func ensureSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, cfg pubsub.SubscriptionConfig) error {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking subscription %s: %w", subID, err)
	}
	if !exists {
		logger.Info().Msgf("Creating subscription %s", subID)
		if _, err := client.CreateSubscription(ctx, subID, cfg); err != nil {
			return fmt.Errorf("creating subscription %s: %w", subID, err)
		}
		return nil
	}

	existing, err := sub.Config(ctx)
	if err != nil {
		return fmt.Errorf("reading subscription %s: %w", subID, err)
	}
	if existing.PushConfig.Endpoint == cfg.PushConfig.Endpoint && existing.AckDeadline == cfg.AckDeadline {
		logger.Info().Msgf("Subscription %s is up to date", subID)
		return nil
	}
	logger.Info().Msgf("Updating subscription %s", subID)
	_, err = sub.Update(ctx, pubsub.SubscriptionConfigToUpdate{
		PushConfig:  &cfg.PushConfig,
		AckDeadline: cfg.AckDeadline,
		RetryPolicy: cfg.RetryPolicy,
	})
	return err
}
