package service

import (
	"context"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"

	"github.com/rs/zerolog"
)

// UsageStatus is the free-tier view of a user's counter for today.
type UsageStatus struct {
	DailyCount     int
	IsLimitReached bool
}

// UsageLedger meters conversions per user and UTC day. Storage failures never block a
// conversion: reads report zero usage and writes are dropped, both with an error log.
type UsageLedger interface {
	CheckAndMaybeReset(ctx context.Context, userID string) UsageStatus
	RecordConversion(ctx context.Context, userID string)
	DailyLimit() int
}

type usageLedger struct {
	repo   repository.UsageRepository
	opts   Options
	logger zerolog.Logger
}

func NewUsageLedger(repo repository.UsageRepository, logger zerolog.Logger, opts Options) UsageLedger {
	return &usageLedger{
		repo:   repo,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("service", "UsageLedger").Logger(),
	}
}

func (l *usageLedger) DailyLimit() int {
	return l.opts.DailyFreeLimit
}

// CheckAndMaybeReset returns today's count, creating or rolling over the record first.
func (l *usageLedger) CheckAndMaybeReset(ctx context.Context, userID string) UsageStatus {
	today := model.UTCDay(l.opts.Now())
	count, err := l.repo.CheckAndMaybeReset(ctx, userID, today)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to check usage, allowing conversion")
		return UsageStatus{}
	}
	return UsageStatus{DailyCount: count, IsLimitReached: count >= l.opts.DailyFreeLimit}
}

// RecordConversion counts one successful conversion against today.
func (l *usageLedger) RecordConversion(ctx context.Context, userID string) {
	today := model.UTCDay(l.opts.Now())
	count, err := l.repo.RecordConversion(ctx, userID, today)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to record conversion")
		return
	}
	l.logger.Debug().Str("user_id", userID).Int("daily_count", count).Msg("Conversion recorded")
}
