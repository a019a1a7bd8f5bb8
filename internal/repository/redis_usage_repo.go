package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// usageKeyTTL keeps a day's counter around long enough to cover every timezone's view of "today".
const usageKeyTTL = 48 * time.Hour

type redisUsageRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisUsageRepo creates a UsageRepository that keeps one counter key per user and UTC day.
// Rollover is implicit: a new day addresses a new key.
func NewRedisUsageRepo(client redis.UniversalClient) UsageRepository {
	return &redisUsageRepo{client: client, prefix: "usage"}
}

func (r *redisUsageRepo) key(userID string, today time.Time) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, userID, today.UTC().Format(time.DateOnly))
}

func (r *redisUsageRepo) CheckAndMaybeReset(ctx context.Context, userID string, today time.Time) (int, error) {
	key := r.key(userID, today)
	var get *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, usageKeyTTL)
		get = pipe.Get(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("reading usage for user %s: %w", userID, err)
	}
	count, err := get.Int()
	if err != nil {
		return 0, fmt.Errorf("parsing usage for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *redisUsageRepo) RecordConversion(ctx context.Context, userID string, today time.Time) (int, error) {
	key := r.key(userID, today)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, usageKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recording conversion for user %s: %w", userID, err)
	}
	return int(incr.Val()), nil
}

var ErrRedisNotReady = errors.New("redis is not ready")

// ConnectRedis parses a redis:// URL and pings until the server answers or attempts run out.
func ConnectRedis(ctx context.Context, url string, attempts int, interval time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	for range max(attempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, ErrRedisNotReady
}
