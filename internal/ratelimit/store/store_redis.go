package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teamdns/internal/ratelimit/models"
)

// Redis shares sliding windows across instances using one sorted set per key.
// Members are unique per request and scored by their arrival time in
// microseconds.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow trims the window, counts, and admits in one pipeline. The admitted
// member is removed again when the count was already at the limit.
func (s *Redis) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now()
	cutoff := now.Add(-limit.Window).UnixMicro()
	member := strconv.FormatInt(now.UnixMicro(), 10) + ":" + uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.PExpire(ctx, key, limit.Window)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit pipeline: %w", err)
	}

	resetAt := now.Add(limit.Window)
	if first := oldest.Val(); len(first) > 0 {
		resetAt = time.UnixMicro(int64(first[0].Score)).Add(limit.Window)
	}

	used := int(count.Val())
	if used >= limit.Requests {
		if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit rollback: %w", err)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}

	return &models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - used - 1,
		ResetAt:   resetAt,
	}, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
