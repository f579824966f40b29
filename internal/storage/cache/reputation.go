// internal/storage/cache/reputation.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/matching"

	"github.com/redis/go-redis/v9"
)

const DefaultReputationTTL = 10 * time.Minute

type reputationEntry struct {
	Rating float64 `json:"rating"`
	Trust  float64 `json:"trust"`
}

// ReputationCache is a read-through Redis cache in front of another
// ReputationService. Both values for a user live under one key. Redis
// failures degrade to the backing service.
type ReputationCache struct {
	next   matching.ReputationService
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewReputationCache(next matching.ReputationService, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *ReputationCache {
	if ttl <= 0 {
		ttl = DefaultReputationTTL
	}
	return &ReputationCache{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.Named("reputation-cache"),
	}
}

func cacheKey(userID string) string {
	return "reputation:" + userID
}

func (c *ReputationCache) Rating(ctx context.Context, userID string) (float64, error) {
	e, err := c.entry(ctx, userID)
	if err != nil {
		return matching.DefaultRating, err
	}
	return e.Rating, nil
}

func (c *ReputationCache) Trust(ctx context.Context, userID string) (float64, error) {
	e, err := c.entry(ctx, userID)
	if err != nil {
		return matching.DefaultTrust, err
	}
	return e.Trust, nil
}

func (c *ReputationCache) entry(ctx context.Context, userID string) (reputationEntry, error) {
	key := cacheKey(userID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var e reputationEntry
		if jsonErr := json.Unmarshal([]byte(val), &e); jsonErr == nil {
			return e, nil
		}
		c.logger.Warn("discarding corrupt reputation cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("reputation cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	rating, err := c.next.Rating(ctx, userID)
	if err != nil {
		return reputationEntry{}, fmt.Errorf("rating for %s: %w", userID, err)
	}
	trust, err := c.next.Trust(ctx, userID)
	if err != nil {
		return reputationEntry{}, fmt.Errorf("trust for %s: %w", userID, err)
	}
	e := reputationEntry{Rating: rating, Trust: trust}

	data, _ := json.Marshal(e)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("reputation cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return e, nil
}

// Invalidate drops the cached entry, e.g. after a new review.
func (c *ReputationCache) Invalidate(ctx context.Context, userID string) error {
	return c.redis.Del(ctx, cacheKey(userID)).Err()
}
