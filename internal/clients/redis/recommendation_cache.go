package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mangamuse/mangamuse-backend/internal/logger"
	"github.com/mangamuse/mangamuse-backend/internal/types"
)

// RecommendationCache is a read-through cache for recommendation records
// plus a cross-process generation lock. It is optional infrastructure:
// every method is safe on a nil receiver, so the service runs unchanged
// when REDIS_ADDR is not configured.
type RecommendationCache struct {
	log *logger.Logger
	rdb *goredis.Client

	recordTTL time.Duration
	lockTTL   time.Duration
}

func NewRecommendationCache(log *logger.Logger) (*RecommendationCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RecommendationCache{
		log:       log.With("service", "RecommendationCache"),
		rdb:       rdb,
		recordTTL: 5 * time.Minute,
		lockTTL:   2 * time.Minute,
	}, nil
}

func (c *RecommendationCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func recordKey(userID uuid.UUID) string {
	return "reco:record:" + userID.String()
}

func lockKey(userID uuid.UUID) string {
	return "reco:lock:" + userID.String()
}

func (c *RecommendationCache) GetRecord(ctx context.Context, userID uuid.UUID) *types.RecommendationRecord {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, recordKey(userID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("Cache read failed", "user_id", userID, "error", err)
		}
		return nil
	}
	var record types.RecommendationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		c.log.Debug("Cache entry undecodable, dropping", "user_id", userID, "error", err)
		_ = c.rdb.Del(ctx, recordKey(userID)).Err()
		return nil
	}
	return &record
}

func (c *RecommendationCache) SetRecord(ctx context.Context, userID uuid.UUID, record *types.RecommendationRecord) {
	if c == nil || c.rdb == nil || record == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, recordKey(userID), raw, c.recordTTL).Err(); err != nil {
		c.log.Debug("Cache write failed", "user_id", userID, "error", err)
	}
}

func (c *RecommendationCache) InvalidateRecord(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, recordKey(userID)).Err(); err != nil {
		c.log.Debug("Cache invalidation failed", "user_id", userID, "error", err)
	}
}

// AcquireGenerationLock takes the per-user cross-process lock. Without
// Redis it always succeeds: the in-process singleflight still holds within
// one instance. The lock TTL covers a worst-case generation run so a
// crashed holder cannot wedge a user forever.
func (c *RecommendationCache) AcquireGenerationLock(ctx context.Context, userID uuid.UUID) (release func(), acquired bool) {
	if c == nil || c.rdb == nil {
		return func() {}, true
	}
	ok, err := c.rdb.SetNX(ctx, lockKey(userID), "1", c.lockTTL).Result()
	if err != nil {
		c.log.Warn("Generation lock unavailable, proceeding without it", "user_id", userID, "error", err)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		if err := c.rdb.Del(context.Background(), lockKey(userID)).Err(); err != nil {
			c.log.Debug("Generation lock release failed", "user_id", userID, "error", err)
		}
	}, true
}
