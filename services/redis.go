package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/redis/go-redis/v9"
)

// RedisService caches the per-user freeze flags so booking-creation hot paths
// don't hit the restriction tables on every request. Entries are short-lived
// and invalidated whenever a restriction is created or unfrozen.
type RedisService struct {
	appContext.DefaultService
	redis *redis.Client
}

const REDIS_SVC = "redis_svc"

const freezeCacheTTL = time.Minute

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.initRedisClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis != nil {
		ctx := context.Background()
		_, err := svc.redis.Ping(ctx).Result()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	return nil
}

func (svc *RedisService) initRedisClient() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	svc.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

func freezeCacheKey(family, userID string) string {
	return fmt.Sprintf("freeze:%s:%s", family, userID)
}

// GetFreezeFlag returns the cached freeze state, or ok=false on a miss (or
// when Redis is unavailable, which callers treat as a miss).
func (svc *RedisService) GetFreezeFlag(ctx context.Context, family, userID string) (frozen bool, ok bool) {
	if svc.redis == nil {
		return false, false
	}
	val, err := svc.redis.Get(ctx, freezeCacheKey(family, userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return false, false
		}
		return false, false
	}
	return val == "1", true
}

func (svc *RedisService) SetFreezeFlag(ctx context.Context, family, userID string, frozen bool) {
	if svc.redis == nil {
		return
	}
	val := "0"
	if frozen {
		val = "1"
	}
	svc.redis.Set(ctx, freezeCacheKey(family, userID), val, freezeCacheTTL)
}

func (svc *RedisService) InvalidateFreezeFlag(ctx context.Context, family, userID string) {
	if svc.redis == nil {
		return
	}
	svc.redis.Del(ctx, freezeCacheKey(family, userID))
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		_ = svc.redis.Close()
	}
}
