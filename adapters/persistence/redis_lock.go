package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/pkg/logger"
)

const (
	lockKeyPrefix     = "lock:"
	defaultLockTTL    = 30 * time.Second
	defaultLockRetry  = 50 * time.Millisecond
	lockReleaseBudget = 2 * time.Second
)

// releaseLockScript deletes the key only while it still holds our token, so
// a lock that expired and was taken by someone else is left alone.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a per-key mutex shared by every server instance pointing at
// the same Redis.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger logger.Logger
}

func NewRedisLocker(rdb *redis.Client, log logger.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: defaultLockTTL, retry: defaultLockRetry, logger: log}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseBudget)
			defer cancel()

			err := releaseLockScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
