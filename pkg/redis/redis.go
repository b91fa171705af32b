package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/review-insight-backend/config"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection")
		return client.Close()
	}
	return nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key mutual exclusion lock shared by every server
// instance that points at the same Redis.
type Locker struct {
	rdb redis.UniversalClient
}

// NewLocker wraps a client. Pass GetClient() after Init.
func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire takes key for ttl, tagging it with token so only the owner can
// release it. It returns ErrLockHeld when the key is taken.
func (l *Locker) Acquire(ctx context.Context, key, token string, ttl time.Duration) error {
	ok, err := l.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		logger.Error("Failed to acquire lock", err, map[string]interface{}{"key": key})
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockHeld
	}
	logger.Debug("Lock acquired", map[string]interface{}{"key": key, "ttl": ttl.String()})
	return nil
}

// Release frees key if token still owns it. Releasing an expired or foreign
// lock is a no-op.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(key)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		logger.Error("Failed to release lock", err, map[string]interface{}{"key": key})
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	logger.Debug("Lock released", map[string]interface{}{"key": key})
	return nil
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}
