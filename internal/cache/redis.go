package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/utils"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock already held")

const (
	processedNamespace = "processed:"
	lockNamespace      = "lock:"
)

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store tracks processed items and serializes runs across processes
type Store interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) error
	ClearProcessed(ctx context.Context) error
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error)
	Close() error
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: cfg.RedisPrefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// IsProcessed reports whether key was marked within its TTL
func (r *RedisClient) IsProcessed(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.processedKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisClient) MarkProcessed(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.processedKey(key), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisClient) ClearProcessed(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+processedNamespace+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}
	}

	return nil
}

// AcquireLock takes an expiring lock named name. The returned func releases
// it and is safe to call after the TTL elapsed and someone else took over.
func (r *RedisClient) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token, err := utils.RandomString(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}

	key := r.prefix + lockNamespace + name
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		// the caller's context may already be cancelled when the run ends
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, r.client, []string{key}, token)
	}
	return release, nil
}

func (r *RedisClient) processedKey(key string) string {
	return r.prefix + processedNamespace + key
}
