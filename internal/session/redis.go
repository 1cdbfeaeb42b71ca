package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/logging"
)

// Cache abstracts the Redis operations used by RedisStore to make testing easier.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache is a concrete implementation backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// RedisStore keeps session state as JSON under session:<id>, refreshing the
// TTL on every write.
type RedisStore struct {
	cache          Cache
	ttl            time.Duration
	logger         *zap.Logger
	now            func() time.Time
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewRedisStore(cache Cache, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		cache:          cache,
		ttl:            ttl,
		logger:         logger.Named("session_store"),
		now:            time.Now,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (r *RedisStore) Get(ctx context.Context, id string) (State, error) {
	var raw string
	err := r.withRetry(ctx, id, "session.get", func() error {
		value, err := r.cache.Get(ctx, sessionKey(id))
		if err != nil {
			return err
		}
		raw = value
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return New(id), nil
	}
	if err != nil {
		return State{}, err
	}

	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logging.WithOperation(r.logger, "session.get", id).Warn("discarding unreadable session", zap.Error(err))
		return New(id), nil
	}
	s.ID = id
	return s, nil
}

func (r *RedisStore) Update(ctx context.Context, id string, transitions ...Transition) (State, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	apply(&s, r.now().UTC(), transitions)

	serialized, err := json.Marshal(s)
	if err != nil {
		return State{}, logging.NewOperationError("session.encode", id, err)
	}
	if err := r.withRetry(ctx, id, "session.set", func() error {
		return r.cache.Set(ctx, sessionKey(id), string(serialized), r.ttl)
	}); err != nil {
		return State{}, err
	}
	return s, nil
}

func (r *RedisStore) withRetry(ctx context.Context, sessionID, operation string, fn func() error) error {
	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, sessionID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, sessionID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if errors.Is(err, redis.Nil) {
			return err
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, sessionID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, sessionID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
