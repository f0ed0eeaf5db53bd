package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed [CounterStore] for limits shared across
// processes.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] under the given key prefix
// ("ac:rate" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac:rate"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := s.prefix + ":" + key

	count, err := s.redis.Incr(ctx, full).Result()
	if err != nil {
		return 0, err
	}
	// First hit in the window owns the expiry. Window keys embed the window
	// start, so a lost EXPIRE only leaks the key, it never extends a limit.
	if count == 1 {
		if err := s.redis.Expire(ctx, full, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
