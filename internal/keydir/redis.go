package keydir

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jask/contribsearch/internal/names"
)

const (
	// Redis key prefix for directory entries
	redisKeyPrefix = "contribsearch:pk:"
)

// Redis is a directory shared by every process pointed at the same Redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a Redis directory.
type RedisOption func(*Redis)

// WithTTL expires entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// NewRedis wraps client. The client lifecycle is managed by the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) Lookup(ctx context.Context, first, last, city string) (names.PersonKey, bool, error) {
	v, err := r.client.Get(ctx, redisKeyPrefix+entryKey(first, last, city)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	k, ok := names.ParseKey(v)
	if !ok {
		// Foreign value under our prefix; treat as unknown.
		return "", false, nil
	}
	return k, true, nil
}

func (r *Redis) Remember(ctx context.Context, first, last, city string, key names.PersonKey) error {
	if key == "" {
		return nil
	}
	return r.client.Set(ctx, redisKeyPrefix+entryKey(first, last, city), key.String(), r.ttl).Err()
}
