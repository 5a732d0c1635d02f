package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each session in one hash at <prefix><sid>. Every write slides
// the hash expiry forward by ttl.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis-backed Storage.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "session:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(sid string) string {
	return r.prefix + sid
}

// Get implements Storage.
func (r *Redis) Get(ctx context.Context, sid, key string) (string, bool, error) {
	val, err := r.client.HGet(ctx, r.key(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set implements Storage.
func (r *Redis) Set(ctx context.Context, sid, key, value string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(sid), key, value)
		pipe.Expire(ctx, r.key(sid), r.ttl)
		return nil
	})
	return err
}

// Remove implements Storage.
func (r *Redis) Remove(ctx context.Context, sid string, keys ...string) error {
	return r.client.HDel(ctx, r.key(sid), keys...).Err()
}

// Clear implements Storage.
func (r *Redis) Clear(ctx context.Context, sid string) error {
	return r.client.Del(ctx, r.key(sid)).Err()
}
