package flash

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores flashes as JSON under "<prefix><token>" with TTL = ExpiresAt - now.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-backed flash repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "flash:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

func (r *RedisRepository) Put(ctx context.Context, token string, f *Flash) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	exp := time.Until(f.ExpiresAt)
	if exp <= 0 {
		exp = time.Second
	}
	return r.client.Set(ctx, r.key(token), b, exp).Err()
}

func (r *RedisRepository) Pull(ctx context.Context, token string) (*Flash, error) {
	b, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	_ = r.client.Del(ctx, r.key(token)).Err()
	var f Flash
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
