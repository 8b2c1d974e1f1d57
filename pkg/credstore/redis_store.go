package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/deskkit/pkg/secrets"
)

const defaultKeyPrefix = "deskkit:session:"

// RedisStore keeps the record for one origin under a single Redis key.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	codec  codec
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisSealer encrypts records written by the store.
func WithRedisSealer(s *secrets.Sealer) RedisOption {
	return func(r *RedisStore) { r.codec.sealer = s }
}

// WithRedisTTL expires the record after ttl. Zero keeps it until Clear.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) { r.ttl = ttl }
}

// WithRedisKeyPrefix overrides the key prefix.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		if prefix != "" {
			r.key = prefix
		}
	}
}

func NewRedisStore(client redis.Cmdable, origin string, opts ...RedisOption) *RedisStore {
	r := &RedisStore{client: client, key: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	r.key += origin
	return r
}

func (r *RedisStore) Load(ctx context.Context) (*Record, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return r.codec.decode(data)
}

func (r *RedisStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data, err := r.codec.encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}
