package credstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady   = errors.New("redis did not become ready within the given time period")
)

// RedisConfig is parsed from the environment with config.Parse.
type RedisConfig struct {
	ConnectionURL  string        `env:"DESK_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"DESK_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"DESK_REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"DESK_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// ConnectRedis dials Redis and pings it, retrying RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrRedisConnString, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}
