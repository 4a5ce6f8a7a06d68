package cache

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/config"

	"github.com/redis/go-redis/v9"
)

// OpenRedis connects using REDIS_URL when set, otherwise host/port, and pings once.
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	r := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}
