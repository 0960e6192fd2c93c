package caching

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient accepts either host:port or a redis:// URL. A failed ping is
// logged, not returned, so the process can start while redis recovers.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) *redis.Client {
	parsedAddr := addr
	for _, prefix := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(addr, prefix) {
			parsedAddr = strings.TrimSuffix(strings.TrimPrefix(addr, prefix), "/")
			break
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		logger.Info("Redis connection established", zap.String("addr", parsedAddr))
	}
	return client
}
