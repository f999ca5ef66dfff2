package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"
)

// TransferCache is a read-through Redis cache in front of a LedgerClient.
// The upstream API is rate limited and repeated investigations revisit the
// same addresses, so hits save both latency and quota. Cache failures fall
// through to the upstream client and never fail a fetch.
type TransferCache struct {
	inner  service.LedgerClient
	client *redis.Client
	cfg    *config.RedisConfig
	logger *logger.Logger
}

// NewTransferCache wraps inner with a Redis cache.
func NewTransferCache(inner service.LedgerClient, cfg *config.RedisConfig, logger *logger.Logger) *TransferCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &TransferCache{
		inner:  inner,
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("transfer-cache"),
	}
}

// Close releases the Redis connection.
func (c *TransferCache) Close() error {
	return c.client.Close()
}

func (c *TransferCache) key(address entity.Address) string {
	return fmt.Sprintf("transfers:%s", address)
}

// GetOutgoingTransfers serves from cache when possible, otherwise fetches
// upstream and stores the result with the configured TTL.
func (c *TransferCache) GetOutgoingTransfers(ctx context.Context, address entity.Address) ([]entity.Transaction, error) {
	key := c.key(address)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var transfers []entity.Transaction
		if err := json.Unmarshal(payload, &transfers); err == nil {
			c.logger.Debug("Cache hit", zap.String("address", address.Short()))
			return transfers, nil
		}
		// Corrupt entry: drop it and refetch.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Cache read failed, falling through",
			zap.String("address", address.Short()),
			zap.Error(err))
	}

	transfers, err := c.inner.GetOutgoingTransfers(ctx, address)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(transfers); err == nil {
		if err := c.client.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
			c.logger.Warn("Cache write failed",
				zap.String("address", address.Short()),
				zap.Error(err))
		}
	}

	return transfers, nil
}
