// Package factory opens the snapshot store selected in the allow-list config.
package factory

import (
	"fmt"

	"github.com/nftkit/allowlist-go/pkg/config"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/nftkit/allowlist-go/pkg/persistence/badger"
	"github.com/nftkit/allowlist-go/pkg/persistence/bolt"
	"github.com/nftkit/allowlist-go/pkg/persistence/memory"
	"github.com/nftkit/allowlist-go/pkg/persistence/redis"
	"go.uber.org/zap"
)

// NewFromConfig returns the backend named by cfg.Type. A nil cfg or empty type gives memory.
func NewFromConfig(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ITreePersistence, error) {
	if cfg == nil || cfg.Type == "" {
		return memory.NewMemoryPersistence(logger), nil
	}

	switch cfg.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(logger), nil
	case config.PersistenceTypeBadger:
		return badger.NewBadgerPersistence(cfg.DataPath, logger)
	case config.PersistenceTypeBolt:
		return bolt.NewBoltPersistence(cfg.DataPath, logger)
	case config.PersistenceTypeRedis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
