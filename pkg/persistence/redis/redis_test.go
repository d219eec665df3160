package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nftkit/allowlist-go/pkg/logger"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/nftkit/allowlist-go/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedisAddress returns REDIS_TEST_ADDRESS or localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis connects under a unique key prefix, skipping the test when Redis is unreachable.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: fmt.Sprintf("test-%s:", uuid.NewString()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	t.Cleanup(func() { cleanupRedis(cfg) })
	return rp
}

// cleanupRedis removes every key written under the test prefix.
func cleanupRedis(cfg *RedisConfig) {
	rp, err := NewRedisPersistence(cfg, nil)
	if err != nil {
		return
	}
	defer func() { _ = rp.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := rp.client.Scan(ctx, 0, cfg.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		rp.client.Del(ctx, iter.Val())
	}
}

func TestRedisPersistence_Conformance(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.ITreePersistence {
		return requireRedis(t)
	})
}

func TestRedisPersistence_KeyPrefix(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	snapshot := persistencetest.NewSnapshot("prefixed", 0x42, 1)
	require.NoError(t, rp.SaveSnapshot(snapshot))

	exists, err := rp.client.Exists(context.Background(), rp.keyPrefix+keyPrefixSnapshot+"prefixed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestRedisPersistence_ListPrunesStaleIndex(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	require.NoError(t, rp.SaveSnapshot(persistencetest.NewSnapshot("kept", 1, 1)))
	require.NoError(t, rp.client.SAdd(context.Background(), rp.prefixKey(keySetSnapshots), "ghost").Err())

	snapshots, err := rp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	isMember, err := rp.client.SIsMember(context.Background(), rp.prefixKey(keySetSnapshots), "ghost").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRedisPersistence_Config_Nil(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestRedisPersistence_Config_EmptyAddress(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(&RedisConfig{Address: ""}, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
