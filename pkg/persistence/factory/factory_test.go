package factory

import (
	"testing"

	"github.com/nftkit/allowlist-go/pkg/config"
	"github.com/nftkit/allowlist-go/pkg/persistence/badger"
	"github.com/nftkit/allowlist-go/pkg/persistence/bolt"
	"github.com/nftkit/allowlist-go/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewFromConfig(t *testing.T) {
	t.Run("Nil config gives memory", func(t *testing.T) {
		store, err := NewFromConfig(nil, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &memory.MemoryPersistence{}, store)
	})

	t.Run("Badger", func(t *testing.T) {
		store, err := NewFromConfig(&config.PersistenceConfig{
			Type:     config.PersistenceTypeBadger,
			DataPath: t.TempDir(),
		}, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &badger.BadgerPersistence{}, store)
		assert.NoError(t, store.HealthCheck())
	})

	t.Run("Bolt", func(t *testing.T) {
		store, err := NewFromConfig(&config.PersistenceConfig{
			Type:     config.PersistenceTypeBolt,
			DataPath: t.TempDir(),
		}, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &bolt.BoltPersistence{}, store)
	})

	t.Run("Redis without address", func(t *testing.T) {
		_, err := NewFromConfig(&config.PersistenceConfig{Type: config.PersistenceTypeRedis}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := NewFromConfig(&config.PersistenceConfig{Type: "postgres"}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported persistence type")
	})
}
