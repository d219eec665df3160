package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "allowlist:snapshot:"
	keyPrefixRoot        = "allowlist:root:"
	keySchemaVersion     = "allowlist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no prefix iteration, so snapshot keys are tracked in a set.
	keySetSnapshots = "allowlist:snapshots:index"

	connectTimeout = 5 * time.Second
)

// RedisPersistence stores snapshots in Redis so several servers can share one set of trees.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ITreePersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "drop1:" gives "drop1:allowlist:snapshot:<key>".
	KeyPrefix string
}

// NewRedisPersistence connects, pings and checks the schema marker.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis snapshot store connected",
		"address", cfg.Address,
		"db", cfg.DB,
		"key_prefix", cfg.KeyPrefix,
	)

	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) snapshotKey(key string) string {
	return r.prefixKey(keyPrefixSnapshot + key)
}

func (r *RedisPersistence) rootKey(root string) string {
	return r.prefixKey(keyPrefixRoot + persistence.NormalizeRoot(root))
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// SaveSnapshot writes the snapshot, its root index and the listing index in one transaction.
func (r *RedisPersistence) SaveSnapshot(snapshot *persistence.TreeSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil TreeSnapshot")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid TreeSnapshot: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalTreeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal TreeSnapshot: %w", err)
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.snapshotKey(snapshot.Key), data, 0)
	pipe.Set(ctx, r.rootKey(snapshot.Root), snapshot.Key, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetSnapshots), snapshot.Key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save TreeSnapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a snapshot by key.
func (r *RedisPersistence) LoadSnapshot(key string) (*persistence.TreeSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	return r.loadSnapshot(context.Background(), key)
}

func (r *RedisPersistence) loadSnapshot(ctx context.Context, key string) (*persistence.TreeSnapshot, error) {
	data, err := r.client.Get(ctx, r.snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load TreeSnapshot: %w", err)
	}

	snapshot, err := persistence.UnmarshalTreeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TreeSnapshot: %w", err)
	}
	return snapshot, nil
}

// LoadSnapshotByRoot follows the root index to a snapshot.
func (r *RedisPersistence) LoadSnapshotByRoot(root string) (*persistence.TreeSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	key, err := r.client.Get(ctx, r.rootKey(root)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	return r.loadSnapshot(ctx, key)
}

// ListSnapshots returns all snapshots sorted by creation time.
// Index entries whose snapshot is gone are pruned.
func (r *RedisPersistence) ListSnapshots() ([]*persistence.TreeSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetSnapshots)

	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list TreeSnapshot keys: %w", err)
	}

	snapshots := make([]*persistence.TreeSnapshot, 0, len(keys))
	if len(keys) == 0 {
		return snapshots, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = r.snapshotKey(key)
	}

	values, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch TreeSnapshots: %w", err)
	}

	for i, val := range values {
		if val == nil {
			r.client.SRem(ctx, indexKey, keys[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for TreeSnapshot", "key", redisKeys[i])
			continue
		}

		snapshot, err := persistence.UnmarshalTreeSnapshot([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal TreeSnapshot, skipping",
				"key", redisKeys[i], "error", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt == snapshots[j].CreatedAt {
			return snapshots[i].Key < snapshots[j].Key
		}
		return snapshots[i].CreatedAt < snapshots[j].CreatedAt
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot, its listing entry and its root index if that still points here.
func (r *RedisPersistence) DeleteSnapshot(key string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	snapshot, err := r.loadSnapshot(ctx, key)
	if err != nil {
		r.logger.Sugar().Warnw("Deleting unreadable TreeSnapshot", "key", key, "error", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.snapshotKey(key))
	pipe.SRem(ctx, r.prefixKey(keySetSnapshots), key)

	if snapshot != nil {
		indexed, err := r.client.Get(ctx, r.rootKey(snapshot.Root)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to resolve root: %w", err)
		}
		if indexed == key {
			pipe.Del(ctx, r.rootKey(snapshot.Root))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete TreeSnapshot: %w", err)
	}
	return nil
}

// Close shuts down the client. Safe to call more than once.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis snapshot store closed")
	return nil
}

// HealthCheck pings Redis and checks the schema marker.
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
