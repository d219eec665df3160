package allowlist

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of built lists kept in memory.
const DefaultCacheSize = 64

// Cache holds built allow-lists keyed by CacheKey, backed by an optional snapshot store.
// Cached lists are immutable and shared between callers.
type Cache struct {
	lists  *lru.Cache[string, *AllowList]
	roots  *lru.Cache[common.Hash, string]
	group  singleflight.Group
	store  persistence.ITreePersistence
	logger *zap.Logger
}

// NewCache creates a cache holding up to size lists. store may be nil.
func NewCache(size int, store persistence.ITreePersistence, logger *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lists, err := lru.New[string, *AllowList](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create list cache: %w", err)
	}
	roots, err := lru.New[common.Hash, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create root cache: %w", err)
	}

	return &Cache{
		lists:  lists,
		roots:  roots,
		store:  store,
		logger: logger,
	}, nil
}

func (c *Cache) add(al *AllowList) {
	key := al.CacheKey()
	c.lists.Add(key, al)
	c.roots.Add(al.Root(), key)
}

// GetOrBuild returns the cached list for addresses under opts, loading it from
// the store or building and saving it on a miss. Concurrent calls for the same
// key share one build.
func (c *Cache) GetOrBuild(name string, addresses []common.Address, opts ...merkle.Option) (*AllowList, error) {
	cfg, err := merkle.ResolveConfig(opts...)
	if err != nil {
		return nil, err
	}

	key := CacheKeyFor(cfg, addresses)
	if al, ok := c.lists.Get(key); ok {
		return al, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if al, ok := c.lists.Get(key); ok {
			return al, nil
		}

		if al := c.loadFromStore(key); al != nil {
			c.add(al)
			return al, nil
		}

		al, err := New(addresses, merkle.WithConfig(cfg))
		if err != nil {
			return nil, err
		}
		c.add(al)

		if c.store != nil {
			if err := c.store.SaveSnapshot(al.Snapshot(name)); err != nil {
				c.logger.Sugar().Warnw("Failed to save allow-list snapshot",
					"key", key, "root", al.Root().Hex(), "error", err)
			}
		}

		c.logger.Sugar().Infow("Built allow-list",
			"name", name,
			"members", al.Len(),
			"root", al.Root().Hex(),
			"hash", cfg.HashFunction,
			"leafOrder", cfg.LeafOrder,
			"oddLayerPolicy", cfg.OddLayerPolicy,
		)
		return al, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AllowList), nil
}

// Get returns the list stored under key, or nil when neither the cache nor the store has it.
func (c *Cache) Get(key string) *AllowList {
	if al, ok := c.lists.Get(key); ok {
		return al
	}

	al := c.loadFromStore(key)
	if al != nil {
		c.add(al)
	}
	return al
}

// GetByRoot returns a list with the given root, or nil if none is known.
func (c *Cache) GetByRoot(root common.Hash) *AllowList {
	if key, ok := c.roots.Get(root); ok {
		if al, ok := c.lists.Get(key); ok {
			return al
		}
	}

	if c.store == nil {
		return nil
	}

	snapshot, err := c.store.LoadSnapshotByRoot(root.Hex())
	if err != nil {
		c.logger.Sugar().Warnw("Failed to load allow-list snapshot by root", "root", root.Hex(), "error", err)
		return nil
	}
	if snapshot == nil {
		return nil
	}

	al, err := FromSnapshot(snapshot)
	if err != nil {
		c.logger.Sugar().Warnw("Discarding allow-list snapshot", "key", snapshot.Key, "error", err)
		return nil
	}
	c.add(al)
	return al
}

// Len returns the number of lists currently held in memory.
func (c *Cache) Len() int {
	return c.lists.Len()
}

// loadFromStore rebuilds a snapshot. Store failures and snapshots that fail the
// root check are logged and treated as misses so the caller rebuilds from source.
func (c *Cache) loadFromStore(key string) *AllowList {
	if c.store == nil {
		return nil
	}

	snapshot, err := c.store.LoadSnapshot(key)
	if err != nil {
		c.logger.Sugar().Warnw("Failed to load allow-list snapshot", "key", key, "error", err)
		return nil
	}
	if snapshot == nil {
		return nil
	}

	al, err := FromSnapshot(snapshot)
	if err != nil {
		if errors.Is(err, ErrRootMismatch) {
			c.logger.Sugar().Errorw("Allow-list snapshot failed root check", "key", key, "error", err)
		} else {
			c.logger.Sugar().Warnw("Discarding allow-list snapshot", "key", key, "error", err)
		}
		return nil
	}
	if al.CacheKey() != key {
		c.logger.Sugar().Warnw("Discarding allow-list snapshot stored under the wrong key",
			"key", key, "snapshotKey", al.CacheKey())
		return nil
	}

	c.logger.Sugar().Debugw("Loaded allow-list snapshot", "key", key, "root", al.Root().Hex())
	return al
}
