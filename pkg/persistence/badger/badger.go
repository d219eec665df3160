package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixSnapshot    = "snapshot:"
	keyPrefixRoot        = "root:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerPersistence stores allow-list snapshots in an embedded Badger database.
//
// Each snapshot is written under snapshot:<key> and its root is indexed under
// root:<normalized root> in the same transaction, so the two never disagree.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ITreePersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens (or creates) the database at dataPath with SyncWrites
// enabled and starts a background value log GC loop.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newZapBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger snapshot store opened", "path", absPath)

	return bp, nil
}

// initSchema writes the schema version on first open and rejects unknown versions afterwards.
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := readValue(txn, keySchemaVersion)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if existing == nil {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if string(existing) != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// readValue returns a copy of the value at key, or nil when the key is absent.
func readValue(txn *badgerdb.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func snapshotKey(key string) string {
	return keyPrefixSnapshot + key
}

func rootKey(root string) string {
	return keyPrefixRoot + persistence.NormalizeRoot(root)
}

// SaveSnapshot persists a snapshot and points its root index at it.
func (b *BadgerPersistence) SaveSnapshot(snapshot *persistence.TreeSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil TreeSnapshot")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid TreeSnapshot: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalTreeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal TreeSnapshot: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(snapshotKey(snapshot.Key)), data); err != nil {
			return err
		}
		return txn.Set([]byte(rootKey(snapshot.Root)), []byte(snapshot.Key))
	})
}

// LoadSnapshot retrieves a snapshot by key.
func (b *BadgerPersistence) LoadSnapshot(key string) (*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = readValue(txn, snapshotKey(key))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load TreeSnapshot: %w", err)
	}
	if data == nil {
		return nil, nil // Not found
	}

	snapshot, err := persistence.UnmarshalTreeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TreeSnapshot: %w", err)
	}
	return snapshot, nil
}

// LoadSnapshotByRoot resolves root through the index and loads the snapshot it points to.
func (b *BadgerPersistence) LoadSnapshotByRoot(root string) (*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		key, err := readValue(txn, rootKey(root))
		if err != nil || key == nil {
			return err
		}
		data, err = readValue(txn, snapshotKey(string(key)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load TreeSnapshot by root: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	snapshot, err := persistence.UnmarshalTreeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TreeSnapshot: %w", err)
	}
	return snapshot, nil
}

// ListSnapshots returns all snapshots sorted by creation time.
// Entries that fail to decode are logged and skipped.
func (b *BadgerPersistence) ListSnapshots() ([]*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	snapshots := make([]*persistence.TreeSnapshot, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSnapshot)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			snapshot, err := persistence.UnmarshalTreeSnapshot(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal TreeSnapshot, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			snapshots = append(snapshots, snapshot)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list TreeSnapshots: %w", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt == snapshots[j].CreatedAt {
			return snapshots[i].Key < snapshots[j].Key
		}
		return snapshots[i].CreatedAt < snapshots[j].CreatedAt
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot and its root index entry if the entry still points at it.
func (b *BadgerPersistence) DeleteSnapshot(key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		data, err := readValue(txn, snapshotKey(key))
		if err != nil || data == nil {
			return err
		}

		snapshot, err := persistence.UnmarshalTreeSnapshot(data)
		if err == nil {
			indexed, err := readValue(txn, rootKey(snapshot.Root))
			if err != nil {
				return err
			}
			if string(indexed) == key {
				if err := txn.Delete([]byte(rootKey(snapshot.Root))); err != nil {
					return err
				}
			}
		}

		return txn.Delete([]byte(snapshotKey(key)))
	})
}

// Close stops the GC loop and closes the database. Safe to call more than once.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger snapshot store closed")
	return nil
}

// HealthCheck verifies the schema marker is readable.
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		version, err := readValue(txn, keySchemaVersion)
		if err != nil {
			return err
		}
		if version == nil {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return nil
	})
}
