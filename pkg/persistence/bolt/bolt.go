package bolt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nftkit/allowlist-go/pkg/persistence"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	// DatabaseFile is the file created inside the data directory.
	DatabaseFile = "snapshots.db"

	openTimeout = time.Second
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketRoots     = []byte("roots")
	bucketMetadata  = []byte("metadata")

	keySchemaVersion     = []byte("schema_version")
	currentSchemaVersion = []byte("v1")
)

// BoltPersistence stores snapshots in a single bbolt file.
// bbolt holds an exclusive file lock, so only one process can open a data directory at a time.
type BoltPersistence struct {
	db     *bbolt.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

var _ persistence.ITreePersistence = (*BoltPersistence)(nil)

// NewBoltPersistence opens dataPath/snapshots.db, creating the directory and buckets when missing.
func NewBoltPersistence(dataPath string, logger *zap.Logger) (*BoltPersistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", absPath, err)
	}

	dbPath := filepath.Join(absPath, DatabaseFile)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshots, bucketRoots, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMetadata)
		existing := meta.Get(keySchemaVersion)
		if existing == nil {
			return meta.Put(keySchemaVersion, currentSchemaVersion)
		}
		if !bytes.Equal(existing, currentSchemaVersion) {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	logger.Sugar().Infow("Bolt snapshot store opened", "path", dbPath)

	return &BoltPersistence{db: db, logger: logger}, nil
}

// SaveSnapshot persists a snapshot and points its root index at it.
func (b *BoltPersistence) SaveSnapshot(snapshot *persistence.TreeSnapshot) error {
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

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).Put([]byte(snapshot.Key), data); err != nil {
			return err
		}
		return tx.Bucket(bucketRoots).Put([]byte(persistence.NormalizeRoot(snapshot.Root)), []byte(snapshot.Key))
	})
}

// LoadSnapshot retrieves a snapshot by key.
func (b *BoltPersistence) LoadSnapshot(key string) (*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		data = copyValue(tx.Bucket(bucketSnapshots).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load TreeSnapshot: %w", err)
	}
	return decode(data)
}

// LoadSnapshotByRoot resolves root through the roots bucket.
func (b *BoltPersistence) LoadSnapshotByRoot(root string) (*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketRoots).Get([]byte(persistence.NormalizeRoot(root)))
		if key == nil {
			return nil
		}
		data = copyValue(tx.Bucket(bucketSnapshots).Get(key))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load TreeSnapshot by root: %w", err)
	}
	return decode(data)
}

// ListSnapshots returns all snapshots sorted by creation time.
func (b *BoltPersistence) ListSnapshots() ([]*persistence.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	snapshots := make([]*persistence.TreeSnapshot, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			snapshot, err := persistence.UnmarshalTreeSnapshot(v)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal TreeSnapshot, skipping",
					"key", string(k), "error", err)
				return nil
			}
			snapshots = append(snapshots, snapshot)
			return nil
		})
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

// DeleteSnapshot removes a snapshot and its root entry if that entry still points at it.
func (b *BoltPersistence) DeleteSnapshot(key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		snapshots := tx.Bucket(bucketSnapshots)
		data := snapshots.Get([]byte(key))
		if data == nil {
			return nil
		}

		if snapshot, err := persistence.UnmarshalTreeSnapshot(data); err == nil {
			roots := tx.Bucket(bucketRoots)
			rootKey := []byte(persistence.NormalizeRoot(snapshot.Root))
			if string(roots.Get(rootKey)) == key {
				if err := roots.Delete(rootKey); err != nil {
					return err
				}
			}
		}

		return snapshots.Delete([]byte(key))
	})
}

// Close closes the database file. Safe to call more than once.
func (b *BoltPersistence) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}

	b.logger.Sugar().Info("Bolt snapshot store closed")
	return nil
}

// HealthCheck verifies the buckets and schema marker exist.
func (b *BoltPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil || meta.Get(keySchemaVersion) == nil {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		if tx.Bucket(bucketSnapshots) == nil || tx.Bucket(bucketRoots) == nil {
			return fmt.Errorf("snapshot buckets missing")
		}
		return nil
	})
}

// copyValue detaches v from the mmap, which is only valid inside the transaction.
func copyValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func decode(data []byte) (*persistence.TreeSnapshot, error) {
	if data == nil {
		return nil, nil // Not found
	}
	snapshot, err := persistence.UnmarshalTreeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TreeSnapshot: %w", err)
	}
	return snapshot, nil
}
