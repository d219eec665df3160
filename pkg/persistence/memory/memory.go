package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nftkit/allowlist-go/pkg/persistence"
	"go.uber.org/zap"
)

// MemoryPersistence is an in-memory implementation of ITreePersistence.
//
// All data is stored in memory and will be lost when the process exits, which is
// what one-shot commands want. Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Snapshot storage: key -> TreeSnapshot
	snapshots map[string]*persistence.TreeSnapshot

	// Root index: normalized root -> key
	roots map[string]string

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	if logger != nil {
		logger.Sugar().Debugw("Using in-memory persistence, snapshots are lost on exit")
	}

	return &MemoryPersistence{
		snapshots: make(map[string]*persistence.TreeSnapshot),
		roots:     make(map[string]string),
	}
}

var _ persistence.ITreePersistence = (*MemoryPersistence)(nil)

// SaveSnapshot persists a tree snapshot.
func (m *MemoryPersistence) SaveSnapshot(snapshot *persistence.TreeSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil TreeSnapshot")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid TreeSnapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.snapshots[snapshot.Key] = snapshot.Copy()
	m.roots[persistence.NormalizeRoot(snapshot.Root)] = snapshot.Key

	return nil
}

// LoadSnapshot retrieves a snapshot by key.
func (m *MemoryPersistence) LoadSnapshot(key string) (*persistence.TreeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	snapshot, exists := m.snapshots[key]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return snapshot.Copy(), nil
}

// LoadSnapshotByRoot retrieves the latest snapshot saved with root.
func (m *MemoryPersistence) LoadSnapshotByRoot(root string) (*persistence.TreeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	key, exists := m.roots[persistence.NormalizeRoot(root)]
	if !exists {
		return nil, nil
	}

	return m.snapshots[key].Copy(), nil
}

// ListSnapshots returns all snapshots sorted by creation time.
func (m *MemoryPersistence) ListSnapshots() ([]*persistence.TreeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	snapshots := make([]*persistence.TreeSnapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		snapshots = append(snapshots, s.Copy())
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt == snapshots[j].CreatedAt {
			return snapshots[i].Key < snapshots[j].Key
		}
		return snapshots[i].CreatedAt < snapshots[j].CreatedAt
	})

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot.
func (m *MemoryPersistence) DeleteSnapshot(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	snapshot, exists := m.snapshots[key]
	if !exists {
		return nil
	}

	root := persistence.NormalizeRoot(snapshot.Root)
	if m.roots[root] == key {
		delete(m.roots, root)
	}
	delete(m.snapshots, key)

	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
