package persistence

// ITreePersistence stores allow-list tree snapshots so a tree built once can be
// rebuilt and served without re-reading the member file.
// All implementations must be thread-safe.
type ITreePersistence interface {
	// SaveSnapshot persists a snapshot under its Key and indexes it by Root.
	// Overwrites any existing snapshot with the same key.
	SaveSnapshot(snapshot *TreeSnapshot) error

	// LoadSnapshot retrieves a snapshot by cache key.
	// Returns nil if the snapshot doesn't exist, error only on storage failure.
	LoadSnapshot(key string) (*TreeSnapshot, error)

	// LoadSnapshotByRoot retrieves the most recently saved snapshot with the given root.
	// Returns nil if no snapshot has that root, error only on storage failure.
	LoadSnapshotByRoot(root string) (*TreeSnapshot, error)

	// ListSnapshots returns all snapshots sorted by CreatedAt (ascending).
	// Returns empty slice if none exist.
	ListSnapshots() ([]*TreeSnapshot, error)

	// DeleteSnapshot removes a snapshot and its root index entry.
	// Idempotent - returns nil if the snapshot doesn't exist.
	DeleteSnapshot(key string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
