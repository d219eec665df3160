package persistence

import (
	"fmt"
	"strings"
)

// TreeSnapshot is everything needed to rebuild an allow-list tree and check it
// against the root it had when it was saved.
type TreeSnapshot struct {
	// Key is the cache key derived from the tree rules and the member set.
	// This serves as the primary key for snapshot storage.
	Key string `json:"key"`

	// Root is the 0x-prefixed merkle root
	Root string `json:"root"`

	// Tree rules, see merkle.Config
	HashFunction   string `json:"hashFunction"`
	LeafOrder      string `json:"leafOrder"`
	OddLayerPolicy string `json:"oddLayerPolicy"`
	SortRule       string `json:"sortRule"`

	// Members are the checksummed member addresses in build order
	Members []string `json:"members"`

	// Name is an optional human label, usually the collection name
	Name string `json:"name,omitempty"`

	// CreatedAt is the Unix timestamp when the snapshot was taken
	CreatedAt int64 `json:"createdAt"`
}

// Validate checks the fields every backend relies on
func (ts *TreeSnapshot) Validate() error {
	if ts == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if ts.Key == "" {
		return fmt.Errorf("snapshot key cannot be empty")
	}
	if !strings.HasPrefix(ts.Root, "0x") || len(ts.Root) != 66 {
		return fmt.Errorf("snapshot root must be a 0x-prefixed 32 byte hex string, got %q", ts.Root)
	}
	if len(ts.Members) == 0 {
		return fmt.Errorf("snapshot %s has no members", ts.Key)
	}
	return nil
}

// Copy returns a deep copy of the snapshot
func (ts *TreeSnapshot) Copy() *TreeSnapshot {
	if ts == nil {
		return nil
	}
	cp := *ts
	cp.Members = append([]string(nil), ts.Members...)
	return &cp
}

// NormalizeRoot lower-cases a root so lookups are case-insensitive
func NormalizeRoot(root string) string {
	return strings.ToLower(root)
}
