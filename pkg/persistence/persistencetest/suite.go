// Package persistencetest holds the behavior every ITreePersistence backend must share.
package persistencetest

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) persistence.ITreePersistence

// NewSnapshot builds a valid snapshot with a root derived from seed.
func NewSnapshot(key string, seed int, createdAt int64) *persistence.TreeSnapshot {
	return &persistence.TreeSnapshot{
		Key:            key,
		Root:           fmt.Sprintf("0x%064x", seed),
		HashFunction:   "keccak256",
		LeafOrder:      "input",
		OddLayerPolicy: "promote",
		SortRule:       "sorted-pairs",
		Members: []string{
			"0x42792048c8519e2B0e66B448543a53B88626D0Ea",
			"0x7f4B248427B845B70F7c1c81830463835D56e32f",
		},
		Name:      "suite",
		CreatedAt: createdAt,
	}
}

// Run exercises save, load, list, delete and close semantics against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		snapshot := NewSnapshot("save-and-load", 0xa1, 10)
		require.NoError(t, store.SaveSnapshot(snapshot))

		loaded, err := store.LoadSnapshot(snapshot.Key)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, snapshot, loaded)

		byRoot, err := store.LoadSnapshotByRoot(strings.ToUpper(snapshot.Root[2:]))
		require.NoError(t, err)
		assert.Nil(t, byRoot, "root lookups need the 0x prefix")

		byRoot, err = store.LoadSnapshotByRoot("0x" + strings.ToUpper(snapshot.Root[2:]))
		require.NoError(t, err)
		require.NotNil(t, byRoot)
		assert.Equal(t, snapshot.Key, byRoot.Key)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadSnapshot("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = store.LoadSnapshotByRoot(fmt.Sprintf("0x%064x", 0xdead))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		err := store.SaveSnapshot(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil TreeSnapshot")

		bad := NewSnapshot("bad", 1, 1)
		bad.Members = nil
		require.Error(t, store.SaveSnapshot(bad))
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		first := NewSnapshot("overwrite", 0xb1, 1)
		require.NoError(t, store.SaveSnapshot(first))

		second := NewSnapshot("overwrite", 0xb1, 2)
		second.Name = "renamed"
		require.NoError(t, store.SaveSnapshot(second))

		loaded, err := store.LoadSnapshot("overwrite")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "renamed", loaded.Name)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		snapshot := NewSnapshot("delete-me", 0xc1, 1)
		require.NoError(t, store.SaveSnapshot(snapshot))
		require.NoError(t, store.DeleteSnapshot(snapshot.Key))

		loaded, err := store.LoadSnapshot(snapshot.Key)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		byRoot, err := store.LoadSnapshotByRoot(snapshot.Root)
		require.NoError(t, err)
		assert.Nil(t, byRoot)

		require.NoError(t, store.DeleteSnapshot(snapshot.Key))
	})

	t.Run("DeleteKeepsNewerRootIndex", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		older := NewSnapshot("older", 0xd1, 1)
		newer := NewSnapshot("newer", 0xd1, 2)
		require.NoError(t, store.SaveSnapshot(older))
		require.NoError(t, store.SaveSnapshot(newer))
		require.NoError(t, store.DeleteSnapshot(older.Key))

		byRoot, err := store.LoadSnapshotByRoot(newer.Root)
		require.NoError(t, err)
		require.NotNil(t, byRoot)
		assert.Equal(t, "newer", byRoot.Key)
	})

	t.Run("ListSortedByCreation", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		empty, err := store.ListSnapshots()
		require.NoError(t, err)
		assert.Empty(t, empty)

		for i, createdAt := range []int64{300, 100, 200} {
			require.NoError(t, store.SaveSnapshot(NewSnapshot(fmt.Sprintf("list-%d", i), 0xe0+i, createdAt)))
		}

		snapshots, err := store.ListSnapshots()
		require.NoError(t, err)
		require.Len(t, snapshots, 3)
		assert.Equal(t, []int64{100, 200, 300}, []int64{
			snapshots[0].CreatedAt, snapshots[1].CreatedAt, snapshots[2].CreatedAt,
		})
	})

	t.Run("Close", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		err := store.HealthCheck()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")

		err = store.SaveSnapshot(NewSnapshot("closed", 1, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")

		_, err = store.LoadSnapshot("closed")
		require.Error(t, err)
		_, err = store.ListSnapshots()
		require.Error(t, err)
	})

	t.Run("ThreadSafety", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		var wg sync.WaitGroup
		numGoroutines := 8
		numOperations := 20

		for i := 0; i < numGoroutines; i++ {
			wg.Add(2)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < numOperations; j++ {
					seed := id*1000 + j
					assert.NoError(t, store.SaveSnapshot(NewSnapshot(fmt.Sprintf("ts-%d", seed), seed, int64(seed))))
				}
			}(i)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < numOperations; j++ {
					_, err := store.LoadSnapshot(fmt.Sprintf("ts-%d", id*1000+j))
					assert.NoError(t, err)
					_, err = store.ListSnapshots()
					assert.NoError(t, err)
				}
			}(i)
		}
		wg.Wait()

		snapshots, err := store.ListSnapshots()
		require.NoError(t, err)
		assert.Len(t, snapshots, numGoroutines*numOperations)
	})
}
