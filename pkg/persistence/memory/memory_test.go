package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshot(key string, root byte, createdAt int64) *persistence.TreeSnapshot {
	return &persistence.TreeSnapshot{
		Key:            key,
		Root:           fmt.Sprintf("0x%064x", root),
		HashFunction:   "keccak256",
		LeafOrder:      "input",
		OddLayerPolicy: "promote",
		SortRule:       "sorted-pairs",
		Members:        []string{"0x42792048c8519e2B0e66B448543a53B88626D0Ea"},
		CreatedAt:      createdAt,
	}
}

func TestMemoryPersistence_SaveAndLoadSnapshot(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	snapshot := newTestSnapshot("key-1", 0xab, 100)
	require.NoError(t, mp.SaveSnapshot(snapshot))

	loaded, err := mp.LoadSnapshot("key-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot, loaded)

	byRoot, err := mp.LoadSnapshotByRoot(snapshot.Root)
	require.NoError(t, err)
	assert.Equal(t, snapshot, byRoot)
}

func TestMemoryPersistence_LoadSnapshot_NotFound(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	loaded, err := mp.LoadSnapshot("missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loaded, err = mp.LoadSnapshotByRoot(fmt.Sprintf("0x%064x", 1))
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryPersistence_SaveSnapshot_Invalid(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	err := mp.SaveSnapshot(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil TreeSnapshot")

	bad := newTestSnapshot("key", 1, 1)
	bad.Root = "0x12"
	require.Error(t, mp.SaveSnapshot(bad))
}

func TestMemoryPersistence_DeepCopy(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	snapshot := newTestSnapshot("key-1", 1, 1)
	require.NoError(t, mp.SaveSnapshot(snapshot))

	snapshot.Members[0] = "mutated-after-save"
	loaded, err := mp.LoadSnapshot("key-1")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated-after-save", loaded.Members[0])

	loaded.Members[0] = "mutated-after-load"
	again, err := mp.LoadSnapshot("key-1")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated-after-load", again.Members[0])
}

func TestMemoryPersistence_RootLookupIsCaseInsensitive(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	snapshot := newTestSnapshot("key-1", 0xcd, 1)
	require.NoError(t, mp.SaveSnapshot(snapshot))

	loaded, err := mp.LoadSnapshotByRoot(fmt.Sprintf("0x%064X", 0xcd))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "key-1", loaded.Key)
}

func TestMemoryPersistence_DeleteSnapshot(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	snapshot := newTestSnapshot("key-1", 7, 1)
	require.NoError(t, mp.SaveSnapshot(snapshot))
	require.NoError(t, mp.DeleteSnapshot("key-1"))

	loaded, err := mp.LoadSnapshot("key-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	byRoot, err := mp.LoadSnapshotByRoot(snapshot.Root)
	require.NoError(t, err)
	assert.Nil(t, byRoot)

	// Idempotent
	require.NoError(t, mp.DeleteSnapshot("key-1"))
}

func TestMemoryPersistence_ListSnapshots(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	empty, err := mp.ListSnapshots()
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i, createdAt := range []int64{300, 100, 200} {
		require.NoError(t, mp.SaveSnapshot(newTestSnapshot(fmt.Sprintf("key-%d", i), byte(i+1), createdAt)))
	}

	snapshots, err := mp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, int64(100), snapshots[0].CreatedAt)
	assert.Equal(t, int64(200), snapshots[1].CreatedAt)
	assert.Equal(t, int64(300), snapshots[2].CreatedAt)
}

func TestMemoryPersistence_Closed(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	require.NoError(t, mp.HealthCheck())
	require.NoError(t, mp.Close())
	require.NoError(t, mp.Close())

	require.Error(t, mp.HealthCheck())
	require.Error(t, mp.SaveSnapshot(newTestSnapshot("key", 1, 1)))
	_, err := mp.LoadSnapshot("key")
	require.Error(t, err)
	_, err = mp.LoadSnapshotByRoot("0x00")
	require.Error(t, err)
	_, err = mp.ListSnapshots()
	require.Error(t, err)
	require.Error(t, mp.DeleteSnapshot("key"))
}

func TestMemoryPersistence_ConcurrentAccess(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, mp.SaveSnapshot(newTestSnapshot(key, byte(i), int64(i))))
			_, err := mp.LoadSnapshot(key)
			assert.NoError(t, err)
			_, err = mp.ListSnapshots()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snapshots, err := mp.ListSnapshots()
	require.NoError(t, err)
	assert.Len(t, snapshots, 20)
}
