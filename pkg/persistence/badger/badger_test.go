package badger

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/nftkit/allowlist-go/pkg/logger"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/nftkit/allowlist-go/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence_Conformance(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.ITreePersistence {
		return newTestBadger(t, t.TempDir())
	})
}

func TestBadgerPersistence_AcrossRestarts(t *testing.T) {
	tmpDir := t.TempDir()

	bp1 := newTestBadger(t, tmpDir)
	snapshot := persistencetest.NewSnapshot("restart", 0x99, 99999)
	require.NoError(t, bp1.SaveSnapshot(snapshot))
	require.NoError(t, bp1.Close())

	bp2 := newTestBadger(t, tmpDir)
	defer func() { _ = bp2.Close() }()

	loaded, err := bp2.LoadSnapshot("restart")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot, loaded)

	byRoot, err := bp2.LoadSnapshotByRoot(snapshot.Root)
	require.NoError(t, err)
	require.NotNil(t, byRoot)
	assert.Equal(t, "restart", byRoot.Key)
}

func TestBadgerPersistence_UnsupportedSchema(t *testing.T) {
	tmpDir := t.TempDir()

	bp := newTestBadger(t, tmpDir)
	err := bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	})
	require.NoError(t, err)
	require.NoError(t, bp.Close())

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	_, err = NewBadgerPersistence(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBadgerPersistence_ListSkipsCorruptEntries(t *testing.T) {
	bp := newTestBadger(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveSnapshot(persistencetest.NewSnapshot("good", 1, 1)))
	err := bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(snapshotKey("corrupt")), []byte("{not json"))
	})
	require.NoError(t, err)

	snapshots, err := bp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "good", snapshots[0].Key)
}
