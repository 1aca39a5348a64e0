package pebblestore

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/require"
)

type testMetrics struct {
	read         int
	batchCommits int
	batchOps     int
	batchBytes   int
}

func (m *testMetrics) ObserveRead(d time.Duration, bytes int) { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	m.batchCommits++
	m.batchOps += numOps
	m.batchBytes += bytes
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       t.TempDir(),
		Fsync:         FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestSetGet(t *testing.T) {
	db, metrics := newTestDB(t)

	require.NoError(t, db.Set([]byte("k1"), []byte("v1")))

	got, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
	require.Positive(t, metrics.read)

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, pebble.ErrNotFound)
}

func TestBatchCommitMetrics(t *testing.T) {
	db, metrics := newTestDB(t)

	b := db.NewIndexedBatch()
	require.NoError(t, b.Set([]byte("a"), []byte("1"), nil))
	require.NoError(t, b.Set([]byte("b"), []byte("2"), nil))

	// Indexed batches observe their own writes.
	val, closer, err := b.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), val)
	closer.Close()

	require.NoError(t, db.CommitBatch(context.Background(), b))
	b.Close()

	require.Equal(t, 1, metrics.batchCommits)
	require.Equal(t, 2, metrics.batchOps)
	require.Positive(t, metrics.batchBytes)

	require.EqualError(t, db.CommitBatch(context.Background(), nil), "pebble: nil batch")
}

func TestSnapshotConsistency(t *testing.T) {
	db, _ := newTestDB(t)

	key := []byte("k2")
	require.NoError(t, db.Set(key, []byte("old")))

	snap := db.NewSnapshot()
	defer snap.Close()

	require.NoError(t, db.Set(key, []byte("new")))

	valOld, closer, err := snap.Get(key)
	require.NoError(t, err)
	require.Equal(t, "old", string(valOld))
	closer.Close()

	valNew, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, "new", string(valNew))
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	require.EqualError(t, err, "pebble: Options.DataDir is required")

	var db *DB
	require.NoError(t, db.Close())
}

func TestFsyncModes(t *testing.T) {
	for _, mode := range []FsyncMode{FsyncModeUnspecified, FsyncModeAlways, FsyncModeInterval, FsyncModeNever} {
		t.Run(mode.String(), func(t *testing.T) {
			db, err := Open(Options{DataDir: t.TempDir(), Fsync: mode})
			require.NoError(t, err)
			require.NoError(t, db.Set([]byte("k"), []byte("v")))
			require.NoError(t, db.Close())
		})
	}
}

func TestParseFsyncMode(t *testing.T) {
	mode, err := ParseFsyncMode("")
	require.NoError(t, err)
	require.Equal(t, FsyncModeAlways, mode)

	mode, err = ParseFsyncMode("interval")
	require.NoError(t, err)
	require.Equal(t, FsyncModeInterval, mode)

	mode, err = ParseFsyncMode("never")
	require.NoError(t, err)
	require.Equal(t, "never", mode.String())

	_, err = ParseFsyncMode("sometimes")
	require.EqualError(t, err, "invalid fsync mode 'sometimes'; use always|interval|never")
}
