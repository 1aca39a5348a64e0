package pebblestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rzbill/txlog/internal/storage"
	"github.com/rzbill/txlog/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestDriver_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Driver {
		return Driver{DataDir: t.TempDir(), Fsync: FsyncModeAlways}
	})
}

func TestDriver_ConformanceNoSync(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Driver {
		return Driver{DataDir: t.TempDir(), Fsync: FsyncModeNever}
	})
}

func TestDriver_DirectoryLayout(t *testing.T) {
	dir := t.TempDir()
	drv := Driver{DataDir: dir}

	st, err := drv.Open("orders", storagetest.Schema())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	info, err := os.Stat(filepath.Join(dir, "orders"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	require.NoError(t, drv.Remove("orders"))
	_, err = os.Stat(filepath.Join(dir, "orders"))
	require.True(t, os.IsNotExist(err))
}

func TestDriver_InvalidSchema(t *testing.T) {
	drv := Driver{DataDir: t.TempDir()}

	_, err := drv.Open("bad", storage.Schema{Version: storage.SchemaVersion})
	require.EqualError(t, err, "invalid schema: schema has no partition")
}

func TestDriver_Metrics(t *testing.T) {
	metrics := &testMetrics{}
	drv := Driver{DataDir: t.TempDir(), Fsync: FsyncModeAlways, Metrics: metrics}

	st, err := drv.Open("metrics", storagetest.Schema())
	require.NoError(t, err)
	defer st.Close()

	// Persisting the schema is the first committed batch.
	require.Equal(t, 1, metrics.batchCommits)
}

func TestKeys(t *testing.T) {
	require.Equal(t, "m/s/main", string(keySeq("main")))
	require.Equal(t, "m/n/main", string(keyCount("main")))
	require.Equal(t, append([]byte("p/main/e/"), 0, 0, 0, 0, 0, 0, 0, 7), keyEntry("main", 7))
	require.Equal(t, "p/main/x/time/", string(keyIndexPrefix("main", "time")))
	require.Equal(t, append([]byte("p/main/x/time/ab"), 0, 0, 0, 0, 0, 0, 0, 1), keyIndex("main", "time", []byte("ab"), 1))

	require.Equal(t, []byte("p/b"), prefixEnd([]byte("p/a")))
	require.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	require.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}
