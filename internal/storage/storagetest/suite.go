package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/rzbill/txlog/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

// NewDriver returns a driver backed by a fresh, empty location.
type NewDriver func(t *testing.T) storage.Driver

// Schema returns the two-partition schema used by the suite.
func Schema() storage.Schema {
	return storage.Schema{
		Version: storage.SchemaVersion,
		Kind:    "conformance",
		Partitions: []storage.PartitionSpec{
			{Name: "left", Indexes: []string{"time"}},
			{Name: "right"},
		},
	}
}

// Run executes the conformance suite against the drivers produced by newDriver.
func Run(t *testing.T, newDriver NewDriver) {
	tests := []struct {
		name string
		fn   func(t *testing.T, drv storage.Driver)
	}{
		{"SequentialIDs", testSequentialIDs},
		{"Rollback", testRollback},
		{"ReadYourWrites", testReadYourWrites},
		{"GetAndCount", testGetAndCount},
		{"CursorRanges", testCursorRanges},
		{"IndexCursor", testIndexCursor},
		{"UnknownPartition", testUnknownPartition},
		{"Reopen", testReopen},
		{"SchemaMismatch", testSchemaMismatch},
		{"Closed", testClosed},
		{"Remove", testRemove},
		{"Exists", testExists},
		{"Context", testContext},
		{"FaultyDriver", testFaultyDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newDriver(t))
		})
	}
}

func open(t *testing.T, drv storage.Driver, name string) storage.Store {
	t.Helper()

	st, err := drv.Open(name, Schema())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func value(i int) []byte {
	return []byte(fmt.Sprintf("value-%d", i))
}

func fill(t *testing.T, st storage.Store, partition string, n int) []uint64 {
	t.Helper()

	var ids []uint64
	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		for i := 1; i <= n; i++ {
			id, err := tx.Add(partition, storage.Entry{Value: value(i)})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	require.NoError(t, err)

	return ids
}

func collect(t *testing.T, cur storage.Cursor) ([]uint64, [][]byte) {
	t.Helper()
	defer cur.Close()

	var keys []uint64
	var values [][]byte
	for cur.Next() {
		keys = append(keys, cur.Key())
		values = append(values, cur.Value())
	}
	require.NoError(t, cur.Err())

	return keys, values
}

func count(t *testing.T, st storage.Store, partition string) uint64 {
	t.Helper()

	var n uint64
	err := st.View(context.Background(), func(tx storage.ReadTx) error {
		var err error
		n, err = tx.Count(partition)
		return err
	})
	require.NoError(t, err)

	return n
}

func testSequentialIDs(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "seq")

	require.Equal(t, []uint64{1, 2, 3}, fill(t, st, "left", 3))
	require.Equal(t, []uint64{4, 5}, fill(t, st, "left", 2))
	require.Equal(t, []uint64{1}, fill(t, st, "right", 1))
}

func testRollback(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "rollback")

	fill(t, st, "left", 2)

	oops := xerrors.New("oops")
	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		for i := 0; i < 3; i++ {
			_, err := tx.Add("left", storage.Entry{Value: value(i)})
			require.NoError(t, err)
		}
		_, err := tx.Add("right", storage.Entry{Value: value(9)})
		require.NoError(t, err)

		return oops
	})
	require.ErrorIs(t, err, oops)

	require.Equal(t, uint64(2), count(t, st, "left"))
	require.Equal(t, uint64(0), count(t, st, "right"))

	// Id counters are part of the rolled back transaction.
	require.Equal(t, []uint64{3}, fill(t, st, "left", 1))
	require.Equal(t, []uint64{1}, fill(t, st, "right", 1))
}

func testReadYourWrites(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "ryw")

	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		id, err := tx.Add("left", storage.Entry{Value: value(1)})
		require.NoError(t, err)

		val, found, err := tx.Get("left", id)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, value(1), val)

		n, err := tx.Count("left")
		require.NoError(t, err)
		require.Equal(t, uint64(1), n)

		return nil
	})
	require.NoError(t, err)
}

func testGetAndCount(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "get")

	require.Equal(t, uint64(0), count(t, st, "left"))
	fill(t, st, "left", 4)
	require.Equal(t, uint64(4), count(t, st, "left"))

	err := st.View(context.Background(), func(tx storage.ReadTx) error {
		val, found, err := tx.Get("left", 3)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, value(3), val)

		_, found, err = tx.Get("left", 5)
		require.NoError(t, err)
		require.False(t, found)

		_, found, err = tx.Get("right", 1)
		require.NoError(t, err)
		require.False(t, found)

		return nil
	})
	require.NoError(t, err)
}

func testCursorRanges(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "ranges")

	fill(t, st, "left", 6)
	fill(t, st, "right", 2)

	err := st.View(context.Background(), func(tx storage.ReadTx) error {
		keys, values := collect(t, tx.Cursor("left", storage.Range{From: 2, To: 4}))
		require.Equal(t, []uint64{2, 3, 4}, keys)
		require.Equal(t, [][]byte{value(2), value(3), value(4)}, values)

		keys, _ = collect(t, tx.Cursor("left", storage.Range{From: 5, To: storage.Unbounded}))
		require.Equal(t, []uint64{5, 6}, keys)

		keys, _ = collect(t, tx.Cursor("left", storage.Range{From: 1, To: storage.Unbounded}))
		require.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, keys)

		keys, _ = collect(t, tx.Cursor("left", storage.Range{From: 4, To: 4}))
		require.Equal(t, []uint64{4}, keys)

		keys, _ = collect(t, tx.Cursor("left", storage.Range{From: 5, To: 3}))
		require.Empty(t, keys)

		keys, _ = collect(t, tx.Cursor("left", storage.Range{From: 7, To: storage.Unbounded}))
		require.Empty(t, keys)

		keys, _ = collect(t, tx.Cursor("right", storage.Range{From: 1, To: 100}))
		require.Equal(t, []uint64{1, 2}, keys)

		return nil
	})
	require.NoError(t, err)
}

func testIndexCursor(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "index")

	stamps := []uint64{30, 10, 20, 10}
	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		for i, ts := range stamps {
			_, err := tx.Add("left", storage.Entry{
				Value: value(i + 1),
				Index: map[string][]byte{"time": storage.EncodeID(ts)},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = st.View(context.Background(), func(tx storage.ReadTx) error {
		keys, values := collect(t, tx.IndexCursor("left", "time", nil, nil))
		require.Equal(t, []uint64{2, 4, 3, 1}, keys)
		require.Equal(t, value(2), values[0])

		keys, _ = collect(t, tx.IndexCursor("left", "time", storage.EncodeID(15), storage.EncodeID(20)))
		require.Equal(t, []uint64{3}, keys)

		keys, _ = collect(t, tx.IndexCursor("left", "time", storage.EncodeID(20), nil))
		require.Equal(t, []uint64{3, 1}, keys)

		keys, _ = collect(t, tx.IndexCursor("left", "time", nil, storage.EncodeID(10)))
		require.Equal(t, []uint64{2, 4}, keys)

		cur := tx.IndexCursor("left", "size", nil, nil)
		require.False(t, cur.Next())
		require.ErrorIs(t, cur.Err(), storage.ErrUnknownIndex)
		cur.Close()

		return nil
	})
	require.NoError(t, err)

	err = st.Update(context.Background(), func(tx storage.WriteTx) error {
		_, err := tx.Add("right", storage.Entry{Value: value(1), Index: map[string][]byte{"time": {1}}})
		return err
	})
	require.ErrorIs(t, err, storage.ErrUnknownIndex)
}

func testUnknownPartition(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "unknown")

	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		_, err := tx.Add("middle", storage.Entry{Value: value(1)})
		return err
	})
	require.ErrorIs(t, err, storage.ErrUnknownPartition)

	err = st.View(context.Background(), func(tx storage.ReadTx) error {
		_, err := tx.Count("middle")
		require.ErrorIs(t, err, storage.ErrUnknownPartition)

		_, _, err = tx.Get("middle", 1)
		require.ErrorIs(t, err, storage.ErrUnknownPartition)

		cur := tx.Cursor("middle", storage.Range{From: 1, To: storage.Unbounded})
		require.False(t, cur.Next())
		require.ErrorIs(t, cur.Err(), storage.ErrUnknownPartition)

		return cur.Close()
	})
	require.NoError(t, err)
}

func testReopen(t *testing.T, drv storage.Driver) {
	st, err := drv.Open("reopen", Schema())
	require.NoError(t, err)

	fill(t, st, "left", 3)
	require.NoError(t, st.Close())

	st = open(t, drv, "reopen")
	require.Equal(t, uint64(3), count(t, st, "left"))
	require.Equal(t, []uint64{4}, fill(t, st, "left", 1))
}

func testSchemaMismatch(t *testing.T, drv storage.Driver) {
	st, err := drv.Open("mismatch", Schema())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	other := Schema()
	other.Kind = "other"
	_, err = drv.Open("mismatch", other)
	require.ErrorIs(t, err, storage.ErrSchemaMismatch)

	invalid := Schema()
	invalid.Version = 7
	_, err = drv.Open("invalid", invalid)
	require.Error(t, err)

	// The original schema still opens.
	open(t, drv, "mismatch")
}

func testClosed(t *testing.T, drv storage.Driver) {
	st, err := drv.Open("closed", Schema())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	err = st.View(context.Background(), func(storage.ReadTx) error { return nil })
	require.ErrorIs(t, err, storage.ErrStoreClosed)

	err = st.Update(context.Background(), func(storage.WriteTx) error { return nil })
	require.ErrorIs(t, err, storage.ErrStoreClosed)
}

func testRemove(t *testing.T, drv storage.Driver) {
	st, err := drv.Open("removed", Schema())
	require.NoError(t, err)
	fill(t, st, "left", 2)
	require.NoError(t, st.Close())

	require.NoError(t, drv.Remove("removed"))
	require.NoError(t, drv.Remove("never-created"))

	st = open(t, drv, "removed")
	require.Equal(t, uint64(0), count(t, st, "left"))
	require.Equal(t, []uint64{1}, fill(t, st, "left", 1))
}

func testExists(t *testing.T, drv storage.Driver) {
	found, err := drv.Exists("exists")
	require.NoError(t, err)
	require.False(t, found)

	st, err := drv.Open("exists", Schema())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	found, err = drv.Exists("exists")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, drv.Remove("exists"))

	found, err = drv.Exists("exists")
	require.NoError(t, err)
	require.False(t, found)
}

func testContext(t *testing.T, drv storage.Driver) {
	st := open(t, drv, "ctx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.View(ctx, func(storage.ReadTx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)

	err = st.Update(ctx, func(storage.WriteTx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func testFaultyDriver(t *testing.T, drv storage.Driver) {
	faulty := NewFaultyDriver(drv)
	st := open(t, faulty, "faulty")

	fill(t, st, "left", 1)

	faulty.Faults.FailAddAt(2)
	err := st.Update(context.Background(), func(tx storage.WriteTx) error {
		for i := 0; i < 3; i++ {
			if _, err := tx.Add("left", storage.Entry{Value: value(i)}); err != nil {
				return err
			}
		}
		return nil
	})
	require.ErrorIs(t, err, ErrInjected)
	require.Equal(t, uint64(1), count(t, st, "left"))

	faulty.Faults.Reset()
	faulty.Faults.FailCommit(true)
	err = st.Update(context.Background(), func(tx storage.WriteTx) error {
		_, err := tx.Add("left", storage.Entry{Value: value(2)})
		return err
	})
	require.ErrorIs(t, err, ErrInjected)
	require.Equal(t, uint64(1), count(t, st, "left"))

	faulty.Faults.Reset()
	require.Equal(t, []uint64{2}, fill(t, st, "left", 1))

	faulty.Faults.FailOpen(true)
	_, err = faulty.Open("faulty-other", Schema())
	require.ErrorIs(t, err, ErrInjected)

	faulty.Faults.FailRemove(true)
	require.ErrorIs(t, faulty.Remove("faulty-other"), ErrInjected)
}
