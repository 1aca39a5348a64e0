package txlog

import (
	"context"
	"testing"

	"github.com/rzbill/txlog/internal/storage"
	"github.com/rzbill/txlog/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

type event struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func ev(name string, n int) event {
	return event{Name: name, N: n}
}

var backends = []Backend{BackendPebble, BackendBolt}

// forEachBackend runs fn once per storage backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, backend Backend)) {
	for _, backend := range backends {
		backend := backend
		t.Run(string(backend), func(t *testing.T) {
			fn(t, backend)
		})
	}
}

func testOptions[T any](t *testing.T, backend Backend) Options[T] {
	return Options[T]{
		DataDir: t.TempDir(),
		Backend: backend,
	}
}

// withFaults routes the options through a fault-injecting driver.
func withFaults[T any](t *testing.T, opts Options[T]) (Options[T], *storagetest.Faults) {
	drv, err := opts.newDriver("faulty")
	require.NoError(t, err)

	faulty := storagetest.NewFaultyDriver(drv)
	opts.driver = faulty

	return opts, faulty.Faults
}

func openSimple(t *testing.T, name string, opts Options[event]) *SimpleLog[event] {
	t.Helper()

	l := NewSimpleLog(name, opts)
	require.NoError(t, l.Open(context.Background()))
	t.Cleanup(func() {
		if l.IsOpen() {
			l.Close()
		}
	})

	return l
}

func openBatched(t *testing.T, name string, opts Options[event]) *BatchedLog[event] {
	t.Helper()

	l := NewBatchedLog(name, opts)
	require.NoError(t, l.Open(context.Background()))
	t.Cleanup(func() {
		if l.IsOpen() {
			l.Close()
		}
	})

	return l
}

func txData[T any](txs []Transaction[T]) []T {
	out := make([]T, len(txs))
	for i, tx := range txs {
		out[i] = tx.Data
	}
	return out
}

func txIDs[T any](txs []Transaction[T]) []uint64 {
	out := make([]uint64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

// rawStore opens the store behind a closed log directly.
func rawStore(t *testing.T, opts Options[event], name string, schema storage.Schema) storage.Store {
	t.Helper()

	drv, err := opts.newDriver(name)
	require.NoError(t, err)

	st, err := drv.Open(name, schema)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}
