package storagetest

import (
	"context"
	"sync"

	"github.com/rzbill/txlog/internal/storage"
	"golang.org/x/xerrors"
)

// ErrInjected is the error produced by injected faults.
var ErrInjected = xerrors.New("injected fault")

// Faults configures the failures of a FaultyDriver. The zero value injects
// nothing.
type Faults struct {
	mu         sync.Mutex
	failAddAt  int
	failCommit bool
	failOpen   bool
	failRemove bool
	failClose  bool
}

// FailAddAt makes the n-th Add (1-based) of every write transaction fail. Zero
// disables it.
func (f *Faults) FailAddAt(n int) {
	f.mu.Lock()
	f.failAddAt = n
	f.mu.Unlock()
}

// FailCommit makes write transactions fail after their closure succeeded, as
// if the durable commit was refused.
func (f *Faults) FailCommit(enabled bool) {
	f.mu.Lock()
	f.failCommit = enabled
	f.mu.Unlock()
}

// FailOpen makes Driver.Open fail.
func (f *Faults) FailOpen(enabled bool) {
	f.mu.Lock()
	f.failOpen = enabled
	f.mu.Unlock()
}

// FailRemove makes Driver.Remove fail.
func (f *Faults) FailRemove(enabled bool) {
	f.mu.Lock()
	f.failRemove = enabled
	f.mu.Unlock()
}

// FailClose makes Store.Close report an error once the inner store is closed.
func (f *Faults) FailClose(enabled bool) {
	f.mu.Lock()
	f.failClose = enabled
	f.mu.Unlock()
}

// Reset disables every fault.
func (f *Faults) Reset() {
	f.mu.Lock()
	f.failAddAt = 0
	f.failCommit = false
	f.failOpen = false
	f.failRemove = false
	f.failClose = false
	f.mu.Unlock()
}

func (f *Faults) snapshot() (addAt int, commit, open, remove bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failAddAt, f.failCommit, f.failOpen, f.failRemove
}

// FaultyDriver wraps a driver and injects the configured faults.
//
// - implements storage.Driver
type FaultyDriver struct {
	Inner  storage.Driver
	Faults *Faults
}

// NewFaultyDriver wraps inner with an empty fault set.
func NewFaultyDriver(inner storage.Driver) FaultyDriver {
	return FaultyDriver{Inner: inner, Faults: &Faults{}}
}

// Open implements storage.Driver.
func (d FaultyDriver) Open(name string, schema storage.Schema) (storage.Store, error) {
	if _, _, open, _ := d.Faults.snapshot(); open {
		return nil, ErrInjected
	}

	st, err := d.Inner.Open(name, schema)
	if err != nil {
		return nil, err
	}
	return faultyStore{Store: st, faults: d.Faults}, nil
}

// Remove implements storage.Driver.
func (d FaultyDriver) Remove(name string) error {
	if _, _, _, remove := d.Faults.snapshot(); remove {
		return ErrInjected
	}
	return d.Inner.Remove(name)
}

// Exists implements storage.Driver.
func (d FaultyDriver) Exists(name string) (bool, error) {
	return d.Inner.Exists(name)
}

type faultyStore struct {
	storage.Store
	faults *Faults
}

func (s faultyStore) Update(ctx context.Context, fn func(storage.WriteTx) error) error {
	addAt, commit, _, _ := s.faults.snapshot()

	return s.Store.Update(ctx, func(tx storage.WriteTx) error {
		err := fn(&faultyTx{WriteTx: tx, failAt: addAt})
		if err != nil {
			return err
		}
		if commit {
			return xerrors.Errorf("commit: %w", ErrInjected)
		}
		return nil
	})
}

func (s faultyStore) Close() error {
	err := s.Store.Close()
	if err != nil {
		return err
	}

	s.faults.mu.Lock()
	fail := s.faults.failClose
	s.faults.mu.Unlock()

	if fail {
		return xerrors.Errorf("close: %w", ErrInjected)
	}
	return nil
}

type faultyTx struct {
	storage.WriteTx
	failAt int
	adds   int
}

func (tx *faultyTx) Add(partition string, e storage.Entry) (uint64, error) {
	tx.adds++
	if tx.failAt > 0 && tx.adds >= tx.failAt {
		return 0, xerrors.Errorf("add #%d: %w", tx.adds, ErrInjected)
	}
	return tx.WriteTx.Add(partition, e)
}
