package pebblestore

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rzbill/txlog/internal/storage"
	"golang.org/x/xerrors"
)

// Driver opens one Pebble database per name under DataDir.
//
// - implements storage.Driver
type Driver struct {
	DataDir       string
	Fsync         FsyncMode
	FsyncInterval time.Duration
	Metrics       MetricsHook
}

// Open implements storage.Driver. It creates the database on first use and
// persists the schema, or verifies it against the persisted one.
func (d Driver) Open(name string, schema storage.Schema) (storage.Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid schema: %w", err)
	}

	db, err := Open(Options{
		DataDir:       d.path(name),
		Fsync:         d.Fsync,
		FsyncInterval: d.FsyncInterval,
		Metrics:       d.Metrics,
	})
	if err != nil {
		return nil, err
	}

	persisted, err := db.Get(schemaKey)
	switch {
	case xerrors.Is(err, pebble.ErrNotFound):
		data, err := schema.Marshal()
		if err == nil {
			err = db.Set(schemaKey, data)
		}
		if err != nil {
			db.Close()
			return nil, xerrors.Errorf("failed to write schema: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, xerrors.Errorf("failed to read schema: %w", err)
	default:
		err = storage.CheckPersisted(persisted, schema)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &store{db: db, schema: schema}, nil
}

// Remove implements storage.Driver. It deletes the database directory.
func (d Driver) Remove(name string) error {
	err := os.RemoveAll(d.path(name))
	if err != nil {
		return xerrors.Errorf("failed to remove '%s': %w", name, err)
	}
	return nil
}

// Exists implements storage.Driver.
func (d Driver) Exists(name string) (bool, error) {
	info, err := os.Stat(d.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Errorf("failed to stat '%s': %w", name, err)
	}
	return info.IsDir(), nil
}

func (d Driver) path(name string) string {
	return filepath.Join(d.DataDir, name)
}

// store is an opened Pebble namespace.
//
// - implements storage.Store
type store struct {
	// closeMu protects closed: transactions hold it for reading, Close for
	// writing.
	closeMu sync.RWMutex
	closed  bool
	// writeMu serializes write transactions.
	writeMu sync.Mutex

	db     *DB
	schema storage.Schema
}

// View implements storage.Store. It runs fn against a snapshot.
func (s *store) View(ctx context.Context, fn func(storage.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	snap := s.db.NewSnapshot()
	defer snap.Close()

	return fn(readTx{r: snap, schema: s.schema})
}

// Update implements storage.Store. It runs fn against an indexed batch which
// is committed only if fn succeeds.
func (s *store) Update(ctx context.Context, fn func(storage.WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	b := s.db.NewIndexedBatch()
	defer b.Close()

	tx := &writeTx{readTx: readTx{r: b, schema: s.schema}, batch: b}

	err := fn(tx)
	if err != nil {
		return err
	}

	err = s.db.CommitBatch(ctx, b)
	if err != nil {
		return xerrors.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// Close implements storage.Store.
func (s *store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// reader is the read surface shared by snapshots and indexed batches.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// readTx implements storage.ReadTx.
type readTx struct {
	r      reader
	schema storage.Schema
}

func (tx readTx) partition(name string) (storage.PartitionSpec, error) {
	spec, ok := tx.schema.Partition(name)
	if !ok {
		return spec, xerrors.Errorf("partition '%s': %w", name, storage.ErrUnknownPartition)
	}
	return spec, nil
}

func (tx readTx) get(key []byte) ([]byte, bool, error) {
	val, closer, err := tx.r.Get(key)
	if xerrors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), true, nil
}

func (tx readTx) getUint64(key []byte) (uint64, error) {
	val, found, err := tx.get(key)
	if err != nil || !found {
		return 0, err
	}
	if len(val) < 8 {
		return 0, xerrors.Errorf("malformed counter at '%s'", key)
	}
	return binary.BigEndian.Uint64(val), nil
}

// Get implements storage.ReadTx.
func (tx readTx) Get(partition string, id uint64) ([]byte, bool, error) {
	if _, err := tx.partition(partition); err != nil {
		return nil, false, err
	}
	return tx.get(keyEntry(partition, id))
}

// Count implements storage.ReadTx.
func (tx readTx) Count(partition string) (uint64, error) {
	if _, err := tx.partition(partition); err != nil {
		return 0, err
	}
	return tx.getUint64(keyCount(partition))
}

// Cursor implements storage.ReadTx.
func (tx readTx) Cursor(partition string, r storage.Range) storage.Cursor {
	if _, err := tx.partition(partition); err != nil {
		return storage.ErroredCursor(err)
	}
	if r.Empty() {
		return storage.EmptyCursor()
	}

	// Upper bound is exclusive: the key right after the last entry.
	opts := &pebble.IterOptions{
		LowerBound: keyEntry(partition, r.From),
		UpperBound: append(keyEntry(partition, r.To), 0x00),
	}
	return tx.newCursor(opts, nil)
}

// IndexCursor implements storage.ReadTx.
func (tx readTx) IndexCursor(partition, index string, from, to []byte) storage.Cursor {
	spec, err := tx.partition(partition)
	if err != nil {
		return storage.ErroredCursor(err)
	}
	if !spec.HasIndex(index) {
		return storage.ErroredCursor(xerrors.Errorf("index '%s': %w", index, storage.ErrUnknownIndex))
	}

	prefix := keyIndexPrefix(partition, index)
	opts := &pebble.IterOptions{
		LowerBound: append(append([]byte(nil), prefix...), from...),
		UpperBound: prefixEnd(prefix),
	}
	if to != nil {
		opts.UpperBound = prefixEnd(append(append([]byte(nil), prefix...), to...))
	}

	return tx.newCursor(opts, func(id uint64) ([]byte, error) {
		val, found, err := tx.get(keyEntry(partition, id))
		if err == nil && !found {
			err = xerrors.Errorf("index points to missing id %d", id)
		}
		return val, err
	})
}

func (tx readTx) newCursor(opts *pebble.IterOptions, resolve func(uint64) ([]byte, error)) storage.Cursor {
	iter, err := tx.r.NewIter(opts)
	if err != nil {
		return storage.ErroredCursor(xerrors.Errorf("failed to create iterator: %w", err))
	}

	return &cursor{iter: iter, resolve: resolve}
}

// writeTx implements storage.WriteTx on an indexed batch.
type writeTx struct {
	readTx
	batch *pebble.Batch
}

// Add implements storage.WriteTx. The id counter and the record count are
// written in the same batch as the record.
func (tx *writeTx) Add(partition string, e storage.Entry) (uint64, error) {
	spec, err := tx.partition(partition)
	if err != nil {
		return 0, err
	}
	for name := range e.Index {
		if !spec.HasIndex(name) {
			return 0, xerrors.Errorf("index '%s': %w", name, storage.ErrUnknownIndex)
		}
	}

	last, err := tx.getUint64(keySeq(partition))
	if err != nil {
		return 0, err
	}
	count, err := tx.getUint64(keyCount(partition))
	if err != nil {
		return 0, err
	}

	id := last + 1

	err = tx.batch.Set(keyEntry(partition, id), e.Value, nil)
	if err != nil {
		return 0, xerrors.Errorf("failed to set entry: %w", err)
	}

	for name, value := range e.Index {
		err = tx.batch.Set(keyIndex(partition, name, value, id), nil, nil)
		if err != nil {
			return 0, xerrors.Errorf("failed to set index: %w", err)
		}
	}

	err = tx.batch.Set(keySeq(partition), storage.EncodeID(id), nil)
	if err != nil {
		return 0, xerrors.Errorf("failed to set sequence: %w", err)
	}

	err = tx.batch.Set(keyCount(partition), storage.EncodeID(count+1), nil)
	if err != nil {
		return 0, xerrors.Errorf("failed to set count: %w", err)
	}

	return id, nil
}

// cursor adapts a Pebble iterator to storage.Cursor. When resolve is set the
// iterator walks index keys and values are looked up by id.
type cursor struct {
	iter    *pebble.Iterator
	resolve func(id uint64) ([]byte, error)
	started bool
	key     uint64
	value   []byte
	err     error
}

// Next implements storage.Cursor.
func (c *cursor) Next() bool {
	if c.err != nil {
		return false
	}

	var ok bool
	if !c.started {
		ok = c.iter.First()
		c.started = true
	} else {
		ok = c.iter.Next()
	}
	if !ok {
		c.err = c.iter.Error()
		return false
	}

	c.key = storage.DecodeID(c.iter.Key())
	if c.resolve != nil {
		c.value, c.err = c.resolve(c.key)
		return c.err == nil
	}

	c.value = append([]byte(nil), c.iter.Value()...)
	return true
}

// Key implements storage.Cursor.
func (c *cursor) Key() uint64 { return c.key }

// Value implements storage.Cursor.
func (c *cursor) Value() []byte { return c.value }

// Err implements storage.Cursor.
func (c *cursor) Err() error { return c.err }

// Close implements storage.Cursor.
func (c *cursor) Close() error { return c.iter.Close() }
