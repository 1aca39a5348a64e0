package boltstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rzbill/txlog/internal/storage"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var (
	metaBucket = []byte("#meta")
	schemaKey  = []byte("schema")
)

const defaultTimeout = time.Second

// Driver opens one bbolt file per name under DataDir.
//
// - implements storage.Driver
type Driver struct {
	DataDir string
	// NoSync skips fsync after each commit. Use with care.
	NoSync bool
	// Timeout bounds the wait for the file lock. Defaults to one second.
	Timeout time.Duration
}

// Open implements storage.Driver. It creates the partition and index buckets
// on first use and persists the schema, or verifies it against the persisted
// one.
func (d Driver) Open(name string, schema storage.Schema) (storage.Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid schema: %w", err)
	}

	err := os.MkdirAll(d.DataDir, 0755)
	if err != nil {
		return nil, xerrors.Errorf("failed to create data dir: %w", err)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := bbolt.Open(d.path(name), 0666, &bbolt.Options{Timeout: timeout, NoSync: d.NoSync})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return xerrors.Errorf("failed to create bucket: %v", err)
		}

		persisted := meta.Get(schemaKey)
		if persisted != nil {
			return storage.CheckPersisted(persisted, schema)
		}

		data, err := schema.Marshal()
		if err != nil {
			return err
		}
		err = meta.Put(schemaKey, data)
		if err != nil {
			return xerrors.Errorf("failed to write schema: %v", err)
		}

		for _, p := range schema.Partitions {
			_, err = tx.CreateBucketIfNotExists([]byte(p.Name))
			if err != nil {
				return xerrors.Errorf("failed to create bucket: %v", err)
			}
			for _, idx := range p.Indexes {
				_, err = tx.CreateBucketIfNotExists(indexBucket(p.Name, idx))
				if err != nil {
					return xerrors.Errorf("failed to create bucket: %v", err)
				}
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &boltStore{bolt: db, schema: schema}, nil
}

// Remove implements storage.Driver. It deletes the database file.
func (d Driver) Remove(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
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
	return info.Mode().IsRegular(), nil
}

func (d Driver) path(name string) string {
	return filepath.Join(d.DataDir, name+".db")
}

func indexBucket(partition, index string) []byte {
	return []byte(partition + "#" + index)
}

// boltStore is an adapter of the storage contract using bboltdb.
//
// - implements storage.Store
type boltStore struct {
	mu     sync.RWMutex
	closed bool

	bolt   *bbolt.DB
	schema storage.Schema
}

// View implements storage.Store. It opens a read-only transaction.
func (s *boltStore) View(ctx context.Context, fn func(storage.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.bolt.View(func(txn *bbolt.Tx) error {
		return fn(readTx{txn: txn, schema: s.schema})
	})
}

// Update implements storage.Store. It opens a read-write transaction that
// bbolt rolls back when fn fails.
func (s *boltStore) Update(ctx context.Context, fn func(storage.WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.bolt.Update(func(txn *bbolt.Tx) error {
		return fn(writeTx{readTx: readTx{txn: txn, schema: s.schema}})
	})
}

// Close implements storage.Store. Any view or update call will result in an
// error after this function is called.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.bolt.Close()
}

// readTx implements storage.ReadTx.
type readTx struct {
	txn    *bbolt.Tx
	schema storage.Schema
}

func (tx readTx) bucket(partition string) (*bbolt.Bucket, storage.PartitionSpec, error) {
	spec, ok := tx.schema.Partition(partition)
	if !ok {
		return nil, spec, xerrors.Errorf("partition '%s': %w", partition, storage.ErrUnknownPartition)
	}

	b := tx.txn.Bucket([]byte(partition))
	if b == nil {
		return nil, spec, xerrors.Errorf("bucket '%s' not found", partition)
	}
	return b, spec, nil
}

// Get implements storage.ReadTx.
func (tx readTx) Get(partition string, id uint64) ([]byte, bool, error) {
	b, _, err := tx.bucket(partition)
	if err != nil {
		return nil, false, err
	}

	val := b.Get(storage.EncodeID(id))
	if val == nil {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

// Count implements storage.ReadTx.
func (tx readTx) Count(partition string) (uint64, error) {
	b, _, err := tx.bucket(partition)
	if err != nil {
		return 0, err
	}
	return uint64(b.Stats().KeyN), nil
}

// Cursor implements storage.ReadTx.
func (tx readTx) Cursor(partition string, r storage.Range) storage.Cursor {
	b, _, err := tx.bucket(partition)
	if err != nil {
		return storage.ErroredCursor(err)
	}
	if r.Empty() {
		return storage.EmptyCursor()
	}

	return &cursor{
		cursor: b.Cursor(),
		seek:   storage.EncodeID(r.From),
		done: func(k []byte) bool {
			return storage.DecodeID(k) > r.To
		},
	}
}

// IndexCursor implements storage.ReadTx.
func (tx readTx) IndexCursor(partition, index string, from, to []byte) storage.Cursor {
	b, spec, err := tx.bucket(partition)
	if err != nil {
		return storage.ErroredCursor(err)
	}
	if !spec.HasIndex(index) {
		return storage.ErroredCursor(xerrors.Errorf("index '%s': %w", index, storage.ErrUnknownIndex))
	}

	ib := tx.txn.Bucket(indexBucket(partition, index))
	if ib == nil {
		return storage.ErroredCursor(xerrors.Errorf("bucket '%s' not found", indexBucket(partition, index)))
	}

	return &cursor{
		cursor: ib.Cursor(),
		seek:   from,
		done: func(k []byte) bool {
			return to != nil && bytes.Compare(k[:len(k)-8], to) > 0
		},
		resolve: func(id uint64) ([]byte, error) {
			val := b.Get(storage.EncodeID(id))
			if val == nil {
				return nil, xerrors.Errorf("index points to missing id %d", id)
			}
			return append([]byte(nil), val...), nil
		},
	}
}

// writeTx implements storage.WriteTx.
type writeTx struct {
	readTx
}

// Add implements storage.WriteTx. Ids come from the bucket sequence.
func (tx writeTx) Add(partition string, e storage.Entry) (uint64, error) {
	b, spec, err := tx.bucket(partition)
	if err != nil {
		return 0, err
	}
	for name := range e.Index {
		if !spec.HasIndex(name) {
			return 0, xerrors.Errorf("index '%s': %w", name, storage.ErrUnknownIndex)
		}
	}

	id, err := b.NextSequence()
	if err != nil {
		return 0, xerrors.Errorf("failed to allocate id: %v", err)
	}

	err = b.Put(storage.EncodeID(id), e.Value)
	if err != nil {
		return 0, xerrors.Errorf("failed to put entry: %v", err)
	}

	for name, value := range e.Index {
		key := append(append([]byte(nil), value...), storage.EncodeID(id)...)
		err = tx.txn.Bucket(indexBucket(partition, name)).Put(key, []byte{})
		if err != nil {
			return 0, xerrors.Errorf("failed to put index: %v", err)
		}
	}

	return id, nil
}

// cursor adapts a bbolt cursor to storage.Cursor.
type cursor struct {
	cursor  *bbolt.Cursor
	seek    []byte
	done    func(k []byte) bool
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

	var k, v []byte
	if !c.started {
		c.started = true
		if c.seek == nil {
			k, v = c.cursor.First()
		} else {
			k, v = c.cursor.Seek(c.seek)
		}
	} else {
		k, v = c.cursor.Next()
	}

	if k == nil || c.done(k) {
		return false
	}

	c.key = storage.DecodeID(k)
	if c.resolve != nil {
		c.value, c.err = c.resolve(c.key)
		return c.err == nil
	}

	c.value = append([]byte(nil), v...)
	return true
}

// Key implements storage.Cursor.
func (c *cursor) Key() uint64 { return c.key }

// Value implements storage.Cursor.
func (c *cursor) Value() []byte { return c.value }

// Err implements storage.Cursor.
func (c *cursor) Err() error { return c.err }

// Close implements storage.Cursor.
func (c *cursor) Close() error { return nil }
