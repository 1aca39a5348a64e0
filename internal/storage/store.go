package storage

import (
	"context"
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

var (
	// ErrUnknownPartition is returned when a partition is not part of the
	// schema.
	ErrUnknownPartition = xerrors.New("unknown partition")

	// ErrUnknownIndex is returned when an index is not declared on the
	// partition.
	ErrUnknownIndex = xerrors.New("unknown index")

	// ErrSchemaMismatch is returned when the persisted schema differs from the
	// requested one.
	ErrSchemaMismatch = xerrors.New("schema mismatch")

	// ErrStoreClosed is returned by transactions started on a closed store.
	ErrStoreClosed = xerrors.New("store closed")
)

// Unbounded is the upper bound of a range open on the right.
const Unbounded uint64 = math.MaxUint64

// Range is an inclusive interval of ids.
type Range struct {
	From uint64
	To   uint64
}

// Empty returns true when no id can lie in the range.
func (r Range) Empty() bool {
	return r.To < r.From
}

// Entry is a record to add to a partition. Index maps index names declared in
// the schema to the index value of this record.
type Entry struct {
	Value []byte
	Index map[string][]byte
}

// Cursor is a finite, forward-only iterator in ascending id order. It must be
// closed once done.
type Cursor interface {
	// Next advances the cursor and returns false when exhausted or on error.
	Next() bool

	// Key returns the id of the current record.
	Key() uint64

	// Value returns the current record. The slice is owned by the caller.
	Value() []byte

	// Err returns the error that stopped the iteration, if any.
	Err() error

	Close() error
}

// ReadTx allows one to perform read-only operations on a consistent snapshot.
type ReadTx interface {
	// Get returns the record of the id, and false if it does not exist.
	Get(partition string, id uint64) ([]byte, bool, error)

	// Count returns the number of records in the partition.
	Count(partition string) (uint64, error)

	// Cursor iterates over the records whose id lies in the range.
	Cursor(partition string, r Range) Cursor

	// IndexCursor iterates over the records whose index value lies in
	// [from, to]. A nil bound is open. Records sharing an index value are
	// ordered by id.
	IndexCursor(partition, index string, from, to []byte) Cursor
}

// WriteTx allows one to perform atomic writes.
type WriteTx interface {
	ReadTx

	// Add stores the entry under the next id of the partition and returns
	// that id.
	Add(partition string, e Entry) (uint64, error)
}

// Store is an opened namespace.
type Store interface {
	// View executes fn in a read-only transaction.
	View(ctx context.Context, fn func(ReadTx) error) error

	// Update executes fn in a read-write transaction. The transaction is
	// rolled back as a whole if fn returns an error or if the durable commit
	// fails.
	Update(ctx context.Context, fn func(WriteTx) error) error

	// Close releases the namespace. Transactions started afterwards fail with
	// ErrStoreClosed.
	Close() error
}

// Driver opens and removes namespaces by name.
type Driver interface {
	// Open opens or creates the namespace. Partitions and indexes of the
	// schema are created when missing. Fails with ErrSchemaMismatch if the
	// namespace was created with a different schema.
	Open(name string, schema Schema) (Store, error)

	// Remove irreversibly deletes everything stored under the name. Removing
	// an unknown name is not an error.
	Remove(name string) error

	// Exists returns true when something is stored under the name.
	Exists(name string) (bool, error)
}

// EncodeID returns the 8-byte big-endian representation of the id, which
// preserves ordering byte-wise.
func EncodeID(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

// DecodeID reads an id from the last 8 bytes of the key.
func DecodeID(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// EmptyCursor returns a cursor that yields nothing.
func EmptyCursor() Cursor { return staticCursor{} }

// ErroredCursor returns a cursor that yields nothing and reports err.
func ErroredCursor(err error) Cursor { return staticCursor{err: err} }

type staticCursor struct {
	err error
}

func (staticCursor) Next() bool    { return false }
func (staticCursor) Key() uint64   { return 0 }
func (staticCursor) Value() []byte { return nil }
func (c staticCursor) Err() error  { return c.err }
func (staticCursor) Close() error  { return nil }
