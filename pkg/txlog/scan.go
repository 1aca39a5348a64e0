package txlog

import (
	"context"
	"time"

	"github.com/rzbill/txlog/internal/storage"
	"golang.org/x/xerrors"
)

// Unbounded as the finish of a range scan selects every id from start on.
const Unbounded = storage.Unbounded

// Transaction is a persisted entry of a log.
type Transaction[T any] struct {
	ID   uint64
	Time time.Time
	Data T
}

// CommitInfo is a persisted commit of a BatchedLog with its transactions
// resolved in their original order.
type CommitInfo[T any] struct {
	ID           uint64
	Time         time.Time
	Transactions []Transaction[T]
}

func validateStart(start uint64) error {
	if start < 1 {
		return xerrors.Errorf("start %d: %w", start, ErrInvalidSequenceID)
	}
	return nil
}

func countPartition(ctx context.Context, st storage.Store, partition string) (uint64, error) {
	var n uint64

	err := st.View(ctx, func(tx storage.ReadTx) error {
		var err error
		n, err = tx.Count(partition)
		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to count '%s': %w", partition, err)
	}

	return n, nil
}

func decodeData[T any](codec Codec[T], id uint64, raw []byte) (Transaction[T], error) {
	ts, payload, err := decodeTransaction(raw)
	if err != nil {
		return Transaction[T]{}, xerrors.Errorf("id %d: %w", id, err)
	}

	data, err := codec.Decode(payload)
	if err != nil {
		return Transaction[T]{}, xerrors.Errorf("failed to decode transaction %d: %w", id, err)
	}

	return Transaction[T]{ID: id, Time: ts, Data: data}, nil
}

// replayPartition calls fn with the data of every transaction in ascending id
// order, inside one read transaction.
func replayPartition[T any](ctx context.Context, st storage.Store, partition string,
	codec Codec[T], fn func(T) error) error {

	return st.View(ctx, func(tx storage.ReadTx) error {
		cur := tx.Cursor(partition, storage.Range{From: 1, To: storage.Unbounded})
		defer cur.Close()

		for cur.Next() {
			t, err := decodeData(codec, cur.Key(), cur.Value())
			if err != nil {
				return err
			}

			err = fn(t.Data)
			if err != nil {
				return xerrors.Errorf("callback failed at %d: %w", t.ID, err)
			}
		}

		return cur.Err()
	})
}

func readTransactions[T any](tx storage.ReadTx, partition string, codec Codec[T],
	r storage.Range) ([]Transaction[T], error) {

	cur := tx.Cursor(partition, r)
	defer cur.Close()

	var out []Transaction[T]
	for cur.Next() {
		t, err := decodeData(codec, cur.Key(), cur.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	err := cur.Err()
	if err != nil {
		return nil, err
	}

	return out, nil
}

// rangeTransactions returns the transactions whose id lies in [start, finish].
func rangeTransactions[T any](ctx context.Context, st storage.Store, partition string,
	codec Codec[T], start, finish uint64) ([]Transaction[T], error) {

	err := validateStart(start)
	if err != nil {
		return nil, err
	}

	r := storage.Range{From: start, To: finish}
	if r.Empty() {
		return nil, nil
	}

	var out []Transaction[T]
	err = st.View(ctx, func(tx storage.ReadTx) error {
		var err error
		out, err = readTransactions(tx, partition, codec, r)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read range [%d, %d]: %w", start, finish, err)
	}

	return out, nil
}
