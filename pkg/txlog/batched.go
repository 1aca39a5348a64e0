package txlog

import (
	"context"
	"time"

	"github.com/rzbill/txlog/internal/storage"
	"github.com/rzbill/txlog/pkg/log"
	"golang.org/x/xerrors"
)

// pending is a buffered transaction waiting for a commit.
type pending struct {
	time    time.Time
	payload []byte
}

// BatchedLog is a transaction log that buffers appends in memory. Commit
// persists the buffer and one commit record referencing the assigned ids as a
// single atomic write. Close discards the buffer.
//
// A BatchedLog must not be used concurrently; callers serialize the calls
// made on one instance.
type BatchedLog[T any] struct {
	lifecycle

	codec    Codec[T]
	onAppend func(T)
	buffer   []pending
}

// NewBatchedLog returns a closed log named name. No I/O happens before Open.
func NewBatchedLog[T any](name string, opts Options[T]) *BatchedLog[T] {
	return &BatchedLog[T]{
		lifecycle: newLifecycle(name, batchedSchema(), opts),
		codec:     opts.codec(),
		onAppend:  opts.Hooks.OnAppend,
	}
}

// Close closes the log and drops the transactions not committed yet.
func (l *BatchedLog[T]) Close() error {
	if l.state == stateOpen && len(l.buffer) > 0 {
		l.logger.Warn("discarding uncommitted transactions", log.Int("pending", len(l.buffer)))
	}

	err := l.lifecycle.Close()

	if l.state == stateClosed {
		l.buffer = nil
	}

	return err
}

// Append buffers data. It does not touch the store; the data is encoded right
// away so that a later commit cannot fail on it.
func (l *BatchedLog[T]) Append(data T) error {
	if l.state != stateOpen {
		return ErrLogClosed
	}

	payload, err := l.codec.Encode(data)
	if err != nil {
		return xerrors.Errorf("failed to encode transaction: %w", err)
	}

	l.buffer = append(l.buffer, pending{time: l.clock.Now(), payload: payload})

	if l.onAppend != nil {
		fire(l.logger, "append", func() { l.onAppend(data) })
	}

	return nil
}

// Pending returns the number of buffered transactions.
func (l *BatchedLog[T]) Pending() int {
	return len(l.buffer)
}

// Commit atomically writes the buffered transactions followed by a commit
// record listing their ids. On failure nothing is persisted, the buffer is
// kept for a retry and the error is a *CommitError. An empty buffer produces
// a commit with no transaction.
func (l *BatchedLog[T]) Commit(ctx context.Context) error {
	st, err := l.active()
	if err != nil {
		return err
	}

	start := time.Now()
	var commitID uint64

	err = st.Update(ctx, func(tx storage.WriteTx) error {
		ids := make([]uint64, len(l.buffer))

		for i, p := range l.buffer {
			id, err := tx.Add(partitionTransactions, entry(p.time, p.payload))
			if err != nil {
				return xerrors.Errorf("failed to add transaction #%d: %w", i, err)
			}
			ids[i] = id
		}

		var err error
		commitID, err = tx.Add(partitionCommits, commitEntry(l.clock.Now(), ids))
		if err != nil {
			return xerrors.Errorf("failed to add commit: %w", err)
		}

		return nil
	})

	l.metrics.Commit(time.Since(start), err)

	if err != nil {
		l.logger.Error("commit failed", log.Err(err), log.Int("pending", len(l.buffer)))
		return &CommitError{Pending: len(l.buffer), Err: err}
	}

	l.metrics.Append(len(l.buffer))
	l.logger.Debug("commit done",
		log.Uint64("commit", commitID),
		log.Int("transactions", len(l.buffer)),
		log.Duration("elapsed", time.Since(start)))

	l.buffer = nil

	return nil
}

// CountTransactions returns the number of committed transactions.
func (l *BatchedLog[T]) CountTransactions(ctx context.Context) (uint64, error) {
	st, err := l.active()
	if err != nil {
		return 0, err
	}
	return countPartition(ctx, st, partitionTransactions)
}

// CountCommits returns the number of commits, empty ones included.
func (l *BatchedLog[T]) CountCommits(ctx context.Context) (uint64, error) {
	st, err := l.active()
	if err != nil {
		return 0, err
	}
	return countPartition(ctx, st, partitionCommits)
}

// Replay calls fn with the data of every committed transaction in ascending
// id order, regardless of the commits they belong to. fn must not write to
// the log.
func (l *BatchedLog[T]) Replay(ctx context.Context, fn func(data T) error) error {
	st, err := l.active()
	if err != nil {
		return err
	}

	err = replayPartition(ctx, st, partitionTransactions, l.codec, fn)
	if err != nil {
		return xerrors.Errorf("failed to replay: %w", err)
	}

	return nil
}

// SeqRangeTransactions returns the committed transactions with
// start <= id <= finish in ascending order.
func (l *BatchedLog[T]) SeqRangeTransactions(ctx context.Context, start, finish uint64) ([]Transaction[T], error) {
	st, err := l.active()
	if err != nil {
		return nil, err
	}
	return rangeTransactions(ctx, st, partitionTransactions, l.codec, start, finish)
}

// SeqTransactionsFrom returns the committed transactions with id >= start.
func (l *BatchedLog[T]) SeqTransactionsFrom(ctx context.Context, start uint64) ([]Transaction[T], error) {
	return l.SeqRangeTransactions(ctx, start, Unbounded)
}

// SeqRangeCommits returns the commits with start <= id <= finish in ascending
// order, each with its transactions resolved. A commit referencing a missing
// transaction fails with an *InconsistentLogError.
func (l *BatchedLog[T]) SeqRangeCommits(ctx context.Context, start, finish uint64) ([]CommitInfo[T], error) {
	st, err := l.active()
	if err != nil {
		return nil, err
	}

	err = validateStart(start)
	if err != nil {
		return nil, err
	}

	r := storage.Range{From: start, To: finish}
	if r.Empty() {
		return nil, nil
	}

	var out []CommitInfo[T]

	err = st.View(ctx, func(tx storage.ReadTx) error {
		cur := tx.Cursor(partitionCommits, r)
		defer cur.Close()

		for cur.Next() {
			info, err := l.resolveCommit(tx, cur.Key(), cur.Value())
			if err != nil {
				return err
			}
			out = append(out, info)
		}

		return cur.Err()
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read commits [%d, %d]: %w", start, finish, err)
	}

	return out, nil
}

// SeqCommitsFrom returns the commits with id >= start.
func (l *BatchedLog[T]) SeqCommitsFrom(ctx context.Context, start uint64) ([]CommitInfo[T], error) {
	return l.SeqRangeCommits(ctx, start, Unbounded)
}

func (l *BatchedLog[T]) resolveCommit(tx storage.ReadTx, id uint64, raw []byte) (CommitInfo[T], error) {
	ts, ids, err := decodeCommit(raw)
	if err != nil {
		return CommitInfo[T]{}, xerrors.Errorf("commit %d: %w", id, err)
	}

	info := CommitInfo[T]{
		ID:           id,
		Time:         ts,
		Transactions: make([]Transaction[T], 0, len(ids)),
	}

	for _, tid := range ids {
		value, found, err := tx.Get(partitionTransactions, tid)
		if err != nil {
			return CommitInfo[T]{}, xerrors.Errorf("failed to read transaction %d: %w", tid, err)
		}
		if !found {
			return CommitInfo[T]{}, &InconsistentLogError{CommitID: id, TransactionID: tid}
		}

		t, err := decodeData(l.codec, tid, value)
		if err != nil {
			return CommitInfo[T]{}, err
		}

		info.Transactions = append(info.Transactions, t)
	}

	return info, nil
}
