package txlog

import (
	"context"
	"time"

	"github.com/rzbill/txlog/internal/storage"
	"github.com/rzbill/txlog/pkg/log"
	"golang.org/x/xerrors"
)

// SimpleLog is a transaction log where every append is durable when it
// returns.
//
// A SimpleLog must not be used concurrently; callers serialize the calls made
// on one instance.
type SimpleLog[T any] struct {
	lifecycle

	codec    Codec[T]
	onAppend func(T)
}

// NewSimpleLog returns a closed log named name. No I/O happens before Open.
func NewSimpleLog[T any](name string, opts Options[T]) *SimpleLog[T] {
	return &SimpleLog[T]{
		lifecycle: newLifecycle(name, simpleSchema(), opts),
		codec:     opts.codec(),
		onAppend:  opts.Hooks.OnAppend,
	}
}

// Append stores data as the next transaction of the log.
func (l *SimpleLog[T]) Append(ctx context.Context, data T) error {
	st, err := l.active()
	if err != nil {
		return err
	}

	payload, err := l.codec.Encode(data)
	if err != nil {
		return xerrors.Errorf("failed to encode transaction: %w", err)
	}

	start := time.Now()
	var id uint64

	err = st.Update(ctx, func(tx storage.WriteTx) error {
		var err error
		id, err = tx.Add(partitionMain, entry(l.clock.Now(), payload))
		return err
	})

	l.metrics.Commit(time.Since(start), err)

	if err != nil {
		l.logger.Error("append failed", log.Err(err))
		return xerrors.Errorf("failed to append: %w", err)
	}

	l.metrics.Append(1)
	l.logger.Debug("transaction appended", log.Uint64("id", id))

	if l.onAppend != nil {
		fire(l.logger, "append", func() { l.onAppend(data) })
	}

	return nil
}

// CountTransactions returns the number of transactions in the log.
func (l *SimpleLog[T]) CountTransactions(ctx context.Context) (uint64, error) {
	st, err := l.active()
	if err != nil {
		return 0, err
	}
	return countPartition(ctx, st, partitionMain)
}

// Replay calls fn with the data of every transaction in ascending id order.
// The first error returned by fn aborts the replay and is returned wrapped.
// fn must not write to the log.
func (l *SimpleLog[T]) Replay(ctx context.Context, fn func(data T) error) error {
	st, err := l.active()
	if err != nil {
		return err
	}

	err = replayPartition(ctx, st, partitionMain, l.codec, fn)
	if err != nil {
		return xerrors.Errorf("failed to replay: %w", err)
	}

	return nil
}

// SeqRangeTransactions returns the transactions with start <= id <= finish in
// ascending order.
func (l *SimpleLog[T]) SeqRangeTransactions(ctx context.Context, start, finish uint64) ([]Transaction[T], error) {
	st, err := l.active()
	if err != nil {
		return nil, err
	}
	return rangeTransactions(ctx, st, partitionMain, l.codec, start, finish)
}

// SeqTransactionsFrom returns the transactions with id >= start in ascending
// order.
func (l *SimpleLog[T]) SeqTransactionsFrom(ctx context.Context, start uint64) ([]Transaction[T], error) {
	return l.SeqRangeTransactions(ctx, start, Unbounded)
}
