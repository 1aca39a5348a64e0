package txlog

import (
	"fmt"

	"github.com/rzbill/txlog/internal/storage"
	"golang.org/x/xerrors"
)

var (
	// ErrAlreadyOpen is returned by Open on an open log.
	ErrAlreadyOpen = xerrors.New("log already open")

	// ErrAlreadyClosed is returned by Close on a closed log.
	ErrAlreadyClosed = xerrors.New("log already closed")

	// ErrLogClosed is returned by data operations on a closed log.
	ErrLogClosed = xerrors.New("log closed")

	// ErrCannotClearWhileOpen is returned by Clear on an open log.
	ErrCannotClearWhileOpen = xerrors.New("cannot clear while open")

	// ErrInvalidSequenceID is returned by range scans starting before 1.
	ErrInvalidSequenceID = xerrors.New("invalid sequence id")

	// ErrCommitFailed matches every *CommitError.
	ErrCommitFailed = xerrors.New("commit failed")

	// ErrInconsistentLog matches every *InconsistentLogError.
	ErrInconsistentLog = xerrors.New("inconsistent log")

	// ErrInvalidName is returned when the log name cannot be used as a
	// storage namespace.
	ErrInvalidName = xerrors.New("invalid log name")

	// ErrCorruptRecord is returned when a stored record fails to decode.
	ErrCorruptRecord = xerrors.New("corrupt record")

	// ErrSchemaMismatch is returned by Open when the name holds a log of the
	// other variant.
	ErrSchemaMismatch = storage.ErrSchemaMismatch
)

// CommitError is returned by BatchedLog.Commit when the atomic write could not
// be completed. Nothing of the batch was persisted.
type CommitError struct {
	// Pending is the number of buffered transactions kept for a retry.
	Pending int
	Err     error
}

// Error implements error.
func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed (%d pending): %v", e.Pending, e.Err)
}

// Is matches ErrCommitFailed.
func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

// Unwrap returns the cause.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// InconsistentLogError reports a commit referencing a transaction that does
// not exist.
type InconsistentLogError struct {
	CommitID      uint64
	TransactionID uint64
}

// Error implements error.
func (e *InconsistentLogError) Error() string {
	return fmt.Sprintf("inconsistent log: commit %d references missing transaction %d",
		e.CommitID, e.TransactionID)
}

// Is matches ErrInconsistentLog.
func (e *InconsistentLogError) Is(target error) bool {
	return target == ErrInconsistentLog
}
