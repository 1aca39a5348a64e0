// Package txlog implements append-only transaction logs persisted in an
// ordered key/value store.
//
// # Overview
//
// Two variants share the same lifecycle and read surface:
//
//   - SimpleLog commits every appended entry immediately, in its own atomic
//     write.
//   - BatchedLog buffers appended entries in memory; Commit writes the whole
//     buffer plus one commit record listing the assigned ids, atomically.
//
// Each entry is stored as a Transaction with a store-assigned id (1, 2, ...)
// and a timestamp. Ids increase in append order; replay and range scans
// always follow ids, independently of commit boundaries.
//
//	l := txlog.NewBatchedLog("orders", txlog.Options[Order]{DataDir: "./data"})
//	if err := l.Open(ctx); err != nil { /* handle */ }
//	defer l.Close()
//
//	_ = l.Append(Order{ID: "a"})
//	_ = l.Append(Order{ID: "b"})
//	if err := l.Commit(ctx); err != nil {
//	    // Nothing was persisted and the buffer is kept; Commit may be retried.
//	}
//
//	commits, _ := l.SeqCommitsFrom(ctx, 1)
//
// # Lifecycle
//
// A log starts closed. Open creates the partitions on first use, Close
// releases the store (and drops the uncommitted buffer of a BatchedLog), and
// Clear deletes everything persisted under the name. Clear is only allowed
// while closed. Data operations on a closed log fail with ErrLogClosed.
//
// # Concurrency
//
// A log instance does not synchronize its own state: callers must serialize
// Open, Close, Append, Commit and reads on one instance. Replay callbacks run
// inside a read transaction and must not write to the same log.
//
// # Storage
//
// Pebble is the default backend; bbolt is available with BackendBolt. Records
// are framed with a CRC32-C checksum and data is serialized with a Codec
// (JSON by default).
package txlog
