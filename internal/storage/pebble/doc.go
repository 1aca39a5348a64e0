// Package pebblestore implements the storage contract on top of Pebble.
//
// A thin wrapper (DB) adds an fsync policy, snapshots, indexed batches and
// minimal metrics hooks. The Driver lays every log name out as its own Pebble
// directory under DataDir.
//
// Keys are lexicographically ordered for efficient range scans:
//   - m/schema                          (persisted schema)
//   - m/s/{part}                        (last assigned id, be8)
//   - m/n/{part}                        (record count, be8)
//   - p/{part}/e/{id_be8}               (records)
//   - p/{part}/x/{index}/{value}{id_be8} (secondary index entries)
//
// Usage:
//
//	drv := pebblestore.Driver{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways}
//	st, err := drv.Open("orders", schema)
//	if err != nil { /* handle */ }
//	defer st.Close()
//
// Write transactions run on an indexed batch, so reads inside the transaction
// observe its own writes. Id counters are updated in the same batch as the
// records, which makes an abandoned batch leave no trace. Writers are
// serialized by the store; readers work on Pebble snapshots.
package pebblestore
