// Package storage defines the persistent keyed store used by the transaction
// logs.
//
// # Overview
//
// A Driver maps a log name to a durable namespace and opens it as a Store
// with a fixed Schema. A Store exposes closure-scoped transactions:
//
//	err := st.Update(ctx, func(tx storage.WriteTx) error {
//	    id, err := tx.Add("main", storage.Entry{Value: v})
//	    ...
//	})
//
// Inside a write transaction every Add is assigned the next id of its
// partition (auto-increment, starting at 1). Either all writes of the closure
// become durable, including the id counter advances, or none of them do.
//
// Read transactions observe a consistent snapshot and expose forward cursors
// over inclusive id ranges:
//
//	err := st.View(ctx, func(tx storage.ReadTx) error {
//	    cur := tx.Cursor("main", storage.Range{From: 1, To: storage.Unbounded})
//	    defer cur.Close()
//	    for cur.Next() {
//	        _ = cur.Key()   // id
//	        _ = cur.Value() // record bytes
//	    }
//	    return cur.Err()
//	})
//
// Implementations live in the pebble and bolt subpackages. Both are checked by
// the storagetest conformance suite.
package storage
