// Package boltstore implements the storage contract using bbolt as the engine
// (https://github.com/etcd-io/bbolt).
//
// Every log name is a single bbolt file. Each partition is a bucket whose keys
// are 8-byte big-endian ids assigned with the bucket sequence, so id
// allocation is rolled back together with the transaction that made it.
// Secondary indexes live in sibling buckets named {partition}#{index} and the
// schema is kept in the #meta bucket.
package boltstore
