package pebblestore

import (
	"github.com/rzbill/txlog/internal/storage"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - m/schema
// - m/s/{part}
// - m/n/{part}
// - p/{part}/e/{id_be8}
// - p/{part}/x/{index}/{value}{id_be8}

var (
	sep        = byte('/')
	schemaKey  = []byte("m/schema")
	seqPrefix  = []byte("m/s/")
	cntPrefix  = []byte("m/n/")
	partPrefix = []byte("p/")
	entrySeg   = []byte("/e/")
	indexSeg   = []byte("/x/")
)

// keySeq builds the key holding the last assigned id of the partition.
func keySeq(part string) []byte {
	k := make([]byte, 0, len(seqPrefix)+len(part))
	k = append(k, seqPrefix...)
	return append(k, part...)
}

// keyCount builds the key holding the record count of the partition.
func keyCount(part string) []byte {
	k := make([]byte, 0, len(cntPrefix)+len(part))
	k = append(k, cntPrefix...)
	return append(k, part...)
}

// keyEntry builds the record key with a big-endian id for proper ordering.
func keyEntry(part string, id uint64) []byte {
	k := make([]byte, 0, len(partPrefix)+len(part)+len(entrySeg)+8)
	k = append(k, partPrefix...)
	k = append(k, part...)
	k = append(k, entrySeg...)
	return append(k, storage.EncodeID(id)...)
}

// keyIndexPrefix builds the prefix shared by every entry of an index.
func keyIndexPrefix(part, index string) []byte {
	k := make([]byte, 0, len(partPrefix)+len(part)+len(indexSeg)+len(index)+1)
	k = append(k, partPrefix...)
	k = append(k, part...)
	k = append(k, indexSeg...)
	k = append(k, index...)
	return append(k, sep)
}

// keyIndex builds an index entry key: prefix | value | id_be8.
func keyIndex(part, index string, value []byte, id uint64) []byte {
	k := keyIndexPrefix(part, index)
	k = append(k, value...)
	return append(k, storage.EncodeID(id)...)
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or nil if there is none.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
