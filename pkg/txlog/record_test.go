package txlog

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecord_Roundtrip(t *testing.T) {
	rec := encodeRecord([]byte("h"), []byte("payload"))

	dec, ok := decodeRecord(rec)
	require.True(t, ok)
	require.Equal(t, []byte("h"), dec.Header)
	require.Equal(t, []byte("payload"), dec.Payload)
}

func TestRecord_CRCFail(t *testing.T) {
	rec := encodeRecord([]byte("x"), []byte("y"))
	rec[len(rec)-1] ^= 0xFF

	_, ok := decodeRecord(rec)
	require.False(t, ok)
}

func TestRecord_Truncated(t *testing.T) {
	rec := encodeRecord([]byte("header"), []byte("payload"))

	for i := 0; i < len(rec); i++ {
		_, ok := decodeRecord(rec[:i])
		require.False(t, ok, "length %d", i)
	}
}

func TestRecord_Transaction(t *testing.T) {
	ts := time.Unix(0, 1_700_000_000_123_456_789)

	e := entry(ts, []byte(`{"n":1}`))
	require.Equal(t, encodeTime(ts), e.Index[timeIndex])

	got, payload, err := decodeTransaction(e.Value)
	require.NoError(t, err)
	require.True(t, ts.Equal(got))
	require.Equal(t, []byte(`{"n":1}`), payload)

	_, _, err = decodeTransaction(encodeRecord([]byte("short"), nil))
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRecord_Commit(t *testing.T) {
	ts := time.Unix(12, 34)

	for _, ids := range [][]uint64{{}, {1}, {1, 2, 300, 1 << 40}} {
		e := commitEntry(ts, ids)

		got, decoded, err := decodeCommit(e.Value)
		require.NoError(t, err)
		require.True(t, ts.Equal(got))
		require.Equal(t, ids, decoded)
	}

	// Count larger than the ids present.
	_, _, err := decodeCommit(encodeRecord(encodeTime(ts), []byte{0x03, 0x01}))
	require.ErrorIs(t, err, ErrCorruptRecord)

	// Trailing bytes.
	_, _, err = decodeCommit(encodeRecord(encodeTime(ts), []byte{0x01, 0x01, 0x02}))
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRecord_HugeHeaderLength(t *testing.T) {
	for _, hlen := range []uint64{math.MaxUint64, math.MaxUint64 - 5, math.MaxInt64, 1 << 40} {
		rec := append(binary.AppendUvarint(nil, hlen), 0, 0, 0, 0)

		_, ok := decodeRecord(rec)
		require.False(t, ok, "header length %d", hlen)

		_, _, err := decodeTransaction(rec)
		require.ErrorIs(t, err, ErrCorruptRecord)

		_, _, err = decodeCommit(rec)
		require.ErrorIs(t, err, ErrCorruptRecord)
	}
}
