package txlog

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/rzbill/txlog/internal/storage"
	"golang.org/x/xerrors"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)
//
// Transactions: header = unix nanos (be8), payload = encoded data.
// Commits: header = unix nanos (be8), payload = uvarint count | uvarint ids.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// timeIndex is the secondary index declared on every partition.
const timeIndex = "time"

func encodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

type decoded struct {
	Header  []byte
	Payload []byte
}

func decodeRecord(b []byte) (decoded, bool) {
	if len(b) < 1+4 {
		return decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || len(b) < n+4 {
		return decoded{}, false
	}
	if hlen > uint64(len(b)-n-4) {
		return decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return decoded{}, false
	}
	return decoded{Header: header, Payload: payload}, true
}

func encodeTime(ts time.Time) []byte {
	return storage.EncodeID(uint64(ts.UnixNano()))
}

func decodeTime(header []byte) (time.Time, bool) {
	if len(header) != 8 {
		return time.Time{}, false
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(header))), true
}

// entry builds the stored form of a record along with its time index.
func entry(ts time.Time, payload []byte) storage.Entry {
	header := encodeTime(ts)
	return storage.Entry{
		Value: encodeRecord(header, payload),
		Index: map[string][]byte{timeIndex: header},
	}
}

func decodeTransaction(b []byte) (time.Time, []byte, error) {
	dec, ok := decodeRecord(b)
	if !ok {
		return time.Time{}, nil, xerrors.Errorf("transaction: %w", ErrCorruptRecord)
	}
	ts, ok := decodeTime(dec.Header)
	if !ok {
		return time.Time{}, nil, xerrors.Errorf("transaction header: %w", ErrCorruptRecord)
	}
	return ts, dec.Payload, nil
}

func commitEntry(ts time.Time, ids []uint64) storage.Entry {
	payload := make([]byte, 0, binary.MaxVarintLen64*(len(ids)+1))
	payload = binary.AppendUvarint(payload, uint64(len(ids)))
	for _, id := range ids {
		payload = binary.AppendUvarint(payload, id)
	}
	return entry(ts, payload)
}

func decodeCommit(b []byte) (time.Time, []uint64, error) {
	dec, ok := decodeRecord(b)
	if !ok {
		return time.Time{}, nil, xerrors.Errorf("commit: %w", ErrCorruptRecord)
	}
	ts, ok := decodeTime(dec.Header)
	if !ok {
		return time.Time{}, nil, xerrors.Errorf("commit header: %w", ErrCorruptRecord)
	}

	buf := dec.Payload
	count, n := binary.Uvarint(buf)
	if n <= 0 || count > uint64(len(buf)) {
		return time.Time{}, nil, xerrors.Errorf("commit ids: %w", ErrCorruptRecord)
	}
	buf = buf[n:]

	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		id, n := binary.Uvarint(buf)
		if n <= 0 {
			return time.Time{}, nil, xerrors.Errorf("commit ids: %w", ErrCorruptRecord)
		}
		ids = append(ids, id)
		buf = buf[n:]
	}
	if len(buf) != 0 {
		return time.Time{}, nil, xerrors.Errorf("commit trailing bytes: %w", ErrCorruptRecord)
	}

	return ts, ids, nil
}
