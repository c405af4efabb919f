package entry

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

type RecordType uint8

const (
	RecordSubmit RecordType = iota + 1
	RecordCancel
	RecordFinalize
	RecordClaim
)

// Record is one logged intent. Data carries an operation payload the
// service layer encodes; the WAL treats it as opaque bytes.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

var ErrCorruptRecord = errors.New("wal: corrupted record")

// Record bodies use protobuf wire encoding:
//
//	1: type (varint)
//	2: seq (varint)
//	3: time (varint)
//	4: data (bytes)
func marshalRecord(r *Record) []byte {
	b := make([]byte, 0, 32+len(r.Data))
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Type))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Seq)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Time))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Data)
	return b
}

func unmarshalRecord(b []byte) (*Record, error) {
	rec := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrCorruptRecord
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			rec.Type = RecordType(v)
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			rec.Seq = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			rec.Time = int64(v)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			rec.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			b = b[n:]
		}
	}
	return rec, nil
}
