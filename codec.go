package seqsync

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the wire form, which is protobuf-compatible with
//
//	message Operation {
//	  uint64 kind = 1; uint64 pos = 2; uint64 count = 3;
//	  uint64 insert_count = 4; uint64 to = 5;
//	}
//	message Batch { repeated Operation ops = 1; }
const (
	fieldBatchOps   protowire.Number = 1
	fieldOpKind     protowire.Number = 1
	fieldOpPos      protowire.Number = 2
	fieldOpCount    protowire.Number = 3
	fieldOpInsCount protowire.Number = 4
	fieldOpTo       protowire.Number = 5
)

func appendUint(buf []byte, num protowire.Number, v int) []byte {
	if v == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, uint64(v))
}

func marshalOperation(buf []byte, op Operation) []byte {
	buf = appendUint(buf, fieldOpKind, int(op.Kind))
	buf = appendUint(buf, fieldOpPos, op.Pos)
	buf = appendUint(buf, fieldOpCount, op.Count)
	buf = appendUint(buf, fieldOpInsCount, op.InsertCount)
	return appendUint(buf, fieldOpTo, op.To)
}

// MarshalOperations encodes a batch of operations, for example to log the
// updates a sink received or to ship them to a consumer elsewhere.
func MarshalOperations(ops []Operation) []byte {
	var buf, scratch []byte
	for _, op := range ops {
		scratch = marshalOperation(scratch[:0], op)
		buf = protowire.AppendTag(buf, fieldBatchOps, protowire.BytesType)
		buf = protowire.AppendBytes(buf, scratch)
	}
	return buf
}

// UnmarshalOperations decodes a batch produced by MarshalOperations. Unknown
// fields are skipped.
func UnmarshalOperations(buf []byte) ([]Operation, error) {
	var ops []Operation
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, errors.Mark(errors.Wrap(protowire.ParseError(n), "batch tag"), ErrCorruptBatch)
		}
		buf = buf[n:]
		if num != fieldBatchOps || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, errors.Mark(errors.Wrap(protowire.ParseError(n), "batch field"), ErrCorruptBatch)
			}
			buf = buf[n:]
			continue
		}
		body, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return nil, errors.Mark(errors.Wrap(protowire.ParseError(n), "operation body"), ErrCorruptBatch)
		}
		buf = buf[n:]
		op, err := unmarshalOperation(body)
		if err != nil {
			return nil, errors.Wrapf(err, "operation %d", len(ops))
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func unmarshalOperation(buf []byte) (Operation, error) {
	var op Operation
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return op, errors.Mark(protowire.ParseError(n), ErrCorruptBatch)
		}
		buf = buf[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return op, errors.Mark(protowire.ParseError(n), ErrCorruptBatch)
			}
			buf = buf[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return op, errors.Mark(protowire.ParseError(n), ErrCorruptBatch)
		}
		buf = buf[n:]
		switch num {
		case fieldOpKind:
			if v > uint64(OpMove) {
				return op, errors.Mark(errors.Newf("unknown operation kind %d", v), ErrCorruptBatch)
			}
			op.Kind = OpKind(v)
		case fieldOpPos:
			op.Pos = int(v)
		case fieldOpCount:
			op.Count = int(v)
		case fieldOpInsCount:
			op.InsertCount = int(v)
		case fieldOpTo:
			op.To = int(v)
		}
	}
	return op, nil
}
