package serialization

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Snapshot field numbers. The encoding corresponds to:
//
//	message Snapshot {
//	  string model = 1;
//	  repeated Param params = 2;
//	}
//	message Param {
//	  string name = 1;
//	  repeated int64 shape = 2;   // packed
//	  repeated double data = 3;   // packed
//	}
const (
	snapshotModel  protowire.Number = 1
	snapshotParams protowire.Number = 2

	paramName  protowire.Number = 1
	paramShape protowire.Number = 2
	paramData  protowire.Number = 3
)

// MarshalSnapshot encodes params as a protobuf Snapshot message.
// Values are always stored as doubles.
func MarshalSnapshot(model string, params []graph.NamedParameter) []byte {
	var b []byte
	if model != "" {
		b = protowire.AppendTag(b, snapshotModel, protowire.BytesType)
		b = protowire.AppendString(b, model)
	}
	for _, np := range params {
		b = protowire.AppendTag(b, snapshotParams, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalParam(np))
	}
	return b
}

func marshalParam(np graph.NamedParameter) []byte {
	var b []byte
	b = protowire.AppendTag(b, paramName, protowire.BytesType)
	b = protowire.AppendString(b, np.Path)

	var shape []byte
	for _, d := range np.Param.Tensor().Shape() {
		shape = protowire.AppendVarint(shape, uint64(d))
	}
	b = protowire.AppendTag(b, paramShape, protowire.BytesType)
	b = protowire.AppendBytes(b, shape)

	data := make([]byte, 0, 8*len(np.Param.Data()))
	for _, v := range np.Param.Data() {
		data = protowire.AppendFixed64(data, math.Float64bits(float64(v)))
	}
	b = protowire.AppendTag(b, paramData, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

// UnmarshalSnapshot decodes a Snapshot message into a File that Restore
// accepts. Unknown fields are skipped.
func UnmarshalSnapshot(b []byte) (*File, error) {
	f := &File{Header: Header{FormatVersion: FormatVersion, DType: DTypeFloat64}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed("tag", n)
		}
		b = b[n:]

		switch {
		case num == snapshotModel && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, malformed("model", n)
			}
			f.Header.Model = s
			b = b[n:]
		case num == snapshotParams && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed("param", n)
			}
			st, err := unmarshalParam(raw)
			if err != nil {
				return nil, err
			}
			f.Tensors = append(f.Tensors, st)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed("unknown field", n)
			}
			b = b[n:]
		}
	}

	for _, st := range f.Tensors {
		f.Header.Tensors = append(f.Header.Tensors, TensorMeta{
			Name:  st.Name,
			Shape: st.Shape.Clone(),
			Size:  int64(8 * len(st.Data)),
		})
	}
	return f, nil
}

func unmarshalParam(b []byte) (StoredTensor, error) {
	var st StoredTensor
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return st, malformed("param tag", n)
		}
		b = b[n:]

		switch {
		case num == paramName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return st, malformed("param name", n)
			}
			st.Name = s
			b = b[n:]
		case num == paramShape && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return st, malformed("param shape", n)
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return st, malformed("shape value", m)
				}
				d, err := shapeDim(st.Name, v)
				if err != nil {
					return st, err
				}
				st.Shape = append(st.Shape, d)
				packed = packed[m:]
			}
			b = b[n:]
		case num == paramShape && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return st, malformed("shape value", n)
			}
			d, err := shapeDim(st.Name, v)
			if err != nil {
				return st, err
			}
			st.Shape = append(st.Shape, d)
			b = b[n:]
		case num == paramData && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return st, malformed("param data", n)
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeFixed64(packed)
				if m < 0 {
					return st, malformed("data value", m)
				}
				st.Data = append(st.Data, tensor.Scalar(math.Float64frombits(v)))
				packed = packed[m:]
			}
			b = b[n:]
		case num == paramData && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return st, malformed("data value", n)
			}
			st.Data = append(st.Data, tensor.Scalar(math.Float64frombits(v)))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return st, malformed("param field", n)
			}
			b = b[n:]
		}
	}

	if err := ValidateTensorName(st.Name); err != nil {
		return st, err
	}
	n, ok := elementCount(st.Shape)
	if !ok || n != int64(len(st.Data)) {
		return st, &ValidationError{
			Err:     ErrMalformedSnapshot,
			Tensor:  st.Name,
			Details: fmt.Sprintf("shape %v for %d values", st.Shape, len(st.Data)),
		}
	}
	return st, nil
}

// shapeDim converts a decoded dim, which must lie in [1, MaxInt32].
func shapeDim(name string, v uint64) (int, error) {
	if v == 0 || v > math.MaxInt32 {
		return 0, &ValidationError{
			Err:     ErrMalformedSnapshot,
			Tensor:  name,
			Details: fmt.Sprintf("dim %d out of range", v),
		}
	}
	return int(v), nil
}

func malformed(what string, n int) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedSnapshot, what, protowire.ParseError(n))
}
