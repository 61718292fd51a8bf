package serialization

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// WriteOptions configures Write.
type WriteOptions struct {
	Model    string            // Model name recorded in the header
	DType    string            // Stored element type (default: the build's Scalar type)
	Metadata map[string]string // Custom metadata
}

// Write encodes params in .graft format, in the given order.
func Write(w io.Writer, params []graph.NamedParameter, opts WriteOptions) error {
	if opts.DType == "" {
		opts.DType = tensor.DTypeName
	}
	elem, ok := dtypeSize(opts.DType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedDType, opts.DType)
	}

	header := Header{
		FormatVersion: FormatVersion,
		GraftVersion:  Version,
		Model:         opts.Model,
		DType:         opts.DType,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(params)),
		Metadata:      opts.Metadata,
	}

	// Calculate tensor offsets and collect tensor data
	var offset int64
	var data []byte
	for _, np := range params {
		if err := ValidateTensorName(np.Path); err != nil {
			return err
		}
		values := np.Param.Data()
		size := int64(len(values) * elem)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   np.Path,
			Shape:  np.Param.Tensor().Shape(),
			Offset: offset,
			Size:   size,
		})
		offset += size
		data = appendValues(data, values, opts.DType)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	checksum := ComputeChecksum(data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	var flags uint32
	if len(opts.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	if pad := padding(len(headerJSON)); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// SaveFile writes params to path in .graft format.
func SaveFile(path string, params []graph.NamedParameter, opts WriteOptions) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return Write(file, params, opts)
}

// padding returns the zero bytes needed after a header of headerSize bytes
// so that tensor data starts on a HeaderAlignment boundary.
func padding(headerSize int) int {
	pos := FixedHeaderSize + headerSize
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}

func appendValues(dst []byte, values []tensor.Scalar, dtype string) []byte {
	for _, v := range values {
		if dtype == DTypeFloat32 {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		} else {
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(v)))
		}
	}
	return dst
}
