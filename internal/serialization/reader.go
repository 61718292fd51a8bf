package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/graft/internal/tensor"
)

// ReaderOptions configures Read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Read decodes a .graft stream.
func Read(r io.Reader, opts ReaderOptions) (*File, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	f := &File{Flags: binary.LittleEndian.Uint32(fixed[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &f.Header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	if _, err := io.CopyN(io.Discard, r, int64(padding(int(headerSize)))); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	//nolint:gosec // G115: bounded by the reader; a short read is reported below
	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, &ValidationError{
			Err:     ErrOutOfBounds,
			Details: fmt.Sprintf("data section truncated: %d of %d bytes", len(data), dataSize),
		}
	}

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, err
		}
	}
	if err := ValidateHeader(&f.Header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	f.Tensors, err = decodeTensors(f.Header, data)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFile reads a .graft file with strict validation.
func LoadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	f, err := Read(file, ReaderOptions{ValidationLevel: ValidationStrict})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func decodeTensors(h Header, data []byte) ([]StoredTensor, error) {
	elem, ok := dtypeSize(h.DType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, h.DType)
	}

	tensors := make([]StoredTensor, 0, len(h.Tensors))
	for _, meta := range h.Tensors {
		end := meta.Offset + meta.Size
		if meta.Offset < 0 || meta.Size < 0 || end > int64(len(data)) {
			return nil, &ValidationError{Err: ErrOutOfBounds, Tensor: meta.Name}
		}
		raw := data[meta.Offset:end]
		values := make([]tensor.Scalar, len(raw)/elem)
		for i := range values {
			if elem == 4 {
				values[i] = tensor.Scalar(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
			} else {
				values[i] = tensor.Scalar(math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:])))
			}
		}
		tensors = append(tensors, StoredTensor{
			Name:  meta.Name,
			Shape: tensor.Shape(meta.Shape).Clone(),
			Data:  values,
		})
	}
	return tensors, nil
}
