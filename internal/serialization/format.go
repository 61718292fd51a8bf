package serialization

import (
	"time"

	"github.com/born-ml/graft/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "GRFT"
	FormatVersion   = 1
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Flags for the .graft format.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
)

// Version is the graft release recorded in written headers.
const Version = "0.1.0"

// Header represents the JSON header in a .graft file.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the .graft format
	GraftVersion  string            `json:"graft_version"`      // Version of graft that wrote the file
	Model         string            `json:"model"`              // Model name (e.g. "xor")
	DType         string            `json:"dtype"`              // Element type of every tensor
	CreatedAt     time.Time         `json:"created_at"`         // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`            // Tensor metadata in declaration order
	Metadata      map[string]string `json:"metadata,omitempty"` // Custom metadata
}

// TensorMeta describes a tensor in the .graft file.
type TensorMeta struct {
	Name   string `json:"name"`   // Dotted parameter path (e.g. "0.weight")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeSize returns the byte width of a stored element type.
func dtypeSize(dtype string) (int, bool) {
	switch dtype {
	case DTypeFloat32:
		return 4, true
	case DTypeFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// StoredTensor is one tensor decoded from a file, converted to the build's
// Scalar type.
type StoredTensor struct {
	Name  string
	Shape tensor.Shape
	Data  []tensor.Scalar
}

// File is a decoded .graft file.
type File struct {
	Header  Header
	Flags   uint32
	Tensors []StoredTensor
}

// Lookup returns the tensor stored under name.
func (f *File) Lookup(name string) (StoredTensor, bool) {
	for _, t := range f.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return StoredTensor{}, false
}
