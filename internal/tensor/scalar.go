//go:build !graft_float32

package tensor

// Scalar is the element type of every tensor buffer in this build.
//
// Build with -tags graft_float32 for single precision.
type Scalar = float64

// Precision is the bit width of Scalar.
const Precision = 64

// DTypeName names Scalar in persisted headers.
const DTypeName = "float64"
