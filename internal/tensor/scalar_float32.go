//go:build graft_float32

package tensor

// Scalar is the element type of every tensor buffer in this build.
type Scalar = float32

// Precision is the bit width of Scalar.
const Precision = 32

// DTypeName names Scalar in persisted headers.
const DTypeName = "float32"
