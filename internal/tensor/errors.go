package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is the root of every shape-related failure.
var ErrShape = errors.New("shape mismatch")

// ShapeError reports an input whose shape or batch count does not fit an operation.
type ShapeError struct {
	Op   string // Operation that rejected the tensor (e.g. "affine.forward")
	Want string // Expected layout
	Got  string // Actual layout
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: want %s, got %s", e.Op, ErrShape, e.Want, e.Got)
}

// Unwrap lets errors.Is match ErrShape.
func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// NewShapeError builds a ShapeError from two layouts.
func NewShapeError(op string, want, got fmt.Stringer) *ShapeError {
	return &ShapeError{Op: op, Want: want.String(), Got: got.String()}
}
