// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/graft/internal/tensor"

// Scalar is the element type selected at build time.
type Scalar = tensor.Scalar

// Precision is the bit width of Scalar.
const Precision = tensor.Precision

// DTypeName names Scalar ("float32" or "float64").
const DTypeName = tensor.DTypeName

// Shape is the per-sample shape of a tensor.
type Shape = tensor.Shape

// Tensor is a batch of equally shaped samples with an optional gradient.
type Tensor = tensor.Tensor

// ShapeError reports an operation applied to tensors of the wrong shape.
type ShapeError = tensor.ShapeError

// ErrShape is wrapped by every ShapeError.
var ErrShape = tensor.ErrShape

// New creates a zero-filled tensor.
func New(shape Shape, batch int) (*Tensor, error) {
	return tensor.New(shape, batch)
}

// Zeros creates a zero-filled tensor and panics on an invalid layout.
func Zeros(shape Shape, batch int) *Tensor {
	return tensor.Zeros(shape, batch)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, batch int, value Scalar) *Tensor {
	return tensor.Full(shape, batch, value)
}

// FromSlice creates a tensor holding a copy of data.
//
// Example:
//
//	// Two samples of shape [2].
//	x, err := tensor.FromSlice([]tensor.Scalar{0, 1, 1, 0}, tensor.Shape{2}, 2)
func FromSlice(data []Scalar, shape Shape, batch int) (*Tensor, error) {
	return tensor.FromSlice(data, shape, batch)
}

// Like creates a zero-filled tensor with the layout of t.
func Like(t *Tensor) *Tensor {
	return tensor.Like(t)
}
