// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the batched tensor type of the graft engine.
//
// # Overview
//
// A Tensor holds a sample Shape, a batch count and a flat data buffer laid
// out sample-major. Gradients are allocated lazily and accumulate: every
// consumer of a tensor adds its contribution.
//
// The element type is Scalar: float64 by default, float32 when built with
// the graft_float32 tag.
//
// # Basic Usage
//
//	x, err := tensor.FromSlice([]tensor.Scalar{0, 1, 1, 0}, tensor.Shape{2}, 2)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(x.Sample(1)) // [1 0]
//
// Tensors are not safe for concurrent mutation.
package tensor
