// Package device defines where node arithmetic runs.
//
// A Device is handed to nodes explicitly (see graph.Offloadable); nothing in
// the engine reads a process-wide device list. Whatever a device does, the
// buffers it writes are host slices, so the engine reads results as usual.
package device

import (
	"errors"
	"fmt"

	"github.com/born-ml/graft/internal/tensor"
)

// ErrUnavailable is returned when a device cannot be opened on this system.
var ErrUnavailable = errors.New("device unavailable")

// Device executes the dense kernels nodes may offload.
type Device interface {
	// Name describes the device (e.g. "host: AMD EPYC 7B13 (8 cores)").
	Name() string

	// MatMul computes c = a·b for row-major a (m×k) and b (k×n), overwriting c (m×n).
	MatMul(c, a, b []tensor.Scalar, m, k, n int) error
}

// checkMatMul validates buffer lengths for MatMul.
func checkMatMul(c, a, b []tensor.Scalar, m, k, n int) error {
	if len(a) != m*k || len(b) != k*n || len(c) != m*n {
		return fmt.Errorf("matmul [%d,%d]@[%d,%d] with buffers %d,%d->%d: %w",
			m, k, k, n, len(a), len(b), len(c), tensor.ErrShape)
	}
	return nil
}
