//go:build !windows

package device

import (
	"fmt"
	"runtime"

	"github.com/born-ml/graft/internal/tensor"
)

// WebGPU is only implemented on windows builds.
type WebGPU struct{}

// NewWebGPU reports that WebGPU is not available on this platform.
func NewWebGPU() (*WebGPU, error) {
	return nil, fmt.Errorf("webgpu on %s: %w", runtime.GOOS, ErrUnavailable)
}

// Name describes the device.
func (g *WebGPU) Name() string {
	return "webgpu"
}

// Release is a no-op.
func (g *WebGPU) Release() {}

// MatMul always fails with ErrUnavailable.
func (g *WebGPU) MatMul(_, _, _ []tensor.Scalar, _, _, _ int) error {
	return ErrUnavailable
}
