package device

import (
	"fmt"

	"github.com/born-ml/graft/internal/parallel"
	"github.com/born-ml/graft/internal/tensor"
	"github.com/klauspost/cpuid/v2"
)

// Host runs kernels on the CPU, splitting rows across goroutines.
type Host struct {
	cfg parallel.Config
}

// NewHost creates a host device with the default parallel configuration.
func NewHost() *Host {
	return &Host{cfg: parallel.DefaultConfig()}
}

// NewHostWithConfig creates a host device with an explicit parallel configuration.
func NewHostWithConfig(cfg parallel.Config) *Host {
	return &Host{cfg: cfg}
}

// Default is the device nodes use until told otherwise.
func Default() Device {
	return NewHost()
}

// Name describes the CPU as reported by cpuid.
func (h *Host) Name() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown cpu"
	}
	return fmt.Sprintf("host: %s (%d cores)", brand, parallel.LogicalCores())
}

// Features lists the SIMD extensions relevant to dense kernels.
func (h *Host) Features() []string {
	var out []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SSE4, "sse4"},
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "neon"},
	} {
		if cpuid.CPU.Supports(f.id) {
			out = append(out, f.name)
		}
	}
	return out
}

// MatMul computes c = a·b, one output row per work item.
func (h *Host) MatMul(c, a, b []tensor.Scalar, m, k, n int) error {
	if err := checkMatMul(c, a, b, m, k, n); err != nil {
		return err
	}
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		clear(row)
		ai := a[i*k : (i+1)*k]
		for p, av := range ai {
			bp := b[p*n : (p+1)*n]
			for j, bv := range bp {
				row[j] += av * bv
			}
		}
	}, h.cfg)
	return nil
}
