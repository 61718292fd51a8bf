//go:build windows

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/born-ml/graft/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// matmulShader performs matrix multiplication: C = A @ B.
// A is [M, K], B is [K, N], C is [M, N].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * b[k * params.N + col];
    }
    result[row * params.N + col] = sum;
}
`

// WebGPU runs kernels on a GPU through wgpu-native.
// Buffers are converted to f32 on upload, so float64 builds lose precision
// in offloaded kernels.
type WebGPU struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu       sync.Mutex
	pipeline *wgpu.ComputePipeline
}

// NewWebGPU opens the high-performance adapter.
// Returns ErrUnavailable if WebGPU is not available or initialization fails.
func NewWebGPU() (dev *WebGPU, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("webgpu: native library not available: %v: %w", r, ErrUnavailable)
		}
	}()

	if err := wgpu.Init(); err != nil {
		return nil, fmt.Errorf("webgpu: %v: %w", err, ErrUnavailable)
	}
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: create instance: %v: %w", err, ErrUnavailable)
	}
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %v: %w", err, ErrUnavailable)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %v: %w", err, ErrUnavailable)
	}

	return &WebGPU{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
	}, nil
}

// Name describes the device.
func (g *WebGPU) Name() string {
	return "webgpu"
}

// Release frees the GPU handles.
func (g *WebGPU) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline != nil {
		g.pipeline.Release()
		g.pipeline = nil
	}
	g.device.Release()
	g.adapter.Release()
	g.instance.Release()
}

func (g *WebGPU) matmulPipeline() *wgpu.ComputePipeline {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		shader := g.device.CreateShaderModuleWGSL(matmulShader)
		g.pipeline = g.device.CreateComputePipelineSimple(nil, shader, "main")
	}
	return g.pipeline
}

// MatMul computes c = a·b on the GPU.
func (g *WebGPU) MatMul(c, a, b []tensor.Scalar, m, k, n int) error {
	if err := checkMatMul(c, a, b, m, k, n); err != nil {
		return err
	}
	pipeline := g.matmulPipeline()

	bufferA := g.upload(encode(a), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferA.Release()
	bufferB := g.upload(encode(b), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferB.Release()

	//nolint:gosec // G115: matrix dimensions are non-negative
	resultSize := uint64(m * n * 4)
	bufferResult := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  resultSize,
	})
	defer bufferResult.Release()

	// Uniform params (M, K, N: u32 each), padded to 16 bytes.
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))  //nolint:gosec // G115
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))  //nolint:gosec // G115
	binary.LittleEndian.PutUint32(params[8:12], uint32(n)) //nolint:gosec // G115
	bufferParams := g.upload(params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	defer bufferParams.Release()

	bindGroup := g.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, uint64(len(a)*4)), //nolint:gosec // G115
		wgpu.BufferBindingEntry(1, bufferB, 0, uint64(len(b)*4)), //nolint:gosec // G115
		wgpu.BufferBindingEntry(2, bufferResult, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := g.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(uint32(math.Ceil(float64(n)/16.0)), uint32(math.Ceil(float64(m)/16.0)), 1)
	computePass.End()
	g.queue.Submit(encoder.Finish(nil))

	raw, err := g.read(bufferResult, resultSize)
	if err != nil {
		return err
	}
	for i := range c {
		c[i] = tensor.Scalar(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return nil
}

// upload creates a GPU buffer initialized with data, 16-byte aligned.
func (g *WebGPU) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := (uint64(len(data)) + 15) &^ 15
	buffer := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size) //nolint:gosec // zero-copy view
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// read copies a storage buffer back to host memory through a staging buffer.
func (g *WebGPU) read(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := g.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	g.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(g.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size) //nolint:gosec // zero-copy view
	out := make([]byte, size)
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

func encode(values []tensor.Scalar) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}
