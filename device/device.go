// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device selects where node arithmetic runs.
//
// Devices are handed to nodes explicitly:
//
//	gpu, err := device.NewWebGPU()
//	if err != nil {
//	    return err // device.ErrUnavailable outside windows builds
//	}
//	defer gpu.Release()
//	model.SetDevice(gpu)
//
// Host runs on the CPU and is what every node starts with.
package device

import (
	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/parallel"
)

// Device executes the dense kernels nodes may offload.
type Device = device.Device

// Host runs kernels on the CPU.
type Host = device.Host

// WebGPU runs kernels through WebGPU compute shaders.
type WebGPU = device.WebGPU

// ErrUnavailable is returned when a device cannot be opened on this system.
var ErrUnavailable = device.ErrUnavailable

// NewHost creates a host device using every logical core.
func NewHost() *Host {
	return device.NewHost()
}

// NewHostWithWorkers creates a host device limited to n goroutines.
// n <= 1 runs kernels sequentially.
func NewHostWithWorkers(n int) *Host {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = n
	cfg.Enabled = n > 1
	return device.NewHostWithConfig(cfg)
}

// NewWebGPU opens the default WebGPU adapter.
func NewWebGPU() (*WebGPU, error) {
	return device.NewWebGPU()
}

// Default returns the device nodes use until told otherwise.
func Default() Device {
	return device.Default()
}
