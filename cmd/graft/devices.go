package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/graft/internal/device"
)

func runDevices(w io.Writer) error {
	host := device.NewHost()
	features := strings.Join(host.Features(), " ")
	if features == "" {
		features = "none"
	}
	fmt.Fprintf(w, "%s\n  simd: %s\n", host.Name(), features)

	gpu, err := device.NewWebGPU()
	switch {
	case errors.Is(err, device.ErrUnavailable):
		fmt.Fprintln(w, "webgpu: unavailable")
		return nil
	case err != nil:
		return fmt.Errorf("webgpu: %w", err)
	}
	defer gpu.Release()
	fmt.Fprintln(w, gpu.Name())
	return nil
}
