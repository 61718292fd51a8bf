// Package main provides the graft CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/born-ml/graft/internal/serialization"
	"github.com/born-ml/graft/internal/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "graft: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "graft %s (%s, format v%d)\n", version, tensor.DTypeName, serialization.FormatVersion)
	case "devices":
		return runDevices(stdout)
	case "xor":
		return runXOR(args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "graft - dynamic-graph training engine for Go")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  devices    List compute devices")
	fmt.Fprintln(w, "  xor        Train the XOR demo model")
	fmt.Fprintln(w, "  inspect    Print the contents of a .graft file or snapshot")
}
