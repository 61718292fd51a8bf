package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/born-ml/graft/internal/serialization"
)

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	snapshot := fs.Bool("snapshot", false, "Read a protobuf snapshot instead of a .graft file")
	skipChecksum := fs.Bool("skip-checksum", false, "Do not verify the data checksum")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect: expected exactly one file")
	}
	path := fs.Arg(0)

	f, err := open(path, *snapshot, *skipChecksum)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	printFile(stdout, f)
	return nil
}

func open(path string, snapshot, skipChecksum bool) (*serialization.File, error) {
	if snapshot {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return serialization.UnmarshalSnapshot(b)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return serialization.Read(file, serialization.ReaderOptions{SkipChecksumValidation: skipChecksum})
}

func printFile(w io.Writer, f *serialization.File) {
	h := f.Header
	fmt.Fprintf(w, "model:   %s\n", orNone(h.Model))
	if h.DType != "" {
		fmt.Fprintf(w, "dtype:   %s\n", h.DType)
	}
	if h.GraftVersion != "" {
		fmt.Fprintf(w, "version: %s\n", h.GraftVersion)
	}
	if !h.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created: %s\n", h.CreatedAt.Format(time.RFC3339))
	}
	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s=%s\n", k, h.Metadata[k])
	}

	total := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTENSOR\tSHAPE\tVALUES\tMIN\tMAX\tMEAN")
	for _, st := range f.Tensors {
		lo, hi, mean := stats(st)
		fmt.Fprintf(tw, "%s\t%v\t%d\t%.4g\t%.4g\t%.4g\n", st.Name, st.Shape, len(st.Data), lo, hi, mean)
		total += len(st.Data)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d tensors, %d values\n", len(f.Tensors), total)
}

func stats(st serialization.StoredTensor) (lo, hi, mean float64) {
	if len(st.Data) == 0 {
		return 0, 0, 0
	}
	lo, hi = float64(st.Data[0]), float64(st.Data[0])
	var sum float64
	for _, v := range st.Data {
		f := float64(v)
		lo = min(lo, f)
		hi = max(hi, f)
		sum += f
	}
	return lo, hi, sum / float64(len(st.Data))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
