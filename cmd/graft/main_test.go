package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out, io.Discard))
	assert.True(t, strings.HasPrefix(out.String(), "graft "+version))
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, &out, io.Discard))
	assert.Contains(t, out.String(), "inspect")

	err := run([]string{"serve"}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, `unknown command "serve"`)
}

func TestRun_Devices(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"devices"}, &out, io.Discard))
	assert.Contains(t, out.String(), "host:")
}

func TestXOR_SaveAndInspect(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "xor.graft")
	snap := filepath.Join(dir, "xor.pb")

	var out, logs bytes.Buffer
	err := run([]string{"xor", "-epochs", "20", "-dtype", "float32", "-save", model, "-snapshot", snap}, &out, &logs)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "final loss:")
	assert.Equal(t, 5, strings.Count(out.String(), "\n"))
	assert.Contains(t, logs.String(), "saved model")

	out.Reset()
	require.NoError(t, run([]string{"inspect", model}, &out, io.Discard))
	assert.Contains(t, out.String(), "model:   xor")
	assert.Contains(t, out.String(), "dtype:   float32")
	assert.Contains(t, out.String(), "epochs=20")
	assert.Contains(t, out.String(), "0.weight")
	assert.Contains(t, out.String(), "4 tensors, 33 values")

	out.Reset()
	require.NoError(t, run([]string{"inspect", "-snapshot", snap}, &out, io.Discard))
	assert.Contains(t, out.String(), "4 tensors, 33 values")
}

func TestXOR_Converges(t *testing.T) {
	var out bytes.Buffer
	opts := xorOptions{epochs: 800, hidden: 8, lr: 0.05, optimizer: "adam", workers: 2, seed: 1, logEvery: -1, dtype: "float64"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, trainXOR(context.Background(), opts, &out, logger))
	assert.Contains(t, out.String(), "(adam)")
}

func TestXOR_UnknownOptimizer(t *testing.T) {
	err := run([]string{"xor", "-optimizer", "lbfgs"}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, "lbfgs")
}

func TestNewRule(t *testing.T) {
	for _, name := range []string{"sgd", "momentum", "adagrad", "rmsprop", "adam"} {
		rule, err := newRule(name, 0.1)
		require.NoError(t, err, name)
		assert.InDelta(t, 0.1, rule.LR(), 1e-12, name)
	}
}

func TestInspect_Errors(t *testing.T) {
	assert.Error(t, run([]string{"inspect"}, io.Discard, io.Discard))
	assert.Error(t, run([]string{"inspect", filepath.Join(t.TempDir(), "missing.graft")}, io.Discard, io.Discard))
}
