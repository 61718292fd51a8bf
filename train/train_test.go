// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/born-ml/graft/graph"
	"github.com/born-ml/graft/nn"
	"github.com/born-ml/graft/optim"
	"github.com/born-ml/graft/serialization"
	"github.com/born-ml/graft/tensor"
	"github.com/born-ml/graft/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xorModel(seed int64) *graph.Pipeline {
	rng := rand.New(rand.NewSource(seed))
	return graph.NewPipeline("xor",
		nn.NewAffine(2, 8, rng),
		nn.NewTanh(),
		nn.NewAffine(8, 1, rng),
		nn.NewSigmoid(),
	)
}

func xorSamples(t *testing.T) []train.Sample {
	t.Helper()
	var samples []train.Sample
	for _, row := range [][3]tensor.Scalar{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 0}} {
		x, err := tensor.FromSlice(row[:2], tensor.Shape{2}, 1)
		require.NoError(t, err)
		y, err := tensor.FromSlice(row[2:], tensor.Shape{1}, 1)
		require.NoError(t, err)
		samples = append(samples, train.Sample{Input: x, Label: y})
	}
	return samples
}

// TestEndToEnd trains XOR through the public packages, saves the model and
// restores it into a fresh one.
func TestEndToEnd(t *testing.T) {
	model := xorModel(7)
	samples := xorSamples(t)

	trainer, err := train.New(model, nn.NewMSELoss(), optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.05})), train.Config{
		Epochs:    600,
		BatchSize: 4,
		Workers:   2,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	history, err := trainer.Fit(context.Background(), samples)
	require.NoError(t, err)
	require.Len(t, history.Epochs, 600)
	assert.Less(t, history.Final(), history.Epochs[0].Loss)

	path := filepath.Join(t.TempDir(), "xor.graft")
	require.NoError(t, serialization.SaveFile(path, model.NamedParameters(), serialization.WriteOptions{Model: "xor"}))

	f, err := serialization.LoadFile(path)
	require.NoError(t, err)
	fresh := xorModel(99)
	require.NoError(t, serialization.Restore(f, fresh.NamedParameters(), serialization.ByName))

	for _, s := range samples {
		want, err := trainer.Predict(s.Input)
		require.NoError(t, err)
		got, err := fresh.Forward(s.Input)
		require.NoError(t, err)
		assert.Equal(t, want[0].Data(), got[0].Data())
	}
}

func TestNew_StatefulParallel(t *testing.T) {
	model := graph.NewPipeline("rnn", nn.NewRecurrent(1, 2, rand.New(rand.NewSource(1))))
	_, err := train.New(model, nn.NewMSELoss(), optim.New(optim.NewSGD(optim.SGDConfig{})), train.Config{Workers: 4})
	assert.ErrorIs(t, err, train.ErrStatefulParallel)
}
