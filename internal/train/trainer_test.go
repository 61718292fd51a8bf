package train

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/nn"
	"github.com/born-ml/graft/internal/optim"
	"github.com/born-ml/graft/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.DiscardHandler)

func xorSamples(t *testing.T) []Sample {
	t.Helper()
	points := [][3]tensor.Scalar{{0, 0, 0}, {1, 0, 1}, {0, 1, 1}, {1, 1, 0}}
	samples := make([]Sample, len(points))
	for i, p := range points {
		x, err := tensor.FromSlice(p[:2], tensor.Shape{2}, 1)
		require.NoError(t, err)
		y, err := tensor.FromSlice(p[2:], tensor.Shape{1}, 1)
		require.NoError(t, err)
		samples[i] = Sample{Input: x, Label: y}
	}
	return samples
}

func xorBatch(t *testing.T) (*tensor.Tensor, *tensor.Tensor) {
	t.Helper()
	x, err := tensor.FromSlice([]tensor.Scalar{0, 0, 1, 0, 0, 1, 1, 1}, tensor.Shape{2}, 4)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]tensor.Scalar{0, 1, 1, 0}, tensor.Shape{1}, 4)
	require.NoError(t, err)
	return x, y
}

func newXORModel(seed int64) *graph.Pipeline {
	rng := rand.New(rand.NewSource(seed))
	return graph.NewPipeline("xor",
		nn.NewAffine(2, 8, rng),
		nn.NewTanh(),
		nn.NewAffine(8, 1, rng),
		nn.NewSigmoid(),
	)
}

func TestXORConvergence(t *testing.T) {
	model := newXORModel(42)
	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.05}))
	tr, err := New(model, nn.NewMSELoss(), opt, Config{Logger: quiet})
	require.NoError(t, err)

	x, y := xorBatch(t)
	losses := make([]float64, 0, 1500)
	for i := 0; i < 1500; i++ {
		loss, err := tr.Step(x, y)
		require.NoError(t, err)
		losses = append(losses, loss)
	}

	window := func(from int) float64 {
		var s float64
		for _, l := range losses[from : from+100] {
			s += l
		}
		return s / 100
	}
	assert.Less(t, window(200), window(0))
	assert.Less(t, losses[len(losses)-1], 0.05)

	pred, err := tr.Predict(x)
	require.NoError(t, err)
	assert.Nil(t, pred[0].Producer())
	for i, want := range y.Data() {
		got := tensor.Scalar(0)
		if pred[0].Data()[i] > 0.5 {
			got = 1
		}
		assert.Equal(t, want, got, "xor point %d", i)
	}
}

func TestXOR_SGDReducesLoss(t *testing.T) {
	opt := optim.New(optim.NewSGD(optim.SGDConfig{LR: 0.5}))
	tr, err := New(newXORModel(7), nn.NewMSELoss(), opt, Config{Logger: quiet})
	require.NoError(t, err)

	x, y := xorBatch(t)
	first, err := tr.Step(x, y)
	require.NoError(t, err)
	var last float64
	for i := 0; i < 300; i++ {
		last, err = tr.Step(x, y)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
}

// A batched step and a per-sample batch accumulate identical gradients.
func TestTrainBatch_MatchesBatchedStep(t *testing.T) {
	x, y := xorBatch(t)

	batched := newXORModel(3)
	optA := optim.New(optim.NewSGD(optim.SGDConfig{LR: 0.1}))
	trA, err := New(batched, nn.NewMSELoss(), optA, Config{Logger: quiet})
	require.NoError(t, err)
	_, err = trA.Step(x, y)
	require.NoError(t, err)

	perSample := newXORModel(3)
	optB := optim.New(optim.NewSGD(optim.SGDConfig{LR: 0.1}))
	trB, err := New(perSample, nn.NewMSELoss(), optB, Config{Logger: quiet})
	require.NoError(t, err)
	_, err = trB.TrainBatch(xorSamples(t))
	require.NoError(t, err)

	assertSameParameters(t, batched, perSample)
}

func TestTrainBatch_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := make([]Sample, 16)
	for i := range samples {
		x := tensor.Zeros(tensor.Shape{2}, 1)
		for j := range x.Data() {
			x.Data()[j] = tensor.Scalar(rng.Float64())
		}
		y := tensor.Full(tensor.Shape{1}, 1, tensor.Scalar(rng.Float64()))
		samples[i] = Sample{Input: x, Label: y}
	}

	train := func(workers int) *graph.Pipeline {
		model := newXORModel(5)
		opt := optim.New(optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9}))
		tr, err := New(model, nn.NewMSELoss(), opt, Config{Workers: workers, Logger: quiet})
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err := tr.TrainBatch(samples)
			require.NoError(t, err)
		}
		return model
	}

	assertSameParameters(t, train(1), train(4))
}

func assertSameParameters(t *testing.T, a, b *graph.Pipeline) {
	t.Helper()
	pa, pb := a.NamedParameters(), b.NamedParameters()
	require.Len(t, pb, len(pa))
	for i := range pa {
		assert.Equal(t, pa[i].Path, pb[i].Path)
		assert.InDeltaSlice(t, pa[i].Param.Data(), pb[i].Param.Data(), 1e-9, pa[i].Path)
	}
}

func TestTrainBatch_Errors(t *testing.T) {
	opt := optim.New(optim.NewSGD(optim.SGDConfig{}))
	tr, err := New(newXORModel(1), nn.NewMSELoss(), opt, Config{Workers: 2, Logger: quiet})
	require.NoError(t, err)

	_, err = tr.TrainBatch(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	bad := xorSamples(t)
	bad[2].Label = tensor.Zeros(tensor.Shape{3}, 1)
	_, err = tr.TrainBatch(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShape)
	assert.Contains(t, err.Error(), "sample 2")

	for _, p := range opt.Bound() {
		for _, g := range p.Grad() {
			assert.Zero(t, g, "a failed batch must not leak gradients into the next one")
		}
	}
}

func TestNew_RejectsStatefulParallel(t *testing.T) {
	model := graph.NewPipeline("rnn", nn.NewRecurrent(1, 4, rand.New(rand.NewSource(1))))
	_, err := New(model, nn.NewMSELoss(), optim.New(optim.NewSGD(optim.SGDConfig{})),
		Config{Workers: 2, Logger: quiet})
	assert.ErrorIs(t, err, ErrStatefulParallel)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(newXORModel(1), nn.NewMSELoss(), optim.New(optim.NewSGD(optim.SGDConfig{})),
		Config{BatchSize: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 1, cfg.Epochs)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.NotNil(t, cfg.Logger)
	assert.False(t, cfg.Shuffle)
	assert.True(t, DefaultConfig().Shuffle)
}

// Sequence Tests

func sequence(t *testing.T, values ...tensor.Scalar) []*tensor.Tensor {
	t.Helper()
	out := make([]*tensor.Tensor, len(values))
	for i, v := range values {
		out[i] = tensor.Full(tensor.Shape{1}, 1, v)
	}
	return out
}

func TestTrainSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	cell := nn.NewRecurrent(1, 8, rng)
	model := graph.NewPipeline("echo", cell, nn.NewAffine(8, 1, rng))
	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.02}))
	tr, err := New(model, nn.NewMSELoss(), opt, Config{Logger: quiet})
	require.NoError(t, err)

	// Target: the previous input.
	inputs := sequence(t, 1, 0, 0, 1, 1, 0)
	labels := sequence(t, 0, 1, 0, 0, 1, 1)

	first, err := tr.TrainSequence(inputs, labels)
	require.NoError(t, err)
	assert.Zero(t, cell.Pending())
	assert.Nil(t, cell.Hidden())

	var last float64
	for i := 0; i < 300; i++ {
		last, err = tr.TrainSequence(inputs, labels)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.Equal(t, 301, opt.Step())
}

func TestTrainSequence_Errors(t *testing.T) {
	cell := nn.NewRecurrent(1, 2, rand.New(rand.NewSource(1)))
	tr, err := New(cell, nn.NewMSELoss(), optim.New(optim.NewSGD(optim.SGDConfig{})), Config{Logger: quiet})
	require.NoError(t, err)

	_, err = tr.TrainSequence(sequence(t, 1, 2), sequence(t, 1))
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = tr.TrainSequence(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = tr.TrainSequence(sequence(t, 1), []*tensor.Tensor{tensor.Zeros(tensor.Shape{3}, 1)})
	assert.ErrorIs(t, err, tensor.ErrShape)
	assert.Zero(t, cell.Pending(), "state is reset even when a timestep fails")
}

// Fit Tests

func TestFit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.05}))
	tr, err := New(newXORModel(42), nn.NewMSELoss(), opt, Config{
		Epochs:    300,
		BatchSize: 4,
		Shuffle:   true,
		LogEvery:  100,
		Logger:    logger,
	})
	require.NoError(t, err)

	history, err := tr.Fit(context.Background(), xorSamples(t))
	require.NoError(t, err)

	require.Len(t, history.Epochs, 300)
	assert.Equal(t, 1, history.Epochs[0].Batches)
	assert.Less(t, history.Final(), history.Epochs[0].Loss)
	assert.Equal(t, 300, opt.Step())
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("epoch complete")))
	assert.Contains(t, buf.String(), "model=xor")
}

func TestFit_Cancelled(t *testing.T) {
	opt := optim.New(optim.NewSGD(optim.SGDConfig{}))
	tr, err := New(newXORModel(1), nn.NewMSELoss(), opt, Config{Epochs: 10, Logger: quiet})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history, err := tr.Fit(ctx, xorSamples(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, history.Epochs)
	assert.Zero(t, opt.Step())
}

func TestFit_EmptyDataset(t *testing.T) {
	tr, err := New(newXORModel(1), nn.NewMSELoss(), optim.New(optim.NewSGD(optim.SGDConfig{})), Config{Logger: quiet})
	require.NoError(t, err)

	_, err = tr.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestEvaluate_LeavesParametersAlone(t *testing.T) {
	model := newXORModel(1)
	opt := optim.New(optim.NewSGD(optim.SGDConfig{}))
	tr, err := New(model, nn.NewMSELoss(), opt, Config{Logger: quiet})
	require.NoError(t, err)

	loss, err := tr.Evaluate(xorSamples(t))
	require.NoError(t, err)
	assert.Greater(t, loss, 0.0)
	for _, p := range model.Parameters() {
		assert.Nil(t, p.Grad())
	}
}
