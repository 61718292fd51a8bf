// Package train orchestrates forward, loss, backward and update cycles on
// top of the graph engine.
//
// The engine itself is synchronous and single-threaded. Trainer adds the
// optional batch-parallel mode: per-sample forward passes run on several
// goroutines while every backward pass, and therefore every accumulation into
// shared parameter gradients, is serialized under one lock that is released
// before the optimizer update.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/optim"
	"github.com/born-ml/graft/internal/parallel"
	"github.com/born-ml/graft/internal/tensor"
)

// Sample is one training example.
type Sample struct {
	Input *tensor.Tensor
	Label *tensor.Tensor
}

// EpochStats summarizes one epoch of Fit.
type EpochStats struct {
	Epoch    int
	Loss     float64 // mean batch loss
	Batches  int
	Duration time.Duration
}

// History is the per-epoch record returned by Fit.
type History struct {
	Epochs []EpochStats
}

// Final returns the last epoch's mean loss, or 0 for an empty history.
func (h History) Final() float64 {
	if len(h.Epochs) == 0 {
		return 0
	}
	return h.Epochs[len(h.Epochs)-1].Loss
}

// Trainer drives a model, a loss and an optimizer.
//
// Example:
//
//	opt := optim.New(optim.NewSGD(optim.SGDConfig{LR: 0.5}))
//	tr, err := train.New(model, nn.NewMSELoss(), opt, train.Config{Epochs: 500, BatchSize: 4})
//	history, err := tr.Fit(ctx, samples)
type Trainer struct {
	model graph.Node
	loss  graph.Loss
	opt   *optim.Optimizer
	cfg   Config
	log   *slog.Logger

	mu sync.Mutex // serializes backward passes in batch-parallel mode
}

// New creates a trainer and binds opt to the model's parameters.
func New(model graph.Node, loss graph.Loss, opt *optim.Optimizer, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.Workers > 1 && graph.IsStateful(model) {
		return nil, fmt.Errorf("%d workers: %w", cfg.Workers, ErrStatefulParallel)
	}

	opt.SetUp(model)
	return &Trainer{
		model: model,
		loss:  loss,
		opt:   opt,
		cfg:   cfg,
		log:   cfg.Logger.With("model", graph.NameOf(model)),
	}, nil
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Optimizer returns the bound optimizer.
func (t *Trainer) Optimizer() *optim.Optimizer {
	return t.opt
}

// Step runs forward, loss, backward and one optimizer update for a single
// (possibly batched) input. It returns the mean loss.
func (t *Trainer) Step(input, label *tensor.Tensor) (float64, error) {
	loss, err := t.Accumulate(input, label)
	if err != nil {
		return 0, err
	}
	t.opt.Update()
	return loss, nil
}

// Accumulate runs forward, loss and backward without updating, so gradients
// of several calls add up before the next Update.
func (t *Trainer) Accumulate(input, label *tensor.Tensor) (float64, error) {
	pred, loss, err := t.forward(input, label)
	if err != nil {
		return 0, err
	}
	if err := graph.Backward(pred); err != nil {
		return 0, fmt.Errorf("backward: %w", err)
	}
	return loss, nil
}

func (t *Trainer) forward(input, label *tensor.Tensor) (*tensor.Tensor, float64, error) {
	out, err := t.model.Forward(input)
	if err != nil {
		return nil, 0, fmt.Errorf("forward: %w", err)
	}
	if len(out) != 1 {
		return nil, 0, fmt.Errorf("forward: %w", graph.ArityError("train", 1, len(out)))
	}
	values, err := t.loss.Evaluate(out[0], label)
	if err != nil {
		return nil, 0, fmt.Errorf("loss: %w", err)
	}
	return out[0], graph.Mean(values), nil
}

// TrainBatch accumulates gradients of every sample, then updates once.
// It returns the mean loss over the samples.
//
// With Workers > 1 the per-sample forward passes run concurrently and the
// backward passes are serialized.
func (t *Trainer) TrainBatch(samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyDataset
	}

	losses := make([]float64, len(samples))
	err := parallel.ForErr(len(samples), func(i int) error {
		pred, loss, err := t.forward(samples[i].Input, samples[i].Label)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := graph.Backward(pred); err != nil {
			return fmt.Errorf("sample %d: backward: %w", i, err)
		}
		losses[i] = loss
		return nil
	}, parallel.Workers(t.cfg.Workers))
	if err != nil {
		t.opt.ZeroGrad()
		return 0, err
	}

	t.opt.Update()
	var sum float64
	for _, l := range losses {
		sum += l
	}
	return sum / float64(len(losses)), nil
}

// TrainSequence trains a stateful model on one sequence: it resets the model,
// feeds every timestep, evaluates each timestep's loss, runs one backward pass
// over all timesteps, updates once and resets the model again.
//
// It returns the mean loss over the timesteps.
func (t *Trainer) TrainSequence(inputs, labels []*tensor.Tensor) (float64, error) {
	if len(inputs) != len(labels) {
		return 0, fmt.Errorf("%d inputs, %d labels: %w", len(inputs), len(labels), ErrLengthMismatch)
	}
	if len(inputs) == 0 {
		return 0, ErrEmptyDataset
	}

	t.model.ResetState()
	defer t.model.ResetState()

	preds := make([]*tensor.Tensor, len(inputs))
	var sum float64
	for i := range inputs {
		pred, loss, err := t.forward(inputs[i], labels[i])
		if err != nil {
			return 0, fmt.Errorf("timestep %d: %w", i, err)
		}
		preds[i] = pred
		sum += loss
	}

	if err := graph.Backward(preds...); err != nil {
		t.opt.ZeroGrad()
		return 0, fmt.Errorf("sequence backward: %w", err)
	}

	t.opt.Update()
	return sum / float64(len(inputs)), nil
}

// Fit trains for cfg.Epochs epochs of cfg.BatchSize batches.
//
// ctx is checked between batches; cancellation returns the history so far
// together with ctx's error.
func (t *Trainer) Fit(ctx context.Context, samples []Sample) (History, error) {
	var history History
	if len(samples) == 0 {
		return history, ErrEmptyDataset
	}

	//nolint:gosec // Shuffling training data is not security-critical
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	batch := make([]Sample, 0, t.cfg.BatchSize)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		if t.cfg.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		stats := EpochStats{Epoch: epoch}
		var total float64
		for lo := 0; lo < len(order); lo += t.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			hi := min(lo+t.cfg.BatchSize, len(order))
			batch = batch[:0]
			for _, idx := range order[lo:hi] {
				batch = append(batch, samples[idx])
			}

			loss, err := t.TrainBatch(batch)
			if err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			total += loss
			stats.Batches++
		}
		stats.Loss = total / float64(stats.Batches)
		stats.Duration = time.Since(start)
		history.Epochs = append(history.Epochs, stats)

		if t.cfg.LogEvery > 0 && (epoch%t.cfg.LogEvery == 0 || epoch == t.cfg.Epochs) {
			t.log.Info("epoch complete",
				"epoch", epoch,
				"loss", stats.Loss,
				"batches", stats.Batches,
				"step", t.opt.Step(),
				"duration", stats.Duration)
		}
	}

	t.log.Debug("training finished", "epochs", t.cfg.Epochs, "final_loss", history.Final())
	return history, nil
}

// Evaluate returns the mean loss over samples without touching parameters
// or their gradients.
func (t *Trainer) Evaluate(samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyDataset
	}
	var sum float64
	for i, s := range samples {
		_, loss, err := t.forward(s.Input, s.Label)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		sum += loss
	}
	return sum / float64(len(samples)), nil
}

// Predict runs a forward pass and returns snapshots of the outputs that hold
// no reference to the graph. Stateful models keep the timestep recorded by
// this call until ResetState.
func (t *Trainer) Predict(input *tensor.Tensor) ([]*tensor.Tensor, error) {
	out, err := t.model.Forward(input)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	snapshots := make([]*tensor.Tensor, len(out))
	for i, o := range out {
		snapshots[i] = o.CloneWithoutGraph()
	}
	return snapshots, nil
}
