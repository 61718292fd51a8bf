// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs forward, loss, backward and update cycles on graft models.
//
// # Basic Usage
//
//	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.05}))
//	trainer, err := train.New(model, nn.NewMSELoss(), opt, train.Config{
//	    Epochs:    500,
//	    BatchSize: 4,
//	    Workers:   4,
//	})
//	if err != nil {
//	    return err
//	}
//	history, err := trainer.Fit(ctx, samples)
//
// With Workers > 1 the per-sample forward passes of a batch run concurrently
// and backward passes are serialized. Stateful models must train with one
// worker.
package train

import (
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/optim"
	"github.com/born-ml/graft/internal/train"
)

// Trainer drives one model, loss and optimizer.
type Trainer = train.Trainer

// Config controls a Trainer.
type Config = train.Config

// Sample is one training example.
type Sample = train.Sample

// EpochStats summarizes one epoch of Fit.
type EpochStats = train.EpochStats

// History collects the epochs of one Fit call.
type History = train.History

// Errors returned by Trainer.
var (
	ErrInvalidConfig    = train.ErrInvalidConfig
	ErrStatefulParallel = train.ErrStatefulParallel
	ErrEmptyDataset     = train.ErrEmptyDataset
	ErrLengthMismatch   = train.ErrLengthMismatch
)

// DefaultConfig returns a sequential single-epoch configuration.
func DefaultConfig() Config {
	return train.DefaultConfig()
}

// New creates a trainer and binds opt to the model's parameters.
func New(model graph.Node, loss graph.Loss, opt *optim.Optimizer, cfg Config) (*Trainer, error) {
	return train.New(model, loss, opt, cfg)
}
