// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the pluggable nodes of the graft engine.
//
// # Overview
//
// This package contains:
//   - Layers: Affine (fully connected), Recurrent (Elman cell)
//   - Activations: Sigmoid, Tanh, ReLU, Identity
//   - Structural nodes: Add, Reshape
//   - Loss functions: MSELoss, SoftmaxCrossEntropyLoss
//   - Initialization: Xavier, Zeros
//
// Every node satisfies graph.Node; none is special to the engine.
//
// # Basic Usage
//
//	rng := rand.New(rand.NewSource(1))
//	model := graph.NewPipeline("mlp",
//	    nn.NewAffine(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewAffine(128, 10, rng),
//	)
//	out, err := model.Forward(x)
//
// # Loss Functions
//
// Losses return one value per batch element and accumulate the gradient of
// their sum into the prediction:
//
//	loss, err := nn.NewSoftmaxCrossEntropyLoss().Evaluate(out[0], labels)
//	err = graph.Backward(out[0])
//
// # Inference
//
// Pipeline.Compress fuses each Affine with a following activation into a
// FusedAffine. Fused nodes reject Backward.
package nn
