// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training graft models.
//
// # Overview
//
// An Optimizer binds to the parameters of one or more nodes, keeps their
// auxiliary state keyed by parameter identity and applies a Rule:
//   - SGD: Stochastic Gradient Descent with momentum, Nesterov and weight decay
//   - AdaGrad: per-parameter learning rates from accumulated squared gradients
//   - RMSProp: AdaGrad with an exponentially decaying average
//   - Adam: Adaptive Moment Estimation with bias correction
//
// # Basic Usage
//
//	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.01}))
//	opt.SetUp(model)
//
//	for range steps {
//	    out, _ := model.Forward(x)
//	    _, _ = loss.Evaluate(out[0], y)
//	    _ = graph.Backward(out[0])
//	    opt.Update()
//	}
//
// Parameters whose gradient is nil or all zeros are skipped, so an Update
// after ZeroGrad changes nothing.
package optim
