// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/born-ml/graft/internal/optim"

// Optimizer applies a Rule to every parameter it is bound to.
type Optimizer = optim.Optimizer

// Rule is an update formula.
type Rule = optim.Rule

// Update is the input of a single rule application for one parameter.
type Update = optim.Update

// New creates an optimizer using rule. Call SetUp before Update.
func New(rule Rule) *Optimizer {
	return optim.New(rule)
}

// SGD (Stochastic Gradient Descent)

// SGD is plain or momentum gradient descent.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD rule.
//
// Example:
//
//	opt := optim.New(optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	}))
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam is the Adam rule.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam rule with bias correction.
//
// Example:
//
//	opt := optim.New(optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	}))
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// AdaGrad and RMSProp

// AdaGrad is the AdaGrad rule.
type AdaGrad = optim.AdaGrad

// AdaGradConfig contains configuration for AdaGrad.
type AdaGradConfig = optim.AdaGradConfig

// NewAdaGrad creates an AdaGrad rule.
func NewAdaGrad(config AdaGradConfig) *AdaGrad {
	return optim.NewAdaGrad(config)
}

// RMSProp is the RMSProp rule.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for RMSProp.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates an RMSProp rule.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(config)
}
