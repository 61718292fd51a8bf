package optim

import (
	"math"

	"github.com/born-ml/graft/internal/tensor"
)

// AdaGrad scales each parameter's step by the root of its summed squared
// gradients:
//
//	G = G + gradient²
//	param = param - lr * gradient / (sqrt(G) + eps)
type AdaGrad struct {
	lr  float64
	eps float64
}

// AdaGradConfig holds configuration for AdaGrad.
type AdaGradConfig struct {
	LR  float64 // Learning rate (default: 0.01)
	Eps float64 // Term for numerical stability (default: 1e-10)
}

// NewAdaGrad creates a new AdaGrad rule.
func NewAdaGrad(config AdaGradConfig) *AdaGrad {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Eps == 0 {
		config.Eps = 1e-10
	}
	return &AdaGrad{lr: config.LR, eps: config.Eps}
}

// Name implements Rule.
func (a *AdaGrad) Name() string { return "adagrad" }

// Slots implements Rule.
func (a *AdaGrad) Slots() int { return 1 }

// Apply implements Rule.
func (a *AdaGrad) Apply(u Update) {
	sum := u.Slots[0]
	for i, g := range u.Grad {
		sum[i] += g * g
		u.Data[i] -= tensor.Scalar(a.lr * float64(g) / (math.Sqrt(float64(sum[i])) + a.eps))
	}
}

// LR returns the current learning rate.
func (a *AdaGrad) LR() float64 { return a.lr }

// SetLR updates the learning rate.
func (a *AdaGrad) SetLR(lr float64) { a.lr = lr }

// RMSProp divides the step by a moving average of squared gradients:
//
//	E = decay * E + (1-decay) * gradient²
//	param = param - lr * gradient / (sqrt(E) + eps)
type RMSProp struct {
	lr    float64
	decay float64
	eps   float64
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR    float64 // Learning rate (default: 0.001)
	Decay float64 // Moving average coefficient (default: 0.9)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

// NewRMSProp creates a new RMSProp rule.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Decay == 0 {
		config.Decay = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSProp{lr: config.LR, decay: config.Decay, eps: config.Eps}
}

// Name implements Rule.
func (r *RMSProp) Name() string { return "rmsprop" }

// Slots implements Rule.
func (r *RMSProp) Slots() int { return 1 }

// Apply implements Rule.
func (r *RMSProp) Apply(u Update) {
	avg := u.Slots[0]
	for i, g := range u.Grad {
		gf := float64(g)
		e := r.decay*float64(avg[i]) + (1-r.decay)*gf*gf
		avg[i] = tensor.Scalar(e)
		u.Data[i] -= tensor.Scalar(r.lr * gf / (math.Sqrt(e) + r.eps))
	}
}

// LR returns the current learning rate.
func (r *RMSProp) LR() float64 { return r.lr }

// SetLR updates the learning rate.
func (r *RMSProp) SetLR(lr float64) { r.lr = lr }
