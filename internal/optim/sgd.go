package optim

import "github.com/born-ml/graft/internal/tensor"

// SGD implements Stochastic Gradient Descent with optional momentum,
// Nesterov momentum and L2 weight decay.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// With Nesterov the step uses gradient + momentum * velocity instead of
// velocity. Weight decay adds weightDecay * param to the gradient first.
//
// Example:
//
//	opt := optim.New(optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	}))
type SGD struct {
	lr          float64
	momentum    float64
	nesterov    bool
	weightDecay float64
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR          float64 // Learning rate (default: 0.01)
	Momentum    float64 // Momentum factor (default: 0.0, range: [0, 1))
	Nesterov    bool    // Use Nesterov momentum (requires Momentum > 0)
	WeightDecay float64 // L2 penalty (default: 0.0)
}

// NewSGD creates a new SGD rule.
func NewSGD(config SGDConfig) *SGD {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		lr:          config.LR,
		momentum:    config.Momentum,
		nesterov:    config.Nesterov && config.Momentum > 0,
		weightDecay: config.WeightDecay,
	}
}

// Name implements Rule.
func (s *SGD) Name() string {
	return "sgd"
}

// Slots implements Rule: one velocity buffer when momentum is enabled.
func (s *SGD) Slots() int {
	if s.momentum == 0 {
		return 0
	}
	return 1
}

// Apply implements Rule.
func (s *SGD) Apply(u Update) {
	lr := tensor.Scalar(s.lr)
	mu := tensor.Scalar(s.momentum)
	wd := tensor.Scalar(s.weightDecay)

	for i, g := range u.Grad {
		if wd != 0 {
			g += wd * u.Data[i]
		}
		if mu == 0 {
			u.Data[i] -= lr * g
			continue
		}

		v := u.Slots[0]
		v[i] = mu*v[i] + g
		if s.nesterov {
			u.Data[i] -= lr * (g + mu*v[i])
		} else {
			u.Data[i] -= lr * v[i]
		}
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
