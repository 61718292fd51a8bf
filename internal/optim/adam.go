package optim

import (
	"math"

	"github.com/born-ml/graft/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// t is the optimizer's global step.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam rule.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) *Adam {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Name implements Rule.
func (a *Adam) Name() string {
	return "adam"
}

// Slots implements Rule: first and second moment.
func (a *Adam) Slots() int {
	return 2
}

// Apply implements Rule.
func (a *Adam) Apply(u Update) {
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(u.Step))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(u.Step))
	m, v := u.Slots[0], u.Slots[1]

	for i, g := range u.Grad {
		gf := float64(g)
		mi := a.beta1*float64(m[i]) + (1.0-a.beta1)*gf
		vi := a.beta2*float64(v[i]) + (1.0-a.beta2)*gf*gf
		m[i], v[i] = tensor.Scalar(mi), tensor.Scalar(vi)

		mHat := mi / biasCorrection1
		vHat := vi / biasCorrection2
		u.Data[i] -= tensor.Scalar(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}
