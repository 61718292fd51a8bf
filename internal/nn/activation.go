package nn

import (
	"math"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// ActivationFunc is an element-wise function together with its derivative.
type ActivationFunc struct {
	Name string

	// F computes y = f(x).
	F func(x tensor.Scalar) tensor.Scalar

	// Deriv computes dy/dx from the input x and the output y = f(x).
	Deriv func(x, y tensor.Scalar) tensor.Scalar
}

// Built-in activation functions.
var (
	// SigmoidFunc is σ(x) = 1 / (1 + exp(-x)), σ'(x) = σ(x)·(1 - σ(x)).
	SigmoidFunc = ActivationFunc{
		Name: "sigmoid",
		F: func(x tensor.Scalar) tensor.Scalar {
			return tensor.Scalar(1.0 / (1.0 + math.Exp(-float64(x))))
		},
		Deriv: func(_, y tensor.Scalar) tensor.Scalar { return y * (1 - y) },
	}

	// TanhFunc is tanh(x), tanh'(x) = 1 - tanh²(x).
	TanhFunc = ActivationFunc{
		Name:  "tanh",
		F:     func(x tensor.Scalar) tensor.Scalar { return tensor.Scalar(math.Tanh(float64(x))) },
		Deriv: func(_, y tensor.Scalar) tensor.Scalar { return 1 - y*y },
	}

	// ReLUFunc is max(0, x). The derivative at 0 is taken as 0.
	ReLUFunc = ActivationFunc{
		Name: "relu",
		F: func(x tensor.Scalar) tensor.Scalar {
			if x > 0 {
				return x
			}
			return 0
		},
		Deriv: func(x, _ tensor.Scalar) tensor.Scalar {
			if x > 0 {
				return 1
			}
			return 0
		},
	}

	// IdentityFunc passes values through unchanged.
	IdentityFunc = ActivationFunc{
		Name:  "identity",
		F:     func(x tensor.Scalar) tensor.Scalar { return x },
		Deriv: func(_, _ tensor.Scalar) tensor.Scalar { return 1 },
	}
)

// Activation applies an element-wise function to its single input.
//
// The output has the input's shape and batch count. Activation has no
// trainable parameters.
//
// Example:
//
//	tanh := nn.NewTanh()
//	out, err := tanh.Forward(x)
type Activation struct {
	fn ActivationFunc
}

// NewActivation creates an activation node from fn.
func NewActivation(fn ActivationFunc) *Activation {
	return &Activation{fn: fn}
}

// NewSigmoid creates a Sigmoid activation node.
func NewSigmoid() *Activation { return NewActivation(SigmoidFunc) }

// NewTanh creates a Tanh activation node.
func NewTanh() *Activation { return NewActivation(TanhFunc) }

// NewReLU creates a ReLU activation node.
func NewReLU() *Activation { return NewActivation(ReLUFunc) }

// NewIdentity creates an Identity activation node.
func NewIdentity() *Activation { return NewActivation(IdentityFunc) }

// Name implements graph.Named.
func (a *Activation) Name() string {
	return a.fn.Name
}

// Func returns the element-wise function applied by a.
func (a *Activation) Func() ActivationFunc {
	return a.fn
}

// Forward applies f element-wise.
func (a *Activation) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := graph.SingleInput(a.fn.Name+".forward", inputs)
	if err != nil {
		return nil, err
	}
	y := tensor.Like(x)
	dst := y.Data()
	for i, v := range x.Data() {
		dst[i] = a.fn.F(v)
	}
	graph.Record(a, inputs, []*tensor.Tensor{y}, nil)
	return []*tensor.Tensor{y}, nil
}

// Backward accumulates dx += f'(x)·dy.
func (a *Activation) Backward(outputs ...*tensor.Tensor) error {
	call, err := graph.Consume(a, outputs)
	if err != nil {
		return err
	}
	x, y := call.Input(0), call.Output(0)
	dy := graph.OutputGrad(y)
	dx := x.EnsureGrad()
	xs, ys := x.Data(), y.Data()
	for i, g := range dy {
		dx[i] += a.fn.Deriv(xs[i], ys[i]) * g
	}
	return nil
}

// ResetState is a no-op.
func (a *Activation) ResetState() {}
