// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/graft/internal/nn"
	"github.com/born-ml/graft/tensor"
)

// Layers

// Affine computes y = x·W + b for samples of shape [in].
type Affine = nn.Affine

// NewAffine creates an affine layer with Xavier-initialized weights drawn from rng.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	layer := nn.NewAffine(784, 128, rng)
func NewAffine(in, out int, rng *rand.Rand) *Affine {
	return nn.NewAffine(in, out, rng)
}

// FusedAffine is an inference-only affine layer followed by an activation.
type FusedAffine = nn.FusedAffine

// Recurrent is an Elman cell carrying its hidden state across Forward calls.
type Recurrent = nn.Recurrent

// NewRecurrent creates a recurrent cell with input size in and hidden size hidden.
func NewRecurrent(in, hidden int, rng *rand.Rand) *Recurrent {
	return nn.NewRecurrent(in, hidden, rng)
}

// Activations

// ActivationFunc is an element-wise function with its derivative.
type ActivationFunc = nn.ActivationFunc

// Activation applies an ActivationFunc element-wise.
type Activation = nn.Activation

// Built-in activation functions.
var (
	SigmoidFunc  = nn.SigmoidFunc
	TanhFunc     = nn.TanhFunc
	ReLUFunc     = nn.ReLUFunc
	IdentityFunc = nn.IdentityFunc
)

// NewActivation creates an activation node for fn.
func NewActivation(fn ActivationFunc) *Activation {
	return nn.NewActivation(fn)
}

// NewSigmoid creates a sigmoid activation.
func NewSigmoid() *Activation {
	return nn.NewSigmoid()
}

// NewTanh creates a tanh activation.
func NewTanh() *Activation {
	return nn.NewTanh()
}

// NewReLU creates a ReLU activation.
func NewReLU() *Activation {
	return nn.NewReLU()
}

// NewIdentity creates an identity activation.
func NewIdentity() *Activation {
	return nn.NewIdentity()
}

// Structural nodes

// Add sums two equally shaped inputs.
type Add = nn.Add

// NewAdd creates an Add node.
func NewAdd() *Add {
	return nn.NewAdd()
}

// Reshape changes the sample shape without touching data.
type Reshape = nn.Reshape

// NewReshape creates a node reshaping samples to shape.
func NewReshape(shape tensor.Shape) *Reshape {
	return nn.NewReshape(shape)
}

// Loss functions

// MSELoss is the mean squared error per batch element.
type MSELoss = nn.MSELoss

// NewMSELoss creates a mean squared error loss.
func NewMSELoss() *MSELoss {
	return nn.NewMSELoss()
}

// SoftmaxCrossEntropyLoss is softmax followed by cross-entropy, per batch element.
type SoftmaxCrossEntropyLoss = nn.SoftmaxCrossEntropyLoss

// NewSoftmaxCrossEntropyLoss creates a softmax cross-entropy loss.
func NewSoftmaxCrossEntropyLoss() *SoftmaxCrossEntropyLoss {
	return nn.NewSoftmaxCrossEntropyLoss()
}

// Softmax returns the per-sample softmax of logits as a detached tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	return nn.Softmax(logits)
}

// Initialization

// Xavier returns a tensor of shape drawn from U(-a, a), a = sqrt(6/(fanIn+fanOut)).
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	return nn.Xavier(fanIn, fanOut, shape, rng)
}

// Zeros returns a zero tensor of shape.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return nn.Zeros(shape)
}
