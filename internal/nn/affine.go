// Package nn implements the neural network nodes of the graft engine: layers,
// activations, structural nodes and losses.
package nn

import (
	"math/rand"

	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Affine implements a fully connected (dense) layer.
//
// Performs the transformation: y = x·W + b
// where:
//   - x is one input element with shape [in]
//   - W is the weight matrix with shape [in, out]
//   - b is the bias vector with shape [out]
//   - y is one output element with shape [out]
//
// The forward matrix product runs on the node's device (the host by default);
// backward arithmetic always runs on the host.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	layer := nn.NewAffine(784, 128, rng)
//	out, err := layer.Forward(x) // x: Shape{784}, any batch count
type Affine struct {
	in     int
	out    int
	weight *graph.Parameter // [in, out]
	bias   *graph.Parameter // [out]
	dev    device.Device
}

// NewAffine creates a new Affine layer.
//
// Weights are initialized using Xavier/Glorot uniform distribution drawn from rng.
// Biases are initialized to zeros.
func NewAffine(in, out int, rng *rand.Rand) *Affine {
	return &Affine{
		in:     in,
		out:    out,
		weight: graph.NewParameter("weight", Xavier(in, out, tensor.Shape{in, out}, rng)),
		bias:   graph.NewParameter("bias", Zeros(tensor.Shape{out})),
		dev:    device.Default(),
	}
}

// Name implements graph.Named.
func (a *Affine) Name() string {
	return "affine"
}

// SetDevice implements graph.Offloadable.
func (a *Affine) SetDevice(dev device.Device) {
	a.dev = dev
}

// Device returns the device running the forward product.
func (a *Affine) Device() device.Device {
	return a.dev
}

// Forward computes y = x·W + b for every batch element.
func (a *Affine) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := graph.SingleInput("affine.forward", inputs)
	if err != nil {
		return nil, err
	}
	y, err := a.apply(x)
	if err != nil {
		return nil, err
	}
	graph.Record(a, inputs, []*tensor.Tensor{y}, nil)
	return []*tensor.Tensor{y}, nil
}

func (a *Affine) apply(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(tensor.Shape{a.in}) {
		return nil, tensor.NewShapeError("affine.forward", tensor.Shape{a.in}, x.Shape())
	}
	batch := x.BatchCount()
	y := tensor.Zeros(tensor.Shape{a.out}, batch)
	if err := a.dev.MatMul(y.Data(), x.Data(), a.weight.Data(), batch, a.in, a.out); err != nil {
		return nil, err
	}
	bias := a.bias.Data()
	for b := 0; b < batch; b++ {
		row := y.Sample(b)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return y, nil
}

// Backward accumulates dW += xᵀ·dy, db += Σ dy and dx += dy·Wᵀ.
func (a *Affine) Backward(outputs ...*tensor.Tensor) error {
	call, err := graph.Consume(a, outputs)
	if err != nil {
		return err
	}
	x, y := call.Input(0), call.Output(0)
	dy := graph.OutputGrad(y)
	w := a.weight.Data()
	dw := a.weight.Tensor().EnsureGrad()
	db := a.bias.Tensor().EnsureGrad()

	for b := 0; b < x.BatchCount(); b++ {
		xs := x.Sample(b)
		dxs := x.GradSample(b)
		dys := dy[b*a.out : (b+1)*a.out]
		for j, g := range dys {
			db[j] += g
		}
		for i, xv := range xs {
			wi := w[i*a.out : (i+1)*a.out]
			dwi := dw[i*a.out : (i+1)*a.out]
			var acc tensor.Scalar
			for j, g := range dys {
				dwi[j] += xv * g
				acc += wi[j] * g
			}
			dxs[i] += acc
		}
	}
	return nil
}

// ResetState is a no-op: Affine keeps no per-call records.
func (a *Affine) ResetState() {}

// Parameters returns [weight, bias].
func (a *Affine) Parameters() []*graph.Parameter {
	return []*graph.Parameter{a.weight, a.bias}
}

// Weight returns the weight parameter.
func (a *Affine) Weight() *graph.Parameter {
	return a.weight
}

// Bias returns the bias parameter.
func (a *Affine) Bias() *graph.Parameter {
	return a.bias
}

// InFeatures returns the number of input features.
func (a *Affine) InFeatures() int {
	return a.in
}

// OutFeatures returns the number of output features.
func (a *Affine) OutFeatures() int {
	return a.out
}

// Fuse absorbs a following element-wise activation into a FusedAffine.
func (a *Affine) Fuse(next graph.Node) (graph.Node, bool) {
	act, ok := next.(*Activation)
	if !ok {
		return nil, false
	}
	return newFusedAffine(a, act.fn), true
}
