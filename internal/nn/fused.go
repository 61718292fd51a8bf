package nn

import (
	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// FusedAffine computes f(x·W + b) in a single node.
//
// It is produced by Affine.Fuse during Pipeline.Compress and holds its own
// copy of the weights, so training the original layer afterwards does not
// change the compressed model. FusedAffine is inference-only: Backward fails
// with graph.ErrInferenceOnly.
type FusedAffine struct {
	affine *Affine
	fn     ActivationFunc
}

func newFusedAffine(a *Affine, fn ActivationFunc) *FusedAffine {
	return &FusedAffine{
		affine: &Affine{
			in:     a.in,
			out:    a.out,
			weight: graph.NewParameter("weight", a.weight.Tensor().CloneWithoutGraph()),
			bias:   graph.NewParameter("bias", a.bias.Tensor().CloneWithoutGraph()),
			dev:    a.dev,
		},
		fn: fn,
	}
}

// Name implements graph.Named.
func (f *FusedAffine) Name() string {
	return "affine+" + f.fn.Name
}

// SetDevice implements graph.Offloadable.
func (f *FusedAffine) SetDevice(dev device.Device) {
	f.affine.dev = dev
}

// Forward computes f(x·W + b).
func (f *FusedAffine) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := graph.SingleInput("fused.forward", inputs)
	if err != nil {
		return nil, err
	}
	y, err := f.affine.apply(x)
	if err != nil {
		return nil, err
	}
	data := y.Data()
	for i, v := range data {
		data[i] = f.fn.F(v)
	}
	graph.Record(f, inputs, []*tensor.Tensor{y}, nil)
	return []*tensor.Tensor{y}, nil
}

// Backward releases the forward call and reports graph.ErrInferenceOnly.
func (f *FusedAffine) Backward(outputs ...*tensor.Tensor) error {
	if _, err := graph.Consume(f, outputs); err != nil {
		return err
	}
	return graph.ErrInferenceOnly
}

// ResetState is a no-op.
func (f *FusedAffine) ResetState() {}
