package nn

import (
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Reshape changes the per-element shape of its input without touching data.
//
// The target shape must hold the same number of values per batch element.
// Two adjacent Reshape nodes fuse into one.
type Reshape struct {
	shape tensor.Shape
}

// NewReshape creates a Reshape node with the given target shape.
func NewReshape(shape tensor.Shape) *Reshape {
	return &Reshape{shape: shape.Clone()}
}

// Name implements graph.Named.
func (r *Reshape) Name() string {
	return "reshape" + r.shape.String()
}

// Target returns the output shape.
func (r *Reshape) Target() tensor.Shape {
	return r.shape.Clone()
}

// Forward copies x into a tensor of the target shape.
func (r *Reshape) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := graph.SingleInput("reshape.forward", inputs)
	if err != nil {
		return nil, err
	}
	if x.SampleSize() != r.shape.NumElements() {
		return nil, tensor.NewShapeError("reshape.forward", r.shape, x.Shape())
	}
	y, err := tensor.FromSlice(x.Data(), r.shape, x.BatchCount())
	if err != nil {
		return nil, err
	}
	graph.Record(r, inputs, []*tensor.Tensor{y}, nil)
	return []*tensor.Tensor{y}, nil
}

// Backward accumulates dy into dx unchanged.
func (r *Reshape) Backward(outputs ...*tensor.Tensor) error {
	call, err := graph.Consume(r, outputs)
	if err != nil {
		return err
	}
	return call.Input(0).AccumulateGrad(graph.OutputGrad(call.Output(0)))
}

// ResetState is a no-op.
func (r *Reshape) ResetState() {}

// Fuse collapses two consecutive reshapes into the second one.
func (r *Reshape) Fuse(next graph.Node) (graph.Node, bool) {
	n, ok := next.(*Reshape)
	if !ok {
		return nil, false
	}
	return NewReshape(n.shape), true
}
