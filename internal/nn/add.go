package nn

import (
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Add sums two tensors of equal shape and batch count element-wise.
//
// Both inputs may be the same tensor; its gradient then receives dy twice.
type Add struct{}

// NewAdd creates an Add node.
func NewAdd() *Add {
	return &Add{}
}

// Name implements graph.Named.
func (a *Add) Name() string {
	return "add"
}

// Forward computes y = lhs + rhs.
func (a *Add) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 2 || inputs[0] == nil || inputs[1] == nil {
		return nil, graph.ArityError("add.forward", 2, len(inputs))
	}
	lhs, rhs := inputs[0], inputs[1]
	if !lhs.Shape().Equal(rhs.Shape()) {
		return nil, tensor.NewShapeError("add.forward", lhs.Shape(), rhs.Shape())
	}
	if lhs.BatchCount() != rhs.BatchCount() {
		return nil, tensor.NewShapeError("add.forward batch",
			tensor.Shape{lhs.BatchCount()}, tensor.Shape{rhs.BatchCount()})
	}

	y := tensor.Like(lhs)
	dst := y.Data()
	r := rhs.Data()
	for i, v := range lhs.Data() {
		dst[i] = v + r[i]
	}
	graph.Record(a, inputs, []*tensor.Tensor{y}, nil)
	return []*tensor.Tensor{y}, nil
}

// Backward accumulates dy into both inputs.
func (a *Add) Backward(outputs ...*tensor.Tensor) error {
	call, err := graph.Consume(a, outputs)
	if err != nil {
		return err
	}
	dy := graph.OutputGrad(call.Output(0))
	for _, in := range call.Inputs() {
		dx := in.EnsureGrad()
		for i, g := range dy {
			dx[i] += g
		}
	}
	return nil
}

// ResetState is a no-op.
func (a *Add) ResetState() {}
