package graph

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/born-ml/graft/internal/tensor"
)

// callSeq orders calls by creation so that backward can replay them in exact
// reverse order of their forward calls.
var callSeq atomic.Uint64

// Call is one forward invocation of a node: the producer link it leaves on
// every output tensor. A Call holds references to its inputs and outputs only
// until Consume runs; after that the outputs no longer point back at it.
type Call struct {
	node     Node
	inputs   []*tensor.Tensor
	outputs  []*tensor.Tensor
	wrapped  []*tensor.Tensor // every tensor carrying this call as a link
	deps     []*tensor.Tensor // earlier outputs this call read through node state
	ctx      any
	seq      uint64
	consumed bool
}

// Record registers a forward call of node and links each output back to it.
// ctx is node-private data its Backward will need (may be nil).
func Record(node Node, inputs, outputs []*tensor.Tensor, ctx any) *Call {
	c := &Call{
		node:    node,
		inputs:  inputs,
		outputs: outputs,
		ctx:     ctx,
		seq:     callSeq.Add(1),
	}
	c.Wrap(outputs...)
	return c
}

// Wrap pushes this call as the outermost link of additional tensors.
// Composites use it to claim their children's intermediate outputs so a
// backward pass may start from any of them.
func (c *Call) Wrap(ts ...*tensor.Tensor) {
	for _, t := range ts {
		t.PushLink(c)
		c.wrapped = append(c.wrapped, t)
	}
}

// DependOn records that this call read ts through its node's state rather
// than through its inputs, e.g. the previous hidden state of a recurrent cell.
// Backward treats ts like inputs: their producers run after this call, and
// whatever gradient this call leaves on ts reaches them.
func (c *Call) DependOn(ts ...*tensor.Tensor) {
	for _, t := range ts {
		if t != nil && !slices.Contains(c.deps, t) {
			c.deps = append(c.deps, t)
		}
	}
}

// Deps returns the tensors registered with DependOn.
func (c *Call) Deps() []*tensor.Tensor {
	return c.deps
}

// Producer implements tensor.Link.
func (c *Call) Producer() any {
	return c.node
}

// Node returns the node that made this call.
func (c *Call) Node() Node {
	return c.node
}

// Inputs returns the tensors passed to the forward call.
func (c *Call) Inputs() []*tensor.Tensor {
	return c.inputs
}

// Input returns the i-th input.
func (c *Call) Input(i int) *tensor.Tensor {
	return c.inputs[i]
}

// Outputs returns the tensors returned by the forward call.
func (c *Call) Outputs() []*tensor.Tensor {
	return c.outputs
}

// Output returns the i-th output.
func (c *Call) Output(i int) *tensor.Tensor {
	return c.outputs[i]
}

// Context returns the node-private data stored by Record.
func (c *Call) Context() any {
	return c.ctx
}

// Consumed reports whether a backward pass already ran for this call.
func (c *Call) Consumed() bool {
	return c.consumed
}

// CallOf returns the outermost producer call of t, or nil for leaf tensors.
func CallOf(t *tensor.Tensor) *Call {
	c, _ := t.Link().(*Call)
	return c
}

// ProducerOf returns the node whose forward call returned t, or nil.
func ProducerOf(t *tensor.Tensor) Node {
	if c := CallOf(t); c != nil {
		return c.node
	}
	return nil
}

// Consume validates that every tensor in outputs was produced by one unconsumed
// forward call of node, then clears that call's links from all tensors it
// wrapped. Each forward call can be consumed exactly once.
func Consume(node Node, outputs []*tensor.Tensor) (*Call, error) {
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%s backward: %w", NameOf(node), ErrNoForward)
	}

	var call *Call
	for i, t := range outputs {
		c := CallOf(t)
		switch {
		case c == nil:
			return nil, fmt.Errorf("%s backward: output %d: %w", NameOf(node), i, ErrNoForward)
		case c.node != node:
			return nil, fmt.Errorf("%s backward: output %d produced by %s: %w",
				NameOf(node), i, NameOf(c.node), ErrForeignTensor)
		case call != nil && c != call:
			return nil, fmt.Errorf("%s backward: outputs span several forward calls: %w",
				NameOf(node), ErrOutOfOrder)
		}
		call = c
	}

	for _, t := range call.wrapped {
		t.PopLink(call)
	}
	call.wrapped = nil
	call.deps = nil
	call.consumed = true
	return call, nil
}

// OutputGrad returns the upstream gradient of t, allocating a zero buffer when
// nothing reached it so that nodes can treat it uniformly.
func OutputGrad(t *tensor.Tensor) []tensor.Scalar {
	return t.EnsureGrad()
}
