// Package graph implements the dynamic computation graph of the graft engine.
//
// This package provides:
//   - Node: the forward/backward/reset contract every computation satisfies
//   - Call: the producer link a forward call leaves on its outputs
//   - Backward: reverse-mode traversal from any set of root tensors
//   - RecordStack: LIFO per-timestep records for stateful nodes
//   - Pipeline: an ordered, nestable composite that is itself a Node
//
// The engine never inspects a node's math. It only guarantees ordering
// (backward runs in reverse order of forward) and accumulation (gradients are
// summed into shared tensors, never overwritten).
package graph

import (
	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/tensor"
)

// Node is the capability every unit of computation exposes.
//
// Forward must not mutate its inputs. It allocates fresh outputs and registers
// them with Record so that a later Backward can find them.
//
// Backward receives outputs returned by the most recent unconsumed Forward,
// each carrying an upstream gradient. It calls Consume, then accumulates with
// += into its parameters' and inputs' gradients.
//
// ResetState returns a stateful node to its just-constructed runtime state.
// Stateless nodes implement it as a no-op.
type Node interface {
	Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error)
	Backward(outputs ...*tensor.Tensor) error
	ResetState()
}

// ParameterOwner is implemented by nodes that own learnable tensors.
type ParameterOwner interface {
	// Parameters returns owned parameters in declaration order.
	Parameters() []*Parameter
}

// Named is implemented by nodes that report a human-readable name.
type Named interface {
	Name() string
}

// Stateful is implemented by nodes that retain per-timestep records between
// Forward and Backward. Pending reports how many records await a Backward.
type Stateful interface {
	Stateful() bool
	Pending() int
}

// Fusible is implemented by nodes that can absorb the node following them into
// a single inference-only node with identical forward output.
type Fusible interface {
	Fuse(next Node) (Node, bool)
}

// Offloadable is implemented by nodes whose arithmetic can run on a device.
type Offloadable interface {
	SetDevice(dev device.Device)
}

// ParametersOf returns the parameters of n, or nil if n owns none.
func ParametersOf(n Node) []*Parameter {
	if owner, ok := n.(ParameterOwner); ok {
		return owner.Parameters()
	}
	return nil
}

// IsStateful reports whether n (or, for composites, any child) keeps records.
func IsStateful(n Node) bool {
	s, ok := n.(Stateful)
	return ok && s.Stateful()
}

// NameOf returns the node's name, or its Go type when it has none.
func NameOf(n Node) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return typeName(n)
}

// SingleInput validates a one-input forward call.
func SingleInput(op string, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != 1 || inputs[0] == nil {
		return nil, ArityError(op, 1, len(inputs))
	}
	return inputs[0], nil
}
