// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/tensor"
)

// Node is the forward/backward/reset contract of every computation.
type Node = graph.Node

// ParameterOwner is implemented by nodes that own learnable tensors.
type ParameterOwner = graph.ParameterOwner

// Named is implemented by nodes that report a human-readable name.
type Named = graph.Named

// Stateful is implemented by nodes that keep per-timestep records.
type Stateful = graph.Stateful

// Fusible is implemented by nodes that can absorb their successor for inference.
type Fusible = graph.Fusible

// Offloadable is implemented by nodes whose arithmetic can run on a device.
type Offloadable = graph.Offloadable

// Loss evaluates a prediction and seeds its gradient.
type Loss = graph.Loss

// Call is the producer link a forward call leaves on its outputs.
type Call = graph.Call

// RecordStack keeps the LIFO per-timestep records of a stateful node.
type RecordStack[T any] = graph.RecordStack[T]

// Parameter is a learnable tensor owned by a node.
type Parameter = graph.Parameter

// NamedParameter pairs a parameter with its dotted path in a model.
type NamedParameter = graph.NamedParameter

// Pipeline chains children in declaration order and is itself a Node.
type Pipeline = graph.Pipeline

// Errors returned by the engine.
var (
	ErrGraphDiscipline = graph.ErrGraphDiscipline
	ErrNoForward       = graph.ErrNoForward
	ErrOutOfOrder      = graph.ErrOutOfOrder
	ErrForeignTensor   = graph.ErrForeignTensor
	ErrInferenceOnly   = graph.ErrInferenceOnly
	ErrEmptyPipeline   = graph.ErrEmptyPipeline
	ErrDuplicateName   = graph.ErrDuplicateName
	ErrArity           = graph.ErrArity
)

// NewPipeline creates a pipeline whose children are named by position.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	model := graph.NewPipeline("mlp",
//	    nn.NewAffine(2, 8, rng),
//	    nn.NewTanh(),
//	    nn.NewAffine(8, 1, rng),
//	)
func NewPipeline(name string, nodes ...Node) *Pipeline {
	return graph.NewPipeline(name, nodes...)
}

// NewParameter wraps t as a named learnable tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return graph.NewParameter(name, t)
}

// Backward propagates gradients from roots through every call they depend on.
// A sole root or a single-element root without a gradient is seeded with ones;
// other roots without one contribute zeros.
func Backward(roots ...*tensor.Tensor) error {
	return graph.Backward(roots...)
}

// Record registers outputs as produced by node from inputs. ctx is returned
// to node's Backward through Call.Context.
func Record(node Node, inputs, outputs []*tensor.Tensor, ctx any) *Call {
	return graph.Record(node, inputs, outputs, ctx)
}

// Consume validates outputs against node's most recent forward call and
// marks that call consumed.
func Consume(node Node, outputs []*tensor.Tensor) (*Call, error) {
	return graph.Consume(node, outputs)
}

// CallOf returns the producer call of t, or nil for leaf tensors.
func CallOf(t *tensor.Tensor) *Call {
	return graph.CallOf(t)
}

// ProducerOf returns the node that produced t, or nil.
func ProducerOf(t *tensor.Tensor) Node {
	return graph.ProducerOf(t)
}

// OutputGrad returns the upstream gradient of t, allocating zeros if absent.
func OutputGrad(t *tensor.Tensor) []tensor.Scalar {
	return graph.OutputGrad(t)
}

// SingleInput validates a one-input forward call.
func SingleInput(op string, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	return graph.SingleInput(op, inputs)
}

// ArityError reports a node called with the wrong number of tensors.
func ArityError(op string, want, got int) error {
	return graph.ArityError(op, want, got)
}

// ParametersOf returns the parameters of n, or nil.
func ParametersOf(n Node) []*Parameter {
	return graph.ParametersOf(n)
}

// NamedParametersOf returns the parameters of n prefixed with prefix.
func NamedParametersOf(prefix string, n Node) []NamedParameter {
	return graph.NamedParametersOf(prefix, n)
}

// IsStateful reports whether n keeps per-timestep records.
func IsStateful(n Node) bool {
	return graph.IsStateful(n)
}

// NameOf returns the node's name, or its Go type when it has none.
func NameOf(n Node) string {
	return graph.NameOf(n)
}

// Mean returns the mean of a loss tensor.
func Mean(loss *tensor.Tensor) float64 {
	return graph.Mean(loss)
}
