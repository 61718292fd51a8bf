package graph

import (
	"fmt"
	"reflect"

	"github.com/born-ml/graft/internal/tensor"
)

// Parameter is a learnable tensor owned by a node.
//
// The tensor is created once at node construction, persists for the node's
// lifetime and is mutated in place by an optimizer. Its gradient lives in the
// tensor's own grad buffer.
//
// Example:
//
//	weight := graph.NewParameter("weight", tensor.Zeros(tensor.Shape{2, 3}, 1))
//	grad := weight.Grad() // nil until the first backward pass
type Parameter struct {
	name   string
	tensor *tensor.Tensor
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "weight").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Data returns the parameter values (zero-copy).
func (p *Parameter) Data() []tensor.Scalar {
	return p.tensor.Data()
}

// Grad returns the accumulated gradient, or nil before the first backward pass.
func (p *Parameter) Grad() []tensor.Scalar {
	return p.tensor.Grad()
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	p.tensor.ZeroGrad()
}

// String returns a human-readable representation of the parameter.
func (p *Parameter) String() string {
	return fmt.Sprintf("Parameter(%s %v)", p.name, p.tensor.Shape())
}

// NamedParameter pairs a parameter with its dotted path inside a graph
// (e.g. "encoder.0.weight").
type NamedParameter struct {
	Path  string
	Param *Parameter
}

// NamedParametersOf returns the parameters of n with paths under prefix.
// Pipelines contribute their children's paths recursively.
func NamedParametersOf(prefix string, n Node) []NamedParameter {
	if p, ok := n.(*Pipeline); ok {
		return p.namedParameters(prefix)
	}
	params := ParametersOf(n)
	named := make([]NamedParameter, 0, len(params))
	for _, param := range params {
		named = append(named, NamedParameter{Path: joinPath(prefix, param.Name()), Param: param})
	}
	return named
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
