package graph

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/tensor"
)

// Pipeline is a composite node that chains children in declaration order.
//
// Each child's outputs become the next child's inputs. Backward replays the
// children in exactly reversed order. A Pipeline satisfies Node itself, so
// pipelines nest.
//
// Example:
//
//	model := graph.NewPipeline("mlp",
//	    nn.NewAffine(2, 4, rng),
//	    nn.NewTanh(),
//	    nn.NewAffine(4, 1, rng),
//	)
//
//	out, err := model.Forward(x)
//
// This is equivalent to:
//
//	h1, _ := affine1.Forward(x)
//	h2, _ := tanh.Forward(h1...)
//	out, _ := affine2.Forward(h2...)
type Pipeline struct {
	name     string
	children []child
	index    map[string]int
}

type child struct {
	name string
	node Node
}

// NewPipeline creates a pipeline. Children are named by their position
// ("0", "1", ...); use AddNamed for explicit names.
func NewPipeline(name string, nodes ...Node) *Pipeline {
	p := &Pipeline{
		name:  name,
		index: make(map[string]int),
	}
	for _, n := range nodes {
		p.Add(n)
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Add appends a node named by its position.
//
// Nodes attached after an optimizer's SetUp are not bound until SetUp runs again.
func (p *Pipeline) Add(n Node) {
	name := strconv.Itoa(len(p.children))
	for p.has(name) {
		name = "_" + name
	}
	p.append(name, n)
}

// AddNamed appends a node under an explicit name.
func (p *Pipeline) AddNamed(name string, n Node) error {
	if p.has(name) {
		return fmt.Errorf("pipeline %q: %q: %w", p.name, name, ErrDuplicateName)
	}
	p.append(name, n)
	return nil
}

func (p *Pipeline) has(name string) bool {
	_, ok := p.index[name]
	return ok
}

func (p *Pipeline) append(name string, n Node) {
	p.index[name] = len(p.children)
	p.children = append(p.children, child{name: name, node: n})
}

// Len returns the number of children.
func (p *Pipeline) Len() int {
	return len(p.children)
}

// Child returns the child at index i.
//
// Panics if index is out of bounds.
func (p *Pipeline) Child(i int) Node {
	if i < 0 || i >= len(p.children) {
		panic("Pipeline.Child: index out of bounds")
	}
	return p.children[i].node
}

// ChildName returns the name of the child at index i.
func (p *Pipeline) ChildName(i int) string {
	return p.children[i].name
}

// Lookup returns the child registered under name.
func (p *Pipeline) Lookup(name string) (Node, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.children[i].node, true
}

// Walk visits every node depth-first in declaration order, nested pipelines
// included, with dotted paths relative to p.
func (p *Pipeline) Walk(fn func(path string, n Node)) {
	p.walk("", fn)
}

func (p *Pipeline) walk(prefix string, fn func(path string, n Node)) {
	for _, ch := range p.children {
		path := joinPath(prefix, ch.name)
		fn(path, ch.node)
		if sub, ok := ch.node.(*Pipeline); ok {
			sub.walk(path, fn)
		}
	}
}

// Forward feeds inputs through every child in order and returns the last
// child's outputs. Every child output is linked to the pipeline so that a
// backward pass may start from the final output or any intermediate one, and
// the pipeline's call inherits the state dependencies of its children's calls.
//
// When a child fails, every child up to and including it is reset, so no
// stateful child is left holding a timestep that no caller can backpropagate.
func (p *Pipeline) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(p.children) == 0 {
		return nil, fmt.Errorf("pipeline %q: %w", p.name, ErrEmptyPipeline)
	}

	stages := make([][]*tensor.Tensor, len(p.children))
	var deps []*tensor.Tensor
	current := inputs
	for i, ch := range p.children {
		out, err := ch.node.Forward(current...)
		if err != nil {
			for _, ran := range p.children[:i+1] {
				ran.node.ResetState()
			}
			return nil, fmt.Errorf("pipeline %q: child %q forward: %w", p.name, ch.name, err)
		}
		if len(out) > 0 {
			if c := CallOf(out[0]); c != nil && c.node == ch.node {
				deps = append(deps, c.deps...)
			}
		}
		stages[i] = out
		current = out
	}

	call := Record(p, inputs, current, stages)
	for _, st := range stages[:len(stages)-1] {
		call.Wrap(st...)
	}
	call.DependOn(deps...)
	return current, nil
}

// Backward runs the children's Backward in reverse order.
//
// The given tensors normally are the pipeline's last outputs, but any
// intermediate child output of the same forward call may be passed: the
// replay then starts at the deepest child that produced one of them, which
// allows partial backward passes through a sub-graph.
func (p *Pipeline) Backward(outputs ...*tensor.Tensor) error {
	call, err := Consume(p, outputs)
	if err != nil {
		return err
	}
	stages := call.ctx.([][]*tensor.Tensor)

	start := -1
	for i := len(stages) - 1; i >= 0 && start < 0; i-- {
		for _, t := range outputs {
			if slices.Contains(stages[i], t) {
				start = i
				break
			}
		}
	}

	for i := start; i >= 0; i-- {
		if err := p.children[i].node.Backward(stages[i]...); err != nil {
			return fmt.Errorf("pipeline %q: child %q backward: %w", p.name, p.children[i].name, err)
		}
	}
	return nil
}

// ResetState resets every child.
func (p *Pipeline) ResetState() {
	for _, ch := range p.children {
		ch.node.ResetState()
	}
}

// Stateful reports whether any child keeps per-timestep records.
func (p *Pipeline) Stateful() bool {
	for _, ch := range p.children {
		if IsStateful(ch.node) {
			return true
		}
	}
	return false
}

// Pending returns the number of records awaiting backward across all children.
func (p *Pipeline) Pending() int {
	total := 0
	for _, ch := range p.children {
		if s, ok := ch.node.(Stateful); ok {
			total += s.Pending()
		}
	}
	return total
}

// SetDevice hands dev to every child that can offload its arithmetic.
func (p *Pipeline) SetDevice(dev device.Device) {
	for _, ch := range p.children {
		if o, ok := ch.node.(Offloadable); ok {
			o.SetDevice(dev)
		}
	}
}

// Parameters returns all trainable parameters of all children, flattened in
// declaration order.
func (p *Pipeline) Parameters() []*Parameter {
	var params []*Parameter
	for _, ch := range p.children {
		params = append(params, ParametersOf(ch.node)...)
	}
	return params
}

// NamedParameters returns every parameter with its dotted path, in the same
// order as Parameters (e.g. "0.weight", "0.bias", "2.weight").
func (p *Pipeline) NamedParameters() []NamedParameter {
	return p.namedParameters("")
}

func (p *Pipeline) namedParameters(prefix string) []NamedParameter {
	var named []NamedParameter
	for _, ch := range p.children {
		named = append(named, NamedParametersOf(joinPath(prefix, ch.name), ch.node)...)
	}
	return named
}
