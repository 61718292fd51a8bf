// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer: binds to parameters, owns per-parameter state, applies a Rule
//   - Rule: the update formula (SGD, AdaGrad, RMSProp, Adam)
//
// Rules differ only in the shape of their auxiliary state and the update
// formula, so swapping one rule for another never touches node code.
//
// Example usage:
//
//	opt := optim.New(optim.NewAdam(optim.AdamConfig{LR: 0.01}))
//	opt.SetUp(model)
//
//	for epoch := range epochs {
//	    out, _ := model.Forward(x)
//	    _, _ = loss.Evaluate(out[0], y)
//	    _ = graph.Backward(out[0])
//	    opt.Update() // applies the rule and clears every gradient
//	}
package optim

import (
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Update is the input of a single rule application for one parameter.
type Update struct {
	// Data is updated in place.
	Data []tensor.Scalar

	// Grad is the accumulated gradient. Rules must not modify it.
	Grad []tensor.Scalar

	// Slots holds Rule.Slots() auxiliary buffers, each len(Data) long and
	// zero before the first application.
	Slots [][]tensor.Scalar

	// Step is the optimizer's global step, starting at 1.
	Step int
}

// Rule is an update formula.
//
// Apply must be a pure function of the update's data, gradient and slots.
type Rule interface {
	// Name identifies the rule (e.g. "adam").
	Name() string

	// Slots returns the number of auxiliary buffers kept per parameter.
	Slots() int

	// Apply updates u.Data and u.Slots in place.
	Apply(u Update)

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate.
	//
	// Useful for learning rate scheduling during training.
	SetLR(lr float64)
}

// Optimizer applies a Rule to every parameter it is bound to.
//
// Auxiliary state is keyed by parameter identity, not stored in the parameter,
// so the same parameters can be handed to a different optimizer at any time.
//
// An Optimizer is not safe for concurrent use. Callers that accumulate
// gradients from several goroutines must finish accumulating before Update.
type Optimizer struct {
	rule  Rule
	step  int
	bound []*graph.Parameter
	state map[*graph.Parameter][][]tensor.Scalar
}

// New creates an optimizer using rule. Call SetUp before Update.
func New(rule Rule) *Optimizer {
	return &Optimizer{
		rule:  rule,
		state: make(map[*graph.Parameter][][]tensor.Scalar),
	}
}

// SetUp binds every parameter currently exposed by nodes.
//
// SetUp is idempotent: parameters bound earlier keep their auxiliary state,
// and parameters added to a pipeline since the last call are bound now.
func (o *Optimizer) SetUp(nodes ...graph.Node) {
	for _, n := range nodes {
		for _, p := range graph.ParametersOf(n) {
			if _, ok := o.state[p]; ok {
				continue
			}
			slots := make([][]tensor.Scalar, o.rule.Slots())
			for i := range slots {
				slots[i] = make([]tensor.Scalar, len(p.Data()))
			}
			o.state[p] = slots
			o.bound = append(o.bound, p)
		}
	}
}

// Update advances the global step and applies the rule to every bound
// parameter with a gradient, then clears that gradient.
//
// Parameters whose gradient is nil or all zeros did not take part in the
// step and are left untouched, state included. Update before SetUp does
// nothing.
func (o *Optimizer) Update() {
	if len(o.bound) == 0 {
		return
	}
	o.step++
	for _, p := range o.bound {
		grad := p.Grad()
		if isZero(grad) {
			continue
		}
		o.rule.Apply(Update{
			Data:  p.Data(),
			Grad:  grad,
			Slots: o.state[p],
			Step:  o.step,
		})
		p.ZeroGrad()
	}
}

// ZeroGrad clears gradients for all bound parameters without updating them.
func (o *Optimizer) ZeroGrad() {
	for _, p := range o.bound {
		p.ZeroGrad()
	}
}

// Rule returns the update rule.
func (o *Optimizer) Rule() Rule {
	return o.rule
}

// Step returns the number of Update calls that had bound parameters.
func (o *Optimizer) Step() int {
	return o.step
}

// Bound returns the bound parameters in binding order.
func (o *Optimizer) Bound() []*graph.Parameter {
	return append([]*graph.Parameter(nil), o.bound...)
}

// State returns the auxiliary buffers of p, or nil if p is not bound.
func (o *Optimizer) State(p *graph.Parameter) [][]tensor.Scalar {
	return o.state[p]
}

// LR returns the rule's current learning rate.
func (o *Optimizer) LR() float64 {
	return o.rule.LR()
}

// SetLR updates the rule's learning rate.
func (o *Optimizer) SetLR(lr float64) {
	o.rule.SetLR(lr)
}

func isZero(grad []tensor.Scalar) bool {
	for _, g := range grad {
		if g != 0 {
			return false
		}
	}
	return true
}
