package graph

import (
	"fmt"
	"slices"

	"github.com/born-ml/graft/internal/tensor"
)

// Backward propagates gradients from roots to every call they depend on.
//
// Algorithm:
//  1. Seed roots without a gradient with ones (see below)
//  2. Collect every unconsumed call reachable through producer links, the
//     inputs recorded by those calls and the state they declared with DependOn
//  3. Invoke each call's Backward exactly once, newest call first
//
// Calls are ordered by creation, so every consumer of a tensor runs before its
// producer and the producer sees the fully accumulated gradient. Stateful nodes
// see their timesteps in exact reverse order. A call also receives those of
// its outputs that already hold a gradient, since it can only be consumed once.
//
// A sole root, or a single-element root, is treated as a loss and seeded with
// ones when it has no gradient. Other roots keep whatever gradient they hold;
// one with none contributes zeros.
//
// Roots may be any tensors with a producer, including intermediates of a
// pipeline; only the sub-graph below the roots is traversed.
//
// Example:
//
//	out, _ := model.Forward(x)
//	loss, _ := mse.Evaluate(out[0], label) // populates out[0]'s gradient
//	err := graph.Backward(out[0])
func Backward(roots ...*tensor.Tensor) error {
	if len(roots) == 0 {
		return nil
	}

	reached := make(map[*Call][]*tensor.Tensor)
	var order []*Call

	visit := func(t *tensor.Tensor) {
		c := CallOf(t)
		if c == nil {
			return
		}
		if _, seen := reached[c]; !seen {
			order = append(order, c)
		}
		if !slices.Contains(reached[c], t) {
			reached[c] = append(reached[c], t)
		}
	}

	for i, root := range roots {
		if CallOf(root) == nil {
			return fmt.Errorf("backward root %d (%v): %w", i, root, ErrNoForward)
		}
		if !root.HasGrad() && (len(roots) == 1 || root.Len() == 1) {
			seedOnes(root)
		}
		visit(root)
	}

	// Walk inputs and deps breadth-first; order grows while we iterate.
	for i := 0; i < len(order); i++ {
		for _, in := range order[i].inputs {
			visit(in)
		}
		for _, dep := range order[i].deps {
			visit(dep)
		}
	}

	slices.SortFunc(order, func(a, b *Call) int {
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		default:
			return 0
		}
	})

	for _, c := range order {
		// A composite may already have replayed this call on our behalf.
		if c.consumed {
			continue
		}
		if err := c.node.Backward(gradOutputs(c, reached[c])...); err != nil {
			return fmt.Errorf("backward through %s: %w", NameOf(c.node), err)
		}
	}
	return nil
}

// gradOutputs extends the reached tensors of c with every other tensor c
// links that already holds a gradient.
func gradOutputs(c *Call, reached []*tensor.Tensor) []*tensor.Tensor {
	outs := reached
	for _, t := range c.wrapped {
		if t.HasGrad() && CallOf(t) == c && !slices.Contains(outs, t) {
			outs = append(outs, t)
		}
	}
	return outs
}

func seedOnes(t *tensor.Tensor) {
	g := t.EnsureGrad()
	for i := range g {
		g[i] = 1
	}
}
