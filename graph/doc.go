// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the node contract, reverse-mode backward traversal
// and the Pipeline composite of the graft engine.
//
// # Overview
//
// Every unit of computation implements Node:
//
//	Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error)
//	Backward(outputs ...*tensor.Tensor) error
//	ResetState()
//
// Forward registers its outputs with Record; Backward begins with Consume,
// which checks that the outputs belong to the most recent unconsumed forward
// call of that node, then accumulates gradients with +=.
//
// # Training Step
//
//	out, err := model.Forward(x)
//	if err != nil {
//	    return err
//	}
//	loss, err := mse.Evaluate(out[0], y)
//	if err != nil {
//	    return err
//	}
//	if err := graph.Backward(out[0]); err != nil {
//	    return err
//	}
//	opt.Update() // applies the rule and clears gradients
//
// # Custom Nodes
//
// A node needs no registration. Implement Node (and optionally
// ParameterOwner, Named, Stateful, Fusible or Offloadable) and add it to a
// Pipeline. Stateful nodes keep their per-timestep records in a RecordStack.
package graph
