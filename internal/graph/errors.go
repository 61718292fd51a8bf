package graph

import (
	"errors"
	"fmt"
)

// ErrGraphDiscipline is the root of every misuse of the forward/backward protocol.
// These errors are fatal for the current training step and are never recovered
// inside the engine, since continuing would corrupt gradients.
var ErrGraphDiscipline = errors.New("graph discipline violation")

// Graph-discipline errors.
var (
	ErrNoForward     = fmt.Errorf("%w: no unconsumed forward call", ErrGraphDiscipline)
	ErrOutOfOrder    = fmt.Errorf("%w: backward does not match the most recent forward", ErrGraphDiscipline)
	ErrForeignTensor = fmt.Errorf("%w: tensor was not produced by this node", ErrGraphDiscipline)
	ErrInferenceOnly = fmt.Errorf("%w: node is inference-only", ErrGraphDiscipline)
)

// Composition errors.
var (
	ErrEmptyPipeline = errors.New("pipeline has no children")
	ErrDuplicateName = errors.New("duplicate child name")
	ErrArity         = errors.New("wrong number of tensors")
)

// ArityError reports a node called with the wrong number of tensors.
func ArityError(op string, want, got int) error {
	return fmt.Errorf("%s: want %d tensor(s), got %d: %w", op, want, got, ErrArity)
}
