package train

import "errors"

// Trainer errors.
var (
	ErrInvalidConfig    = errors.New("invalid trainer config")
	ErrStatefulParallel = errors.New("stateful models cannot train batch-parallel")
	ErrEmptyDataset     = errors.New("no samples")
	ErrLengthMismatch   = errors.New("inputs and labels differ in length")
)
