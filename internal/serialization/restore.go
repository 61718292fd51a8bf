package serialization

import (
	"fmt"

	"github.com/born-ml/graft/internal/graph"
)

// Mode selects how stored tensors are matched to parameters.
type Mode int

const (
	// ByName matches each parameter to the stored tensor with the same path.
	ByName Mode = iota
	// ByPosition matches the i-th parameter to the i-th stored tensor.
	ByPosition
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ByName:
		return "by-name"
	case ByPosition:
		return "by-position"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Restore copies stored data into params.
//
// Every parameter must be matched and every stored tensor must be used, with
// equal shapes. Nothing is copied unless the whole file matches.
func Restore(f *File, params []graph.NamedParameter, mode Mode) error {
	pairs, err := match(f, params, mode)
	if err != nil {
		return err
	}
	for i, st := range pairs {
		copy(params[i].Param.Data(), st.Data)
	}
	return nil
}

// match returns, for each parameter, the stored tensor it receives.
func match(f *File, params []graph.NamedParameter, mode Mode) ([]StoredTensor, error) {
	pairs := make([]StoredTensor, len(params))

	switch mode {
	case ByName:
		used := make(map[string]bool, len(params))
		for i, np := range params {
			st, ok := f.Lookup(np.Path)
			if !ok {
				return nil, &ValidationError{Err: ErrMissingTensor, Tensor: np.Path, Details: "not in file"}
			}
			pairs[i] = st
			used[np.Path] = true
		}
		for _, st := range f.Tensors {
			if !used[st.Name] {
				return nil, &ValidationError{Err: ErrUnknownTensor, Tensor: st.Name, Details: "not in model"}
			}
		}
	case ByPosition:
		if len(f.Tensors) != len(params) {
			return nil, &ValidationError{
				Err:     ErrCountMismatch,
				Details: fmt.Sprintf("file has %d, model has %d", len(f.Tensors), len(params)),
			}
		}
		copy(pairs, f.Tensors)
	default:
		return nil, fmt.Errorf("restore: unknown mode %v", mode)
	}

	for i, np := range params {
		want := np.Param.Tensor().Shape()
		if !pairs[i].Shape.Equal(want) || len(pairs[i].Data) != len(np.Param.Data()) {
			return nil, &ValidationError{
				Err:     ErrShapeMismatch,
				Tensor:  np.Path,
				Tensor2: pairs[i].Name,
				Details: fmt.Sprintf("model %v, file %v", want, pairs[i].Shape),
			}
		}
	}
	return pairs, nil
}
