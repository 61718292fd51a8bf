package graph

import "github.com/born-ml/graft/internal/tensor"

// Loss is the contract of a loss node.
//
// Evaluate returns a tensor holding one loss value per batch element and, as a
// side effect, accumulates d(loss)/d(prediction) into prediction's gradient.
// A backward pass then starts at prediction like at any other tensor:
//
//	out, _ := model.Forward(x)
//	loss, err := mse.Evaluate(out[0], y)
//	err = graph.Backward(out[0])
type Loss interface {
	Evaluate(prediction, label *tensor.Tensor) (*tensor.Tensor, error)
}

// Mean returns the mean of a loss tensor's values.
func Mean(loss *tensor.Tensor) float64 {
	data := loss.Data()
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
