package nn

import (
	"math"

	"github.com/born-ml/graft/internal/tensor"
)

// Losses return one value per batch element and accumulate the gradient of
// the sum of those values into the prediction. Per-element gradients are
// therefore independent of the batch size, and splitting a batch into
// single-element calls yields the same accumulated parameter gradients.

// MSELoss computes Mean Squared Error loss for regression tasks.
//
// For each batch element:
//
//	loss = (1/n) · Σ (prediction - label)²
//	∂loss/∂prediction = (2/n) · (prediction - label)
//
// where n is the number of values per element.
//
// Example:
//
//	criterion := nn.NewMSELoss()
//	loss, err := criterion.Evaluate(pred, label)
//	err = graph.Backward(pred)
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Evaluate implements graph.Loss.
func (m *MSELoss) Evaluate(prediction, label *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkPair("mse", prediction, label); err != nil {
		return nil, err
	}

	n := prediction.SampleSize()
	scale := tensor.Scalar(2.0 / float64(n))
	loss := tensor.Zeros(tensor.Shape{1}, prediction.BatchCount())
	values := loss.Data()
	for b := range values {
		p, l, g := prediction.Sample(b), label.Sample(b), prediction.GradSample(b)
		var sum float64
		for i := range p {
			diff := p[i] - l[i]
			sum += float64(diff * diff)
			g[i] += scale * diff
		}
		values[b] = tensor.Scalar(sum / float64(n))
	}
	return loss, nil
}

// SoftmaxCrossEntropyLoss computes cross-entropy between softmax(prediction)
// and a target distribution (usually one-hot) for classification tasks.
//
// For each batch element:
//
//	loss = -Σ label · log(softmax(prediction))
//	∂loss/∂prediction = softmax(prediction)·Σlabel - label
//
// Predictions are raw logits; the log-sum-exp trick keeps large logits finite.
type SoftmaxCrossEntropyLoss struct{}

// NewSoftmaxCrossEntropyLoss creates a new softmax cross-entropy loss function.
func NewSoftmaxCrossEntropyLoss() *SoftmaxCrossEntropyLoss {
	return &SoftmaxCrossEntropyLoss{}
}

// Evaluate implements graph.Loss.
func (c *SoftmaxCrossEntropyLoss) Evaluate(prediction, label *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkPair("softmax_cross_entropy", prediction, label); err != nil {
		return nil, err
	}

	loss := tensor.Zeros(tensor.Shape{1}, prediction.BatchCount())
	values := loss.Data()
	probs := make([]float64, prediction.SampleSize())
	for b := range values {
		p, l, g := prediction.Sample(b), label.Sample(b), prediction.GradSample(b)

		maxLogit := math.Inf(-1)
		for _, v := range p {
			maxLogit = math.Max(maxLogit, float64(v))
		}
		var sumExp float64
		for i, v := range p {
			probs[i] = math.Exp(float64(v) - maxLogit)
			sumExp += probs[i]
		}
		logSumExp := maxLogit + math.Log(sumExp)

		var total, mass float64
		for i, v := range p {
			probs[i] /= sumExp
			target := float64(l[i])
			total -= target * (float64(v) - logSumExp)
			mass += target
		}
		for i := range p {
			g[i] += tensor.Scalar(probs[i]*mass - float64(l[i]))
		}
		values[b] = tensor.Scalar(total)
	}
	return loss, nil
}

// Softmax returns softmax of each batch element of logits as a fresh tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	out := tensor.Like(logits)
	for b := 0; b < logits.BatchCount(); b++ {
		src, dst := logits.Sample(b), out.Sample(b)
		maxLogit := math.Inf(-1)
		for _, v := range src {
			maxLogit = math.Max(maxLogit, float64(v))
		}
		var sum float64
		for i, v := range src {
			e := math.Exp(float64(v) - maxLogit)
			dst[i] = tensor.Scalar(e)
			sum += e
		}
		for i := range dst {
			dst[i] = tensor.Scalar(float64(dst[i]) / sum)
		}
	}
	return out
}

func checkPair(op string, prediction, label *tensor.Tensor) error {
	if !prediction.Shape().Equal(label.Shape()) {
		return tensor.NewShapeError(op, prediction.Shape(), label.Shape())
	}
	if prediction.BatchCount() != label.BatchCount() {
		return tensor.NewShapeError(op+" batch",
			tensor.Shape{prediction.BatchCount()}, tensor.Shape{label.BatchCount()})
	}
	return nil
}
