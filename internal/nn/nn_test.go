package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/graft/internal/device"
	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/parallel"
	"github.com/born-ml/graft/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Central differences lose most of their digits in single precision.
var (
	gradEps = func() float64 {
		if tensor.Precision == 32 {
			return 1e-2
		}
		return 1e-6
	}()
	gradTol = func() float64 {
		if tensor.Precision == 32 {
			return 2e-2
		}
		return 1e-5
	}()
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func randomTensor(rng *rand.Rand, shape tensor.Shape, batch int) *tensor.Tensor {
	x := tensor.Zeros(shape, batch)
	for i := range x.Data() {
		x.Data()[i] = tensor.Scalar(rng.Float64()*2 - 1)
	}
	return x
}

func randomCoefficients(rng *rand.Rand, n int) []tensor.Scalar {
	c := make([]tensor.Scalar, n)
	for i := range c {
		c[i] = tensor.Scalar(rng.Float64()*2 - 1)
	}
	return c
}

func dot(a, b []tensor.Scalar) float64 {
	var s float64
	for i := range a {
		s += float64(a[i] * b[i])
	}
	return s
}

// numericGrad perturbs every value in place and returns the central
// difference of eval with respect to it.
func numericGrad(values []tensor.Scalar, eval func() float64) []float64 {
	grads := make([]float64, len(values))
	for i := range values {
		orig := values[i]
		values[i] = orig + tensor.Scalar(gradEps)
		plus := eval()
		values[i] = orig - tensor.Scalar(gradEps)
		minus := eval()
		values[i] = orig
		grads[i] = (plus - minus) / (2 * gradEps)
	}
	return grads
}

func assertGradClose(t *testing.T, want []float64, got []tensor.Scalar, what string) {
	t.Helper()
	require.Len(t, got, len(want), what)
	for i := range want {
		assert.InDelta(t, want[i], float64(got[i]), gradTol, "%s[%d]", what, i)
	}
}

// checkNodeGradients compares analytic gradients of L = Σ c·y against central
// differences for every input value and every parameter value of node.
func checkNodeGradients(t *testing.T, node graph.Node, inputs ...*tensor.Tensor) {
	t.Helper()
	rng := newRNG()

	out, err := node.Forward(inputs...)
	require.NoError(t, err)
	coef := randomCoefficients(rng, out[0].Len())
	copy(out[0].EnsureGrad(), coef)
	require.NoError(t, node.Backward(out...))

	eval := func() float64 {
		o, err := node.Forward(inputs...)
		require.NoError(t, err)
		return dot(coef, o[0].Data())
	}

	for i, x := range inputs {
		analytic := append([]tensor.Scalar(nil), x.Grad()...)
		assertGradClose(t, numericGrad(x.Data(), eval), analytic, "input"+string(rune('0'+i)))
	}
	for _, p := range graph.ParametersOf(node) {
		analytic := append([]tensor.Scalar(nil), p.Grad()...)
		assertGradClose(t, numericGrad(p.Data(), eval), analytic, p.Name())
	}
}

// Affine Tests

func TestAffineForward(t *testing.T) {
	a := NewAffine(2, 3, newRNG())
	copy(a.Weight().Data(), []tensor.Scalar{
		1, 2, 3,
		4, 5, 6,
	})
	copy(a.Bias().Data(), []tensor.Scalar{0.5, -0.5, 0})

	x, err := tensor.FromSlice([]tensor.Scalar{1, 1, 0, 2}, tensor.Shape{2}, 2)
	require.NoError(t, err)

	out, err := a.Forward(x)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, tensor.Shape{3}, out[0].Shape())
	assert.Equal(t, 2, out[0].BatchCount())
	assert.Equal(t, []tensor.Scalar{5.5, 6.5, 9, 8.5, 9.5, 12}, out[0].Data())
	assert.Same(t, graph.Node(a), graph.ProducerOf(out[0]))
}

func TestAffineForward_ShapeMismatch(t *testing.T) {
	a := NewAffine(3, 2, newRNG())
	_, err := a.Forward(tensor.Zeros(tensor.Shape{4}, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = a.Forward()
	assert.ErrorIs(t, err, graph.ErrArity)
}

func TestAffineGradients(t *testing.T) {
	rng := newRNG()
	a := NewAffine(3, 4, rng)
	checkNodeGradients(t, a, randomTensor(rng, tensor.Shape{3}, 2))
}

func TestAffineParameters(t *testing.T) {
	a := NewAffine(3, 4, newRNG())
	params := a.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, tensor.Shape{3, 4}, params[0].Tensor().Shape())
	assert.Equal(t, tensor.Shape{4}, params[1].Tensor().Shape())
	for _, v := range params[1].Data() {
		assert.Zero(t, v)
	}

	bound := math.Sqrt(6.0 / 7.0)
	for _, v := range params[0].Data() {
		assert.LessOrEqual(t, math.Abs(float64(v)), bound)
	}
}

func TestAffineInitIsReproducible(t *testing.T) {
	a := NewAffine(5, 5, rand.New(rand.NewSource(7)))
	b := NewAffine(5, 5, rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Weight().Data(), b.Weight().Data())
}

func TestAffineBackward_Twice(t *testing.T) {
	a := NewAffine(2, 2, newRNG())
	out, err := a.Forward(tensor.Zeros(tensor.Shape{2}, 1))
	require.NoError(t, err)

	require.NoError(t, a.Backward(out...))
	err = a.Backward(out...)
	assert.ErrorIs(t, err, graph.ErrNoForward)
	assert.ErrorIs(t, err, graph.ErrGraphDiscipline)
}

func TestAffineBackward_ForeignTensor(t *testing.T) {
	a := NewAffine(2, 2, newRNG())
	b := NewAffine(2, 2, newRNG())
	out, err := a.Forward(tensor.Zeros(tensor.Shape{2}, 1))
	require.NoError(t, err)

	assert.ErrorIs(t, b.Backward(out...), graph.ErrForeignTensor)
}

func TestAffineDeviceOffload(t *testing.T) {
	rng := newRNG()
	x := randomTensor(rng, tensor.Shape{8}, 5)

	a := NewAffine(8, 6, rng)
	want, err := a.Forward(x)
	require.NoError(t, err)

	a.SetDevice(device.NewHostWithConfig(parallel.Config{Enabled: false}))
	got, err := a.Forward(x)
	require.NoError(t, err)

	assert.InDeltaSlice(t, want[0].Data(), got[0].Data(), 1e-6)
}

func TestAffineForward_PropagatesNaN(t *testing.T) {
	a := NewAffine(2, 1, newRNG())
	a.Weight().Data()[0] = tensor.Scalar(math.NaN())
	x, err := tensor.FromSlice([]tensor.Scalar{0, 1}, tensor.Shape{2}, 1)
	require.NoError(t, err)

	out, err := a.Forward(x)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(out[0].Data()[0])))
}

// Activation Tests

func TestActivationForward(t *testing.T) {
	x, err := tensor.FromSlice([]tensor.Scalar{-2, 0, 3}, tensor.Shape{3}, 1)
	require.NoError(t, err)

	tests := []struct {
		node *Activation
		want []tensor.Scalar
	}{
		{NewReLU(), []tensor.Scalar{0, 0, 3}},
		{NewIdentity(), []tensor.Scalar{-2, 0, 3}},
		{NewTanh(), []tensor.Scalar{
			tensor.Scalar(math.Tanh(-2)), 0, tensor.Scalar(math.Tanh(3)),
		}},
		{NewSigmoid(), []tensor.Scalar{
			tensor.Scalar(1 / (1 + math.Exp(2))), 0.5, tensor.Scalar(1 / (1 + math.Exp(-3))),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.node.Name(), func(t *testing.T) {
			out, err := tt.node.Forward(x)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, out[0].Data(), 1e-6)
		})
	}

	assert.Equal(t, []tensor.Scalar{-2, 0, 3}, x.Data(), "forward must not mutate its input")
}

func TestActivationGradients(t *testing.T) {
	for _, fn := range []ActivationFunc{SigmoidFunc, TanhFunc, ReLUFunc, IdentityFunc} {
		t.Run(fn.Name, func(t *testing.T) {
			// Keep inputs away from ReLU's kink.
			x, err := tensor.FromSlice([]tensor.Scalar{-1.5, -0.3, 0.4, 2}, tensor.Shape{2}, 2)
			require.NoError(t, err)
			checkNodeGradients(t, NewActivation(fn), x)
		})
	}
}

// Add Tests

func TestAddGradients(t *testing.T) {
	rng := newRNG()
	checkNodeGradients(t, NewAdd(),
		randomTensor(rng, tensor.Shape{3}, 2),
		randomTensor(rng, tensor.Shape{3}, 2))
}

func TestAddSameTensorTwice(t *testing.T) {
	x := tensor.Full(tensor.Shape{2}, 1, 3)
	add := NewAdd()

	out, err := add.Forward(x, x)
	require.NoError(t, err)
	assert.Equal(t, []tensor.Scalar{6, 6}, out[0].Data())

	require.NoError(t, graph.Backward(out[0]))
	assert.Equal(t, []tensor.Scalar{2, 2}, x.Grad())
}

func TestAddShapeMismatch(t *testing.T) {
	_, err := NewAdd().Forward(tensor.Zeros(tensor.Shape{2}, 1), tensor.Zeros(tensor.Shape{3}, 1))
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = NewAdd().Forward(tensor.Zeros(tensor.Shape{2}, 1), tensor.Zeros(tensor.Shape{2}, 2))
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = NewAdd().Forward(tensor.Zeros(tensor.Shape{2}, 1))
	assert.ErrorIs(t, err, graph.ErrArity)
}

// A shared input consumed by two branches receives the sum of both
// contributions, regardless of the order in which the branches run backward.
func TestSharedInputAccumulates(t *testing.T) {
	x, err := tensor.FromSlice([]tensor.Scalar{0.3, -0.7}, tensor.Shape{2}, 1)
	require.NoError(t, err)

	tanh, sigmoid, add := NewTanh(), NewSigmoid(), NewAdd()
	a, err := tanh.Forward(x)
	require.NoError(t, err)
	b, err := sigmoid.Forward(x)
	require.NoError(t, err)
	y, err := add.Forward(a[0], b[0])
	require.NoError(t, err)

	require.NoError(t, graph.Backward(y[0]))

	for i, v := range x.Data() {
		th := math.Tanh(float64(v))
		sg := 1 / (1 + math.Exp(-float64(v)))
		assert.InDelta(t, (1-th*th)+sg*(1-sg), float64(x.Grad()[i]), 1e-6)
	}
	assert.Nil(t, y[0].Producer())
	assert.Nil(t, a[0].Producer())
}

// Reshape Tests

func TestReshape(t *testing.T) {
	x, err := tensor.FromSlice([]tensor.Scalar{1, 2, 3, 4, 5, 6}, tensor.Shape{6}, 1)
	require.NoError(t, err)

	r := NewReshape(tensor.Shape{2, 3})
	out, err := r.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out[0].Shape())
	assert.Equal(t, x.Data(), out[0].Data())

	copy(out[0].EnsureGrad(), []tensor.Scalar{1, 1, 2, 2, 3, 3})
	require.NoError(t, r.Backward(out...))
	assert.Equal(t, []tensor.Scalar{1, 1, 2, 2, 3, 3}, x.Grad())

	_, err = NewReshape(tensor.Shape{4}).Forward(x)
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestReshapeFuse(t *testing.T) {
	fused, ok := NewReshape(tensor.Shape{2, 3}).Fuse(NewReshape(tensor.Shape{3, 2}))
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{3, 2}, fused.(*Reshape).Target())

	_, ok = NewReshape(tensor.Shape{2, 3}).Fuse(NewTanh())
	assert.False(t, ok)
}

// Loss Tests

func TestMSELoss(t *testing.T) {
	pred, err := tensor.FromSlice([]tensor.Scalar{1, 2, 0, 0}, tensor.Shape{2}, 2)
	require.NoError(t, err)
	label, err := tensor.FromSlice([]tensor.Scalar{0, 0, 1, 1}, tensor.Shape{2}, 2)
	require.NoError(t, err)

	loss, err := NewMSELoss().Evaluate(pred, label)
	require.NoError(t, err)

	assert.Equal(t, []tensor.Scalar{2.5, 1}, loss.Data())
	assert.Equal(t, []tensor.Scalar{1, 2, -1, -1}, pred.Grad())
	assert.InDelta(t, 1.75, graph.Mean(loss), 1e-12)
	assert.Nil(t, label.Grad())
}

func TestMSELoss_Accumulates(t *testing.T) {
	pred := tensor.Full(tensor.Shape{1}, 1, 2)
	label := tensor.Zeros(tensor.Shape{1}, 1)
	mse := NewMSELoss()

	_, err := mse.Evaluate(pred, label)
	require.NoError(t, err)
	_, err = mse.Evaluate(pred, label)
	require.NoError(t, err)

	assert.Equal(t, []tensor.Scalar{8}, pred.Grad())
}

func TestMSELoss_ShapeMismatch(t *testing.T) {
	_, err := NewMSELoss().Evaluate(tensor.Zeros(tensor.Shape{2}, 1), tensor.Zeros(tensor.Shape{3}, 1))
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestSoftmaxCrossEntropyGradients(t *testing.T) {
	rng := newRNG()
	pred := randomTensor(rng, tensor.Shape{4}, 3)
	label, err := tensor.FromSlice([]tensor.Scalar{
		0, 1, 0, 0,
		1, 0, 0, 0,
		0, 0, 0.5, 0.5,
	}, tensor.Shape{4}, 3)
	require.NoError(t, err)

	ce := NewSoftmaxCrossEntropyLoss()
	_, err = ce.Evaluate(pred, label)
	require.NoError(t, err)
	analytic := append([]tensor.Scalar(nil), pred.Grad()...)

	probe := tensor.Like(pred)
	eval := func() float64 {
		copy(probe.Data(), pred.Data())
		loss, err := ce.Evaluate(probe, label)
		require.NoError(t, err)
		var sum float64
		for _, v := range loss.Data() {
			sum += float64(v)
		}
		return sum
	}
	assertGradClose(t, numericGrad(pred.Data(), eval), analytic, "logits")
}

func TestSoftmaxCrossEntropy_LargeLogits(t *testing.T) {
	pred, err := tensor.FromSlice([]tensor.Scalar{1000, 0, -1000}, tensor.Shape{3}, 1)
	require.NoError(t, err)
	label, err := tensor.FromSlice([]tensor.Scalar{1, 0, 0}, tensor.Shape{3}, 1)
	require.NoError(t, err)

	loss, err := NewSoftmaxCrossEntropyLoss().Evaluate(pred, label)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(float64(loss.Data()[0])))
	assert.InDelta(t, 0, float64(loss.Data()[0]), 1e-6)
	for _, g := range pred.Grad() {
		assert.False(t, math.IsNaN(float64(g)))
	}
}

func TestSoftmax(t *testing.T) {
	x, err := tensor.FromSlice([]tensor.Scalar{1, 2, 3, 0, 0, 0}, tensor.Shape{3}, 2)
	require.NoError(t, err)

	p := Softmax(x)
	for b := 0; b < 2; b++ {
		var sum float64
		for _, v := range p.Sample(b) {
			sum += float64(v)
		}
		assert.InDelta(t, 1, sum, 1e-6)
	}
	assert.InDelta(t, 1.0/3, float64(p.At(1, 0)), 1e-6)
}
