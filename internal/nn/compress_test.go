package nn

import (
	"math/rand"
	"testing"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMLP(seed int64) *graph.Pipeline {
	rng := rand.New(rand.NewSource(seed))
	return graph.NewPipeline("mlp",
		NewAffine(4, 8, rng),
		NewTanh(),
		graph.NewPipeline("head",
			NewAffine(8, 6, rng),
			NewSigmoid(),
		),
		NewReshape(tensor.Shape{2, 3}),
		NewReshape(tensor.Shape{3, 2}),
	)
}

func TestCompress_SameForwardOutput(t *testing.T) {
	model := newMLP(1)
	x := randomTensor(newRNG(), tensor.Shape{4}, 3)

	want, err := model.Forward(x)
	require.NoError(t, err)

	compressed := model.Compress()
	got, err := compressed.Forward(x)
	require.NoError(t, err)

	assert.Equal(t, want[0].Shape(), got[0].Shape())
	assert.InDeltaSlice(t, want[0].Data(), got[0].Data(), 1e-9)
}

func TestCompress_FusesAdjacentPairs(t *testing.T) {
	model := newMLP(1)
	compressed := model.Compress()

	require.Equal(t, 3, compressed.Len())
	assert.IsType(t, &FusedAffine{}, compressed.Child(0))
	assert.Equal(t, "0+1", compressed.ChildName(0))

	head, ok := compressed.Child(1).(*graph.Pipeline)
	require.True(t, ok)
	require.Equal(t, 1, head.Len())
	assert.Equal(t, "affine+sigmoid", graph.NameOf(head.Child(0)))

	assert.Equal(t, tensor.Shape{3, 2}, compressed.Child(2).(*Reshape).Target())

	assert.Equal(t, 5, model.Len(), "compress must leave the original untouched")
	assert.Empty(t, compressed.Parameters())
}

func TestCompress_IsInferenceOnly(t *testing.T) {
	compressed := newMLP(1).Compress()
	out, err := compressed.Forward(randomTensor(newRNG(), tensor.Shape{4}, 1))
	require.NoError(t, err)

	err = graph.Backward(out[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrInferenceOnly)
}

func TestCompress_DetachedFromTraining(t *testing.T) {
	model := newMLP(1)
	x := randomTensor(newRNG(), tensor.Shape{4}, 2)

	compressed := model.Compress()
	before, err := compressed.Forward(x)
	require.NoError(t, err)

	for _, p := range model.Parameters() {
		for i := range p.Data() {
			p.Data()[i] += 0.25
		}
	}

	after, err := compressed.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, before[0].Data(), after[0].Data())
}

func TestAffineFuse_RejectsNonActivation(t *testing.T) {
	a := NewAffine(2, 2, newRNG())
	_, ok := a.Fuse(NewAffine(2, 2, newRNG()))
	assert.False(t, ok)
}
