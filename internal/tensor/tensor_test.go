package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct{ name string }

func (l *fakeLink) Producer() any { return l.name }

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{3}, 3},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShapeValidate(t *testing.T) {
	require.NoError(t, Shape{1, 2}.Validate())

	err := Shape{2, 0}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
}

func TestShapeCloneIsIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])
	assert.Equal(t, "[2 3]", s.String())
}

// Construction Tests

func TestNewZeroFills(t *testing.T) {
	x, err := New(Shape{2, 3}, 4)
	require.NoError(t, err)

	assert.Equal(t, 24, x.Len())
	assert.Equal(t, 6, x.SampleSize())
	assert.Equal(t, 4, x.BatchCount())
	assert.False(t, x.HasGrad())
	assert.Nil(t, x.Producer())
	for _, v := range x.Data() {
		assert.Zero(t, v)
	}
}

func TestNewRejectsInvalidLayout(t *testing.T) {
	_, err := New(Shape{2, -1}, 1)
	assert.ErrorIs(t, err, ErrShape)

	_, err = New(Shape{2}, 0)
	assert.ErrorIs(t, err, ErrShape)

	assert.Panics(t, func() { Zeros(Shape{0}, 1) })
}

func TestFromSliceCopies(t *testing.T) {
	src := []Scalar{1, 2, 3, 4}
	x, err := FromSlice(src, Shape{2}, 2)
	require.NoError(t, err)

	src[0] = 100
	assert.Equal(t, Scalar(1), x.Data()[0])
	assert.Equal(t, []Scalar{3, 4}, x.Sample(1))
	assert.Equal(t, Scalar(4), x.At(1, 1))
}

func TestFromSliceLengthMismatch(t *testing.T) {
	_, err := FromSlice([]Scalar{1, 2, 3}, Shape{2}, 2)
	require.Error(t, err)

	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "tensor.FromSlice", shapeErr.Op)
	assert.ErrorIs(t, err, ErrShape)
}

// Gradient Tests

func TestGradientAccumulates(t *testing.T) {
	x := Zeros(Shape{3}, 1)

	require.NoError(t, x.AccumulateGrad([]Scalar{1, 2, 3}))
	require.NoError(t, x.AccumulateGrad([]Scalar{1, 1, 1}))
	assert.Equal(t, []Scalar{2, 3, 4}, x.Grad())

	err := x.AccumulateGrad([]Scalar{1})
	assert.ErrorIs(t, err, ErrShape)
}

func TestZeroGrad(t *testing.T) {
	x := Zeros(Shape{2}, 1)
	x.ZeroGrad()
	require.True(t, x.HasGrad())
	assert.Equal(t, []Scalar{0, 0}, x.Grad())

	x.Grad()[1] = 5
	x.ZeroGrad()
	assert.Equal(t, []Scalar{0, 0}, x.Grad())

	x.ClearGrad()
	assert.False(t, x.HasGrad())
}

func TestGradSampleAllocates(t *testing.T) {
	x := Zeros(Shape{2}, 2)
	g := x.GradSample(1)
	g[0] = 7
	assert.Equal(t, []Scalar{0, 0, 7, 0}, x.Grad())
}

// Reshape and clone Tests

func TestReshapeKeepsData(t *testing.T) {
	x, err := FromSlice([]Scalar{1, 2, 3, 4, 5, 6}, Shape{6}, 1)
	require.NoError(t, err)

	require.NoError(t, x.Reshape(Shape{2, 3}))
	assert.True(t, x.Shape().Equal(Shape{2, 3}))
	assert.Equal(t, []Scalar{1, 2, 3, 4, 5, 6}, x.Data())

	err = x.Reshape(Shape{4})
	assert.ErrorIs(t, err, ErrShape)
	assert.True(t, x.Shape().Equal(Shape{2, 3}))
}

func TestCloneWithoutGraph(t *testing.T) {
	x, err := FromSlice([]Scalar{1, 2}, Shape{2}, 1)
	require.NoError(t, err)
	require.NoError(t, x.AccumulateGrad([]Scalar{3, 4}))
	x.PushLink(&fakeLink{name: "affine"})

	c := x.CloneWithoutGraph()
	assert.Nil(t, c.Producer())
	assert.Equal(t, x.Data(), c.Data())
	assert.Equal(t, x.Grad(), c.Grad())

	c.Data()[0] = 10
	c.Grad()[0] = 10
	assert.Equal(t, Scalar(1), x.Data()[0])
	assert.Equal(t, Scalar(3), x.Grad()[0])
	assert.Equal(t, "affine", x.Producer())
}

// Link Tests

func TestLinksAreLIFO(t *testing.T) {
	x := Zeros(Shape{1}, 1)
	inner := &fakeLink{name: "inner"}
	outer := &fakeLink{name: "outer"}

	x.PushLink(inner)
	x.PushLink(outer)
	assert.Equal(t, "outer", x.Producer())

	assert.False(t, x.PopLink(inner), "inner link is not on top")
	assert.True(t, x.PopLink(outer))
	assert.Equal(t, "inner", x.Producer())
	assert.True(t, x.PopLink(inner))
	assert.Nil(t, x.Producer())
	assert.Nil(t, x.Link())
}
