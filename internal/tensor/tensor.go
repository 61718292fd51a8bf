package tensor

import (
	"fmt"
	"strconv"
)

// Link is a non-owning back-reference from a tensor to the forward call that
// produced it. Links exist only for backward traversal; they never decide who
// owns a tensor and are popped as soon as a backward pass consumes them.
type Link interface {
	// Producer returns the node whose forward call created the tensor.
	Producer() any
}

// Tensor is a shaped, batched buffer of Scalars with an optional gradient.
//
// The data buffer holds BatchCount() batch elements of Shape() each, packed
// contiguously. The gradient buffer is nil until the first write and, once
// present, always has the same length as data. Gradients are accumulated,
// never overwritten, because one tensor may feed several consumers.
//
// Example:
//
//	x, _ := tensor.FromSlice([]tensor.Scalar{0, 1, 1, 0}, tensor.Shape{2}, 2)
//	x.Sample(1) // [1 0]
type Tensor struct {
	data  []Scalar
	grad  []Scalar
	shape Shape
	batch int
	links []Link // innermost producer first
}

// New creates a zero-filled tensor holding batch elements of the given shape.
func New(shape Shape, batch int) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if batch <= 0 {
		return nil, fmt.Errorf("invalid batch count %d (must be > 0): %w", batch, ErrShape)
	}
	return &Tensor{
		data:  make([]Scalar, shape.NumElements()*batch),
		shape: shape.Clone(),
		batch: batch,
	}, nil
}

// Zeros is New for layouts known to be valid. It panics on an invalid layout.
func Zeros(shape Shape, batch int) *Tensor {
	t, err := New(shape, batch)
	if err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return t
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, batch int, value Scalar) *Tensor {
	t := Zeros(shape, batch)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []Scalar, shape Shape, batch int) (*Tensor, error) {
	t, err := New(shape, batch)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, &ShapeError{
			Op:   "tensor.FromSlice",
			Want: strconv.Itoa(len(t.data)) + " elements",
			Got:  strconv.Itoa(len(data)) + " elements",
		}
	}
	copy(t.data, data)
	return t, nil
}

// Like returns a zero-filled tensor with the same shape and batch count as t.
func Like(t *Tensor) *Tensor {
	return &Tensor{
		data:  make([]Scalar, len(t.data)),
		shape: t.shape.Clone(),
		batch: t.batch,
	}
}

// Data returns the tensor's buffer (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []Scalar {
	return t.data
}

// Grad returns the gradient buffer, or nil if nothing has been accumulated yet.
func (t *Tensor) Grad() []Scalar {
	return t.grad
}

// HasGrad reports whether a gradient buffer exists.
func (t *Tensor) HasGrad() bool {
	return t.grad != nil
}

// Shape returns a copy of the per-element shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// BatchCount returns the number of batch elements packed in the buffer.
func (t *Tensor) BatchCount() int {
	return t.batch
}

// SampleSize returns the number of elements in one batch element.
func (t *Tensor) SampleSize() int {
	return t.shape.NumElements()
}

// Len returns the total number of elements across all batch elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Sample returns a view of batch element b.
func (t *Tensor) Sample(b int) []Scalar {
	n := t.SampleSize()
	return t.data[b*n : (b+1)*n]
}

// GradSample returns a view of the gradient of batch element b,
// allocating the gradient buffer if needed.
func (t *Tensor) GradSample(b int) []Scalar {
	n := t.SampleSize()
	return t.EnsureGrad()[b*n : (b+1)*n]
}

// At returns the element at flat index i of batch element b.
func (t *Tensor) At(b, i int) Scalar {
	return t.data[b*t.SampleSize()+i]
}

// ZeroGrad allocates the gradient buffer or clears it to zero.
func (t *Tensor) ZeroGrad() {
	if t.grad == nil {
		t.grad = make([]Scalar, len(t.data))
		return
	}
	clear(t.grad)
}

// EnsureGrad returns the gradient buffer, allocating a zeroed one on first use.
// Callers accumulate into the result with +=.
func (t *Tensor) EnsureGrad() []Scalar {
	if t.grad == nil {
		t.grad = make([]Scalar, len(t.data))
	}
	return t.grad
}

// AccumulateGrad adds delta element-wise into the gradient buffer.
func (t *Tensor) AccumulateGrad(delta []Scalar) error {
	if len(delta) != len(t.data) {
		return &ShapeError{
			Op:   "tensor.AccumulateGrad",
			Want: strconv.Itoa(len(t.data)) + " elements",
			Got:  strconv.Itoa(len(delta)) + " elements",
		}
	}
	g := t.EnsureGrad()
	for i, d := range delta {
		g[i] += d
	}
	return nil
}

// ClearGrad drops the gradient buffer entirely.
func (t *Tensor) ClearGrad() {
	t.grad = nil
}

// Reshape changes the per-element shape. The element count must not change.
func (t *Tensor) Reshape(shape Shape) error {
	if err := shape.Validate(); err != nil {
		return err
	}
	if shape.NumElements() != t.shape.NumElements() {
		return NewShapeError("tensor.Reshape", t.shape, shape)
	}
	t.shape = shape.Clone()
	return nil
}

// CloneWithoutGraph returns a deep copy of data and gradient with no producer
// links, suitable for evaluation snapshots that must not retain the graph.
func (t *Tensor) CloneWithoutGraph() *Tensor {
	c := &Tensor{
		data:  make([]Scalar, len(t.data)),
		shape: t.shape.Clone(),
		batch: t.batch,
	}
	copy(c.data, t.data)
	if t.grad != nil {
		c.grad = make([]Scalar, len(t.grad))
		copy(c.grad, t.grad)
	}
	return c
}

// Producer returns the node whose forward call returned this tensor,
// or nil for leaf tensors and tensors whose backward pass already ran.
func (t *Tensor) Producer() any {
	if l := t.Link(); l != nil {
		return l.Producer()
	}
	return nil
}

// Link returns the outermost producer link, or nil.
func (t *Tensor) Link() Link {
	if len(t.links) == 0 {
		return nil
	}
	return t.links[len(t.links)-1]
}

// PushLink records l as the new outermost producer link.
func (t *Tensor) PushLink(l Link) {
	t.links = append(t.links, l)
}

// PopLink removes the outermost link if it is l and reports whether it did.
func (t *Tensor) PopLink(l Link) bool {
	if t.Link() != l {
		return false
	}
	t.links[len(t.links)-1] = nil
	t.links = t.links[:len(t.links)-1]
	return true
}

// ClearLinks drops every producer link.
func (t *Tensor) ClearLinks() {
	clear(t.links)
	t.links = nil
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v x%d", t.shape, t.batch)
}
