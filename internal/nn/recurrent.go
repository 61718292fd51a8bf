package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/tensor"
)

// Recurrent is an Elman recurrent cell that carries its hidden state across
// forward calls:
//
//	h_t = tanh(x_t·Wx + h_{t-1}·Wh + b)
//
// Each Forward consumes one timestep and returns h_t. The hidden state starts
// at zero and persists until ResetState. Every timestep pushes a record, and
// Backward must visit the timesteps in exact reverse order.
//
// Each step's call depends on h_{t-1}, and Backward accumulates dL/dh_{t-1}
// into that tensor's gradient. graph.Backward therefore reaches every earlier
// step from the last output alone, e.g. for a loss on the final step only.
//
// Example:
//
//	cell := nn.NewRecurrent(3, 8, rng)
//	var h []*tensor.Tensor
//	for _, x := range sequence {
//	    h, _ = cell.Forward(x)
//	}
//	_, _ = loss.Evaluate(h[0], label)
//	_ = graph.Backward(h[0])
//	cell.ResetState()
type Recurrent struct {
	in     int
	hidden int
	wx     *graph.Parameter // [in, hidden]
	wh     *graph.Parameter // [hidden, hidden]
	bias   *graph.Parameter // [hidden]

	state   []tensor.Scalar // h_{t-1}, batch×hidden; nil before the first step
	batch   int
	prev    *tensor.Tensor  // output of the last step, h_{t-1} of the next one
	records graph.RecordStack[timestep]
}

type timestep struct {
	x     *tensor.Tensor
	prev  *tensor.Tensor // nil on the first step
	hPrev []tensor.Scalar
	h     []tensor.Scalar
}

// NewRecurrent creates a recurrent cell with Xavier-initialized weights.
func NewRecurrent(in, hidden int, rng *rand.Rand) *Recurrent {
	return &Recurrent{
		in:     in,
		hidden: hidden,
		wx:     graph.NewParameter("wx", Xavier(in, hidden, tensor.Shape{in, hidden}, rng)),
		wh:     graph.NewParameter("wh", Xavier(hidden, hidden, tensor.Shape{hidden, hidden}, rng)),
		bias:   graph.NewParameter("bias", Zeros(tensor.Shape{hidden})),
	}
}

// Name implements graph.Named.
func (r *Recurrent) Name() string {
	return "recurrent"
}

// Parameters returns [wx, wh, bias].
func (r *Recurrent) Parameters() []*graph.Parameter {
	return []*graph.Parameter{r.wx, r.wh, r.bias}
}

// Stateful implements graph.Stateful.
func (r *Recurrent) Stateful() bool {
	return true
}

// Pending returns the number of timesteps awaiting Backward.
func (r *Recurrent) Pending() int {
	return r.records.Len()
}

// Hidden returns a copy of the current hidden state, or nil before the first step.
func (r *Recurrent) Hidden() []tensor.Scalar {
	if r.state == nil {
		return nil
	}
	out := make([]tensor.Scalar, len(r.state))
	copy(out, r.state)
	return out
}

// Forward advances the cell by one timestep.
func (r *Recurrent) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	x, err := graph.SingleInput("recurrent.forward", inputs)
	if err != nil {
		return nil, err
	}
	if !x.Shape().Equal(tensor.Shape{r.in}) {
		return nil, tensor.NewShapeError("recurrent.forward", tensor.Shape{r.in}, x.Shape())
	}
	if r.state == nil {
		r.batch = x.BatchCount()
		r.state = make([]tensor.Scalar, r.batch*r.hidden)
	} else if x.BatchCount() != r.batch {
		return nil, fmt.Errorf("recurrent.forward: batch %d, state holds %d: %w",
			x.BatchCount(), r.batch, tensor.ErrShape)
	}

	hPrev := r.state
	h := make([]tensor.Scalar, len(hPrev))
	wx, wh, bias := r.wx.Data(), r.wh.Data(), r.bias.Data()
	for b := 0; b < r.batch; b++ {
		xs := x.Sample(b)
		hp := hPrev[b*r.hidden : (b+1)*r.hidden]
		hs := h[b*r.hidden : (b+1)*r.hidden]
		copy(hs, bias)
		for i, v := range xs {
			row := wx[i*r.hidden : (i+1)*r.hidden]
			for j, w := range row {
				hs[j] += v * w
			}
		}
		for i, v := range hp {
			row := wh[i*r.hidden : (i+1)*r.hidden]
			for j, w := range row {
				hs[j] += v * w
			}
		}
		for j, v := range hs {
			hs[j] = tensor.Scalar(math.Tanh(float64(v)))
		}
	}
	r.state = h

	y, err := tensor.FromSlice(h, tensor.Shape{r.hidden}, r.batch)
	if err != nil {
		return nil, err
	}
	call := graph.Record(r, inputs, []*tensor.Tensor{y}, nil)
	call.DependOn(r.prev)
	r.records.Push(call, timestep{x: x, prev: r.prev, hPrev: hPrev, h: h})
	r.prev = y
	return []*tensor.Tensor{y}, nil
}

// Backward processes the most recent unconsumed timestep and adds the gradient
// w.r.t. h_{t-1} to the previous step's output.
func (r *Recurrent) Backward(outputs ...*tensor.Tensor) error {
	if len(outputs) != 1 {
		return graph.ArityError("recurrent.backward", 1, len(outputs))
	}
	call := graph.CallOf(outputs[0])
	if call == nil || call.Node() != graph.Node(r) {
		_, err := graph.Consume(r, outputs)
		return err
	}
	step, err := r.records.Pop(call)
	if err != nil {
		return err
	}
	if _, err := graph.Consume(r, outputs); err != nil {
		return err
	}

	dy := graph.OutputGrad(call.Output(0))
	da := make([]tensor.Scalar, len(dy))
	for i, g := range dy {
		da[i] = g * (1 - step.h[i]*step.h[i])
	}

	wx, wh := r.wx.Data(), r.wh.Data()
	dwx := r.wx.Tensor().EnsureGrad()
	dwh := r.wh.Tensor().EnsureGrad()
	db := r.bias.Tensor().EnsureGrad()
	dhPrev := make([]tensor.Scalar, len(da))

	for b := 0; b < r.batch; b++ {
		das := da[b*r.hidden : (b+1)*r.hidden]
		xs := step.x.Sample(b)
		dxs := step.x.GradSample(b)
		hp := step.hPrev[b*r.hidden : (b+1)*r.hidden]
		dhp := dhPrev[b*r.hidden : (b+1)*r.hidden]

		for j, g := range das {
			db[j] += g
		}
		for i, v := range xs {
			row := wx[i*r.hidden : (i+1)*r.hidden]
			drow := dwx[i*r.hidden : (i+1)*r.hidden]
			var acc tensor.Scalar
			for j, g := range das {
				drow[j] += v * g
				acc += row[j] * g
			}
			dxs[i] += acc
		}
		for i, v := range hp {
			row := wh[i*r.hidden : (i+1)*r.hidden]
			drow := dwh[i*r.hidden : (i+1)*r.hidden]
			var acc tensor.Scalar
			for j, g := range das {
				drow[j] += v * g
				acc += row[j] * g
			}
			dhp[i] = acc
		}
	}

	if step.prev == nil {
		return nil
	}
	return step.prev.AccumulateGrad(dhPrev)
}

// ResetState zeroes the hidden state and discards pending records.
func (r *Recurrent) ResetState() {
	r.state = nil
	r.batch = 0
	r.prev = nil
	r.records.Reset()
}
