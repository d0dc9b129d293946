package anytensor

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// LogSumExp computes log(sum(exp(x))) along an axis.
// The result's shape is t's shape with the axis removed.
//
// The computation subtracts the maximum before taking
// exponentials, so large inputs do not overflow.
// If every entry being reduced is -Inf, the result is
// -Inf and no gradient flows through those entries.
func LogSumExp(t *Tensor, axis int) *Tensor {
	l := newAxisLayout(t.Shape, axis)
	in := Floats(t.Res.Output())
	out := make([]float64, l.Outer*l.Inner)
	for o := 0; o < l.Outer; o++ {
		for i := 0; i < l.Inner; i++ {
			max := math.Inf(-1)
			for a := 0; a < l.N; a++ {
				max = math.Max(max, in[l.Index(o, a, i)])
			}
			if math.IsInf(max, 0) {
				out[o*l.Inner+i] = max
				continue
			}
			var sum float64
			for a := 0; a < l.N; a++ {
				sum += math.Exp(in[l.Index(o, a, i)] - max)
			}
			out[o*l.Inner+i] = math.Log(sum) + max
		}
	}
	res := &logSumExpRes{
		In:     t.Res,
		Layout: l,
		Out:    out,
		OutVec: MakeVector(t.Creator(), out),
	}
	return New(res, l.OutShape...)
}

// Max computes the maximum along an axis.
// The result's shape is t's shape with the axis removed.
//
// The gradient of each maximum is routed to the first
// entry which attains it.
func Max(t *Tensor, axis int) *Tensor {
	l := newAxisLayout(t.Shape, axis)
	maxes, indices := maxAlong(Floats(t.Res.Output()), l)
	src := make([]int, len(indices))
	for k, a := range indices {
		src[k] = l.Index(k/l.Inner, a, k%l.Inner)
	}
	res := &gatherRes{
		In:     t.Res,
		Index:  src,
		OutVec: MakeVector(t.Creator(), maxes),
	}
	return New(res, l.OutShape...)
}

// Argmax finds the index of the maximum along an axis.
//
// The result is laid out like t with the axis removed.
// When several entries tie, the lowest index wins.
func Argmax(t *Tensor, axis int) []int {
	l := newAxisLayout(t.Shape, axis)
	_, indices := maxAlong(Floats(t.Res.Output()), l)
	return indices
}

func maxAlong(in []float64, l *axisLayout) (maxes []float64, indices []int) {
	maxes = make([]float64, l.Outer*l.Inner)
	indices = make([]int, l.Outer*l.Inner)
	for o := 0; o < l.Outer; o++ {
		for i := 0; i < l.Inner; i++ {
			k := o*l.Inner + i
			maxes[k] = in[l.Index(o, 0, i)]
			for a := 1; a < l.N; a++ {
				if x := in[l.Index(o, a, i)]; x > maxes[k] {
					maxes[k] = x
					indices[k] = a
				}
			}
		}
	}
	return
}

// axisLayout views a shape as (Outer, N, Inner), where N
// is the size of the reduced axis.
type axisLayout struct {
	Outer    int
	N        int
	Inner    int
	OutShape []int
}

func newAxisLayout(shape []int, axis int) *axisLayout {
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("axis %d out of range for shape %v", axis, shape))
	}
	if shape[axis] == 0 {
		panic(fmt.Sprintf("cannot reduce empty axis %d of shape %v", axis, shape))
	}
	outShape := append(append([]int{}, shape[:axis]...), shape[axis+1:]...)
	return &axisLayout{
		Outer:    product(shape[:axis]),
		N:        shape[axis],
		Inner:    product(shape[axis+1:]),
		OutShape: outShape,
	}
}

func (a *axisLayout) Index(outer, idx, inner int) int {
	return (outer*a.N+idx)*a.Inner + inner
}

type logSumExpRes struct {
	In     anydiff.Res
	Layout *axisLayout
	Out    []float64
	OutVec anyvec.Vector
}

func (l *logSumExpRes) Output() anyvec.Vector {
	return l.OutVec
}

func (l *logSumExpRes) Vars() anydiff.VarSet {
	return l.In.Vars()
}

func (l *logSumExpRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	if !g.Intersects(l.In.Vars()) {
		return
	}
	upstream := Floats(u)
	in := Floats(l.In.Output())
	out := l.Out
	downstream := make([]float64, len(in))
	lay := l.Layout
	for o := 0; o < lay.Outer; o++ {
		for i := 0; i < lay.Inner; i++ {
			k := o*lay.Inner + i
			if math.IsInf(out[k], 0) {
				continue
			}
			for a := 0; a < lay.N; a++ {
				idx := lay.Index(o, a, i)
				downstream[idx] = upstream[k] * math.Exp(in[idx]-out[k])
			}
		}
	}
	l.In.Propagate(MakeVector(u.Creator(), downstream), g)
}
