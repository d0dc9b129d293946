package anytensor

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// BroadcastTo repeats the tensor's data to fill a larger
// shape.
//
// Broadcasting follows the usual rules: shapes are
// aligned on the right, and every dimension of t must
// either be 1 or equal to the corresponding dimension of
// the target shape.
// Missing leading dimensions are treated as 1.
func BroadcastTo(t *Tensor, shape ...int) *Tensor {
	if !broadcastable(t.Shape, shape) {
		panic(fmt.Sprintf("broadcast: cannot broadcast %v to %v", t.Shape, shape))
	}
	if sameShape(t.Shape, shape) {
		return t
	}
	return New(newGather(t.Res, broadcastIndices(t.Shape, shape)), shape...)
}

// Broadcast broadcasts all of the tensors to a common
// shape.
func Broadcast(ts ...*Tensor) []*Tensor {
	var shape []int
	for _, t := range ts {
		shape = commonShape(shape, t.Shape)
	}
	res := make([]*Tensor, len(ts))
	for i, t := range ts {
		res[i] = BroadcastTo(t, shape...)
	}
	return res
}

// SelectItem picks one entry from every row of a matrix.
//
// The tensor x must be of shape (N, M), and there must be
// N indices, each in the range [0, M).
// The result has shape (N).
func SelectItem(x *Tensor, indices []int) *Tensor {
	if len(x.Shape) != 2 {
		panic(fmt.Sprintf("select item: expected a matrix but got shape %v", x.Shape))
	}
	rows, cols := x.Shape[0], x.Shape[1]
	if len(indices) != rows {
		panic(fmt.Sprintf("select item: %d indices for %d rows", len(indices), rows))
	}
	srcIdx := make([]int, rows)
	for i, idx := range indices {
		if idx < 0 || idx >= cols {
			panic(fmt.Sprintf("select item: index %d out of range [0, %d)", idx, cols))
		}
		srcIdx[i] = i*cols + idx
	}
	return New(newGather(x.Res, srcIdx), rows)
}

// EmbedID looks up rows of an embedding matrix.
//
// The matrix w has shape (N, D), and every id must be in
// the range [0, N).
// The result has shape (len(ids), D).
func EmbedID(ids []int, w *Tensor) *Tensor {
	if len(w.Shape) != 2 {
		panic(fmt.Sprintf("embed id: expected a matrix but got shape %v", w.Shape))
	}
	rows, cols := w.Shape[0], w.Shape[1]
	srcIdx := make([]int, 0, len(ids)*cols)
	for _, id := range ids {
		if id < 0 || id >= rows {
			panic(fmt.Sprintf("embed id: id %d out of range [0, %d)", id, rows))
		}
		for j := 0; j < cols; j++ {
			srcIdx = append(srcIdx, id*cols+j)
		}
	}
	return New(newGather(w.Res, srcIdx), len(ids), cols)
}

// gatherRes copies components of its input into a new
// vector.
// Gradients are scattered back, summing over repeats.
type gatherRes struct {
	In     anydiff.Res
	Index  []int
	OutVec anyvec.Vector
}

func newGather(in anydiff.Res, index []int) *gatherRes {
	inVals := Floats(in.Output())
	outVals := make([]float64, len(index))
	for i, src := range index {
		outVals[i] = inVals[src]
	}
	return &gatherRes{
		In:     in,
		Index:  index,
		OutVec: MakeVector(in.Output().Creator(), outVals),
	}
}

func (g *gatherRes) Output() anyvec.Vector {
	return g.OutVec
}

func (g *gatherRes) Vars() anydiff.VarSet {
	return g.In.Vars()
}

func (g *gatherRes) Propagate(u anyvec.Vector, grad anydiff.Grad) {
	if !grad.Intersects(g.In.Vars()) {
		return
	}
	upstream := Floats(u)
	downstream := make([]float64, g.In.Output().Len())
	for i, src := range g.Index {
		downstream[src] += upstream[i]
	}
	g.In.Propagate(MakeVector(u.Creator(), downstream), grad)
}

func broadcastable(src, dst []int) bool {
	if len(src) > len(dst) {
		return false
	}
	offset := len(dst) - len(src)
	for i, x := range src {
		if x != 1 && x != dst[i+offset] {
			return false
		}
	}
	return true
}

func commonShape(s1, s2 []int) []int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	res := append([]int{}, s1...)
	offset := len(s1) - len(s2)
	for i, x := range s2 {
		y := res[i+offset]
		if y == 1 {
			res[i+offset] = x
		} else if x != 1 && x != y {
			panic(fmt.Sprintf("broadcast: incompatible shapes %v and %v", s1, s2))
		}
	}
	return res
}

// broadcastIndices computes, for every component of the
// destination shape, the source component it copies.
func broadcastIndices(src, dst []int) []int {
	offset := len(dst) - len(src)
	strides := make([]int, len(dst))
	stride := 1
	for i := len(src) - 1; i >= 0; i-- {
		if src[i] != 1 {
			strides[i+offset] = stride
		}
		stride *= src[i]
	}

	res := make([]int, product(dst))
	coord := make([]int, len(dst))
	for k := range res {
		var idx int
		for i, c := range coord {
			idx += c * strides[i]
		}
		res[k] = idx
		for i := len(coord) - 1; i >= 0; i-- {
			coord[i]++
			if coord[i] < dst[i] {
				break
			}
			coord[i] = 0
		}
	}
	return res
}
