// Package anytensor provides shaped, differentiable tensor
// operations on top of anydiff.
//
// A Tensor is nothing more than an anydiff.Res paired with
// a row-major shape.
// The operations in this package (broadcasting, reductions
// along an axis, and index-based gathering) are the pieces
// needed to write batched dynamic programs like the
// forward algorithm without leaving the anydiff graph.
//
// All numeric work is done in float64, regardless of the
// creator's numeric type.
// Only creators with []float32 or []float64 numeric lists
// are supported.
package anytensor

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Tensor is a differentiable result with a shape.
//
// The data is stored in row-major order, so the last
// dimension varies fastest.
type Tensor struct {
	Res   anydiff.Res
	Shape []int
}

// New creates a Tensor with the given shape.
//
// This panics if the shape does not account for every
// component of the result.
func New(r anydiff.Res, shape ...int) *Tensor {
	if n := product(shape); n != r.Output().Len() {
		panic(fmt.Sprintf("shape %v does not fit %d components", shape, r.Output().Len()))
	}
	return &Tensor{Res: r, Shape: append([]int{}, shape...)}
}

// Len returns the total number of components.
func (t *Tensor) Len() int {
	return t.Res.Output().Len()
}

// Creator returns the creator of the tensor's output.
func (t *Tensor) Creator() anyvec.Creator {
	return t.Res.Output().Creator()
}

// Reshape creates a Tensor with the same data and a new
// shape.
func Reshape(t *Tensor, shape ...int) *Tensor {
	return New(t.Res, shape...)
}

// Add adds two tensors of the same shape.
func Add(t1, t2 *Tensor) *Tensor {
	assertSameShape("add", t1, t2)
	return New(anydiff.Add(t1.Res, t2.Res), t1.Shape...)
}

// Sub subtracts t2 from t1.
// The tensors must have the same shape.
func Sub(t1, t2 *Tensor) *Tensor {
	assertSameShape("sub", t1, t2)
	neg := anydiff.Scale(t2.Res, t2.Creator().MakeNumeric(-1))
	return New(anydiff.Add(t1.Res, neg), t1.Shape...)
}

func assertSameShape(op string, t1, t2 *Tensor) {
	if !sameShape(t1.Shape, t2.Shape) {
		panic(fmt.Sprintf("%s: shape mismatch %v and %v", op, t1.Shape, t2.Shape))
	}
}

func sameShape(s1, s2 []int) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i, x := range s1 {
		if s2[i] != x {
			return false
		}
	}
	return true
}

func product(shape []int) int {
	res := 1
	for _, x := range shape {
		if x < 0 {
			panic(fmt.Sprintf("negative dimension in shape %v", shape))
		}
		res *= x
	}
	return res
}
