package anycrf

import (
	"fmt"
	"math"

	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anydiff"
)

// dims stores the batch and label counts shared by the
// inputs to Cost and Viterbi.
type dims struct {
	Batch  int
	Labels int
}

// newDims validates the transition matrix and emission
// sequence.
// It panics on empty sequences and mismatched shapes.
func newDims(cost anydiff.Res, xs []anydiff.Res) *dims {
	if len(xs) == 0 {
		panic("empty emission sequence")
	}
	numLabels := squareSide(cost.Output().Len())
	if numLabels == 0 {
		panic(fmt.Sprintf("transition matrix with %d components is not square",
			cost.Output().Len()))
	}
	if xs[0].Output().Len()%numLabels != 0 {
		panic(fmt.Sprintf("emission size %d not divisible by label count %d",
			xs[0].Output().Len(), numLabels))
	}
	d := &dims{Batch: xs[0].Output().Len() / numLabels, Labels: numLabels}
	for t, x := range xs {
		if x.Output().Len() != d.Batch*d.Labels {
			panic(fmt.Sprintf("timestep %d: expected %d emission scores but got %d",
				t, d.Batch*d.Labels, x.Output().Len()))
		}
	}
	return d
}

func (d *dims) checkLabels(ys [][]int, steps int) {
	if len(ys) != steps {
		panic(fmt.Sprintf("expected %d label timesteps but got %d", steps, len(ys)))
	}
	for t, y := range ys {
		if len(y) != d.Batch {
			panic(fmt.Sprintf("timestep %d: expected %d labels but got %d", t, d.Batch, len(y)))
		}
		for _, label := range y {
			if label < 0 || label >= d.Labels {
				panic(fmt.Sprintf("timestep %d: label %d out of range [0, %d)",
					t, label, d.Labels))
			}
		}
	}
}

func (d *dims) tensors(cost anydiff.Res, xs []anydiff.Res) (*anytensor.Tensor,
	[]*anytensor.Tensor) {
	steps := make([]*anytensor.Tensor, len(xs))
	for i, x := range xs {
		steps[i] = anytensor.New(x, d.Batch, d.Labels)
	}
	return anytensor.New(cost, d.Labels, d.Labels), steps
}

// squareSide returns the side length of a square matrix
// with n entries, or 0 if there is no such matrix.
func squareSide(n int) int {
	side := int(math.Sqrt(float64(n)) + 0.5)
	if side*side != n {
		return 0
	}
	return side
}
