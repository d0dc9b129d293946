// Package anycrf implements linear-chain Conditional
// Random Fields on top of anydiff.
//
// Emission scores are batched: every timestep is a packed
// vector of B*L components, where B is the batch size and
// L is the number of labels.
// Transitions are given as an L*L matrix, where entry
// i*L+j is the (additive, log-domain) score for moving
// from label i to label j.
//
// Every sequence in a batch must have the same length.
package anycrf

import (
	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anydiff"
)

// Cost computes the negative log-likelihood of each label
// sequence in a batch.
//
// The xs argument contains the emission scores for every
// timestep, and ys contains the corresponding labels,
// with one label per batch element per timestep.
// The result has one component per batch element.
//
// Gradients flow to both cost and xs.
func Cost(cost anydiff.Res, xs []anydiff.Res, ys [][]int) anydiff.Res {
	d := newDims(cost, xs)
	d.checkLabels(ys, len(xs))
	trans, steps := d.tensors(cost, xs)

	alpha := steps[0]
	for _, x := range steps[1:] {
		b := anytensor.Broadcast(anytensor.Reshape(alpha, d.Batch, d.Labels, 1), trans)
		alpha = anytensor.Add(anytensor.LogSumExp(anytensor.Add(b[0], b[1]), 1), x)
	}
	logZ := anytensor.LogSumExp(alpha, 1)

	var score *anytensor.Tensor
	flatTrans := anytensor.Reshape(trans, d.Labels*d.Labels, 1)
	for t := 1; t < len(ys); t++ {
		ids := make([]int, d.Batch)
		for i := range ids {
			ids[i] = ys[t-1][i]*d.Labels + ys[t][i]
		}
		transScore := anytensor.EmbedID(ids, flatTrans)
		score = addScore(score, anytensor.Reshape(transScore, d.Batch))
	}
	for t, x := range steps {
		score = addScore(score, anytensor.SelectItem(x, ys[t]))
	}

	return anytensor.Sub(logZ, score).Res
}

// Viterbi finds the most likely label sequence for each
// batch element.
//
// The alpha result contains the score of the best path
// ending at each label, packed as a B*L vector.
// The path contains one entry per timestep, each listing
// the chosen label for every batch element.
//
// When two paths tie, the one through the lower label
// index is chosen.
func Viterbi(cost anydiff.Res, xs []anydiff.Res) (alpha anydiff.Res, path [][]int) {
	d := newDims(cost, xs)
	trans, steps := d.tensors(cost, xs)

	alphaTensor := steps[0]
	var backPointers [][]int
	for _, x := range steps[1:] {
		b := anytensor.Broadcast(anytensor.Reshape(alphaTensor, d.Batch, d.Labels, 1), trans)
		scores := anytensor.Add(b[0], b[1])
		backPointers = append(backPointers, anytensor.Argmax(scores, 1))
		alphaTensor = anytensor.Add(anytensor.Max(scores, 1), x)
	}

	indices := anytensor.Argmax(alphaTensor, 1)
	path = [][]int{indices}
	for i := len(backPointers) - 1; i >= 0; i-- {
		pointers := backPointers[i]
		prev := make([]int, d.Batch)
		for j, label := range indices {
			prev[j] = pointers[j*d.Labels+label]
		}
		indices = prev
		path = append(path, indices)
	}
	for i := 0; i < len(path)/2; i++ {
		path[i], path[len(path)-1-i] = path[len(path)-1-i], path[i]
	}

	return alphaTensor.Res, path
}

func addScore(sum, term *anytensor.Tensor) *anytensor.Tensor {
	if sum == nil {
		return term
	}
	return anytensor.Add(sum, term)
}
