package anycrf

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestSeqCostOutputs(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trans, xs := randomInputs(c, 2, 3, 4)
	ys := randomLabels(2, 3, 4)

	seqs := anyseq.ResSeq(c, resBatches(xs, 2))
	actual := anytensor.Floats(SeqCost(trans, seqs, transposeLabels(ys, 2)).Output())
	expected := anytensor.Floats(Cost(trans, xs, ys).Output())
	for i, x := range expected {
		if math.Abs(x-actual[i]) > 1e-10 {
			t.Errorf("output %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestSeqCostGrad(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trans, xs := randomInputs(c, 3, 2, 3)
	labels := transposeLabels(randomLabels(3, 2, 3), 3)
	vars := []*anydiff.Var{trans}
	for _, x := range xs {
		vars = append(vars, x.(*anydiff.Var))
	}
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return SeqCost(trans, anyseq.ResSeq(c, resBatches(xs, 3)), labels)
		},
		V:     vars,
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestSeqCostEmpty(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trans, _ := randomInputs(c, 1, 2, 1)
	seqs := anyseq.ConstSeqList(c, [][]anyvec.Vector{})
	if n := SeqCost(trans, seqs, nil).Output().Len(); n != 0 {
		t.Errorf("expected empty output but got %d components", n)
	}
	if paths := SeqViterbi(trans, seqs); len(paths) != 0 {
		t.Errorf("expected no paths but got %v", paths)
	}
}

func TestSeqCostAbsent(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trans, _ := randomInputs(c, 1, 2, 1)
	seqs := anyseq.ConstSeqList(c, [][]anyvec.Vector{
		{c.MakeVector(2), c.MakeVector(2)},
		{c.MakeVector(2)},
	})
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	SeqCost(trans, seqs, [][]int{{0, 1}, {1}})
}

func TestSeqViterbi(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trans, xs := randomInputs(c, 3, 4, 5)
	seqs := anyseq.ResSeq(c, resBatches(xs, 3))

	_, path := Viterbi(trans, xs)
	expected := transposeLabels(path, 3)
	if actual := SeqViterbi(trans, seqs); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func resBatches(xs []anydiff.Res, n int) []*anyseq.ResBatch {
	present := make([]bool, n)
	for i := range present {
		present[i] = true
	}
	res := make([]*anyseq.ResBatch, len(xs))
	for i, x := range xs {
		res[i] = &anyseq.ResBatch{Packed: x, Present: present}
	}
	return res
}
