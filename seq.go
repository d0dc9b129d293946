package anycrf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// SeqCost is like Cost, but it takes its emission scores
// from an anyseq.Seq.
//
// Every sequence must be present at every timestep, since
// a linear-chain batch cannot mix sequence lengths.
// The labels are given per sequence, so labels[i][t] is
// the label of sequence i at timestep t.
//
// If the Seq has no timesteps, the result is empty.
func SeqCost(cost anydiff.Res, seqs anyseq.Seq, labels [][]int) anydiff.Res {
	if len(seqs.Output()) == 0 {
		return anydiff.NewConst(seqs.Creator().MakeVector(0))
	}
	ys := transposeLabels(labels, len(seqs.Output()))
	return poolSeq(seqs, func(steps []anydiff.Res) anydiff.Res {
		return Cost(cost, steps, ys)
	})
}

// SeqViterbi is like Viterbi, but it takes its emission
// scores from an anyseq.Seq.
//
// The result contains one label sequence per input
// sequence, unlike the timestep-major paths from Viterbi.
func SeqViterbi(cost anydiff.Res, seqs anyseq.Seq) [][]int {
	out := seqs.Output()
	if len(out) == 0 {
		return nil
	}
	steps := make([]anydiff.Res, len(out))
	for i, batch := range out {
		assertAllPresent(batch)
		steps[i] = anydiff.NewConst(batch.Packed)
	}
	_, path := Viterbi(cost, steps)
	return transposeLabels(path, len(out[0].Present))
}

// transposeLabels converts between sequence-major and
// timestep-major label lists.
func transposeLabels(labels [][]int, n int) [][]int {
	res := make([][]int, n)
	for i := range res {
		res[i] = make([]int, len(labels))
	}
	for i, seq := range labels {
		if len(seq) != n {
			panic("label sequence length does not match input sequence")
		}
		for t, label := range seq {
			res[t][i] = label
		}
	}
	return res
}

func assertAllPresent(b *anyseq.Batch) {
	for _, p := range b.Present {
		if !p {
			panic("every sequence must be present at every timestep")
		}
	}
}

// seqPoolRes exposes each timestep of a Seq as its own
// variable, then routes the gradients of those variables
// back into the Seq.
type seqPoolRes struct {
	In    anyseq.Seq
	Pools []*anydiff.Var
	Res   anydiff.Res
	V     anydiff.VarSet
}

func poolSeq(seqs anyseq.Seq, f func(steps []anydiff.Res) anydiff.Res) anydiff.Res {
	out := seqs.Output()
	pools := make([]*anydiff.Var, len(out))
	steps := make([]anydiff.Res, len(out))
	for i, batch := range out {
		assertAllPresent(batch)
		pools[i] = anydiff.NewVar(batch.Packed)
		steps[i] = pools[i]
	}
	res := f(steps)

	isPool := map[*anydiff.Var]bool{}
	for _, p := range pools {
		isPool[p] = true
	}
	var otherVars []*anydiff.Var
	for v := range res.Vars() {
		if !isPool[v] {
			otherVars = append(otherVars, v)
		}
	}

	return &seqPoolRes{
		In:    seqs,
		Pools: pools,
		Res:   res,
		V:     anydiff.MergeVarSets(seqs.Vars(), anydiff.NewVarSet(otherVars...)),
	}
}

func (s *seqPoolRes) Output() anyvec.Vector {
	return s.Res.Output()
}

func (s *seqPoolRes) Vars() anydiff.VarSet {
	return s.V
}

func (s *seqPoolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	for _, p := range s.Pools {
		g[p] = p.Vector.Creator().MakeVector(p.Vector.Len())
	}
	s.Res.Propagate(u, g)

	out := s.In.Output()
	upstream := make([]*anyseq.Batch, len(s.Pools))
	for i, p := range s.Pools {
		upstream[i] = &anyseq.Batch{
			Packed:  g[p],
			Present: out[i].Present,
		}
		delete(g, p)
	}
	if g.Intersects(s.In.Vars()) {
		s.In.Propagate(upstream, g)
	}
}
