package anycrf

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Sample is an input sequence paired with one label per
// timestep.
type Sample struct {
	Inputs []anyvec.Vector
	Labels []int
}

// A SampleList is an anysgd.SampleList that produces CRF
// samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
type SliceSampleList []*Sample

// Len returns the number of samples.
func (s SliceSampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceSampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return append(SliceSampleList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}

// A Batch stores a batch of equal-length sequences in a
// timestep-major, packed format.
type Batch struct {
	// Inputs contains one packed vector per timestep.
	Inputs []anyvec.Vector

	// Labels contains one vector of label indices per
	// timestep.
	Labels []anyvec.Vector

	// Num is the number of sequences.
	Num int
}

// Fetch produces a *Batch for a list of samples.
//
// The list may not be empty, and every sample must have
// the same, non-zero length.
func Fetch(s SampleList) (*Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	samples := make([]*Sample, s.Len())
	for i := range samples {
		sample, err := s.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		if len(sample.Inputs) == 0 {
			return nil, errors.New("fetch batch: empty sequence")
		} else if len(sample.Inputs) != len(sample.Labels) {
			return nil, fmt.Errorf("fetch batch: %d inputs but %d labels",
				len(sample.Inputs), len(sample.Labels))
		} else if i > 0 && len(sample.Inputs) != len(samples[0].Inputs) {
			return nil, fmt.Errorf("fetch batch: sequence lengths %d and %d differ",
				len(samples[0].Inputs), len(sample.Inputs))
		}
		samples[i] = sample
	}

	c := samples[0].Inputs[0].Creator()
	res := &Batch{Num: len(samples)}
	for t := range samples[0].Inputs {
		ins := make([]anyvec.Vector, len(samples))
		labels := make([]float64, len(samples))
		for i, sample := range samples {
			ins[i] = sample.Inputs[t]
			labels[i] = float64(sample.Labels[t])
		}
		res.Inputs = append(res.Inputs, c.Concat(ins...))
		res.Labels = append(res.Labels, anytensor.MakeVector(c, labels))
	}
	return res, nil
}

// Vectors returns the inputs followed by the labels.
// This is the argument layout expected by Model.Loss.
func (b *Batch) Vectors() []anyvec.Vector {
	return append(append([]anyvec.Vector{}, b.Inputs...), b.Labels...)
}
