package anycrf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r RNNTagger
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRNNTagger)
}

// An RNNTagger is a CRF whose emission scores come from a
// bidirectional RNN, so every emission can depend on the
// whole input sequence.
//
// An RNNTagger operates on anyseq.Seq batches, in which
// every sequence must be present at every timestep.
type RNNTagger struct {
	Encoder     *anyrnn.Bidir
	Transitions *anydiff.Var
}

// NewRNNTagger creates a tagger with LSTMs of the given
// hidden size in each direction.
// The transition matrix starts at zero.
func NewRNNTagger(c anyvec.Creator, inSize, hidden, numLabels int) *RNNTagger {
	return &RNNTagger{
		Encoder: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, inSize, hidden),
			Backward: anyrnn.NewLSTM(c, inSize, hidden),
			Mixer: &anynet.AddMixer{
				In1: anynet.NewFC(c, hidden, numLabels),
				In2: anynet.NewFC(c, hidden, numLabels),
				Out: anynet.Net{},
			},
		},
		Transitions: anydiff.NewVar(c.MakeVector(numLabels * numLabels)),
	}
}

// DeserializeRNNTagger deserializes an RNNTagger.
func DeserializeRNNTagger(d []byte) (*RNNTagger, error) {
	var res RNNTagger
	var trans *anyvecsave.S
	if err := serializer.DeserializeAny(d, &res.Encoder, &trans); err != nil {
		return nil, essentials.AddCtx("deserialize RNNTagger", err)
	}
	res.Transitions = anydiff.NewVar(trans.Vector)
	return &res, nil
}

// Emissions computes the emission scores for every
// timestep of every sequence.
func (r *RNNTagger) Emissions(seqs anyseq.Seq) anyseq.Seq {
	return r.Encoder.Apply(seqs)
}

// Cost computes the negative log-likelihood of each label
// sequence.
// labels[i] corresponds to the i-th sequence.
func (r *RNNTagger) Cost(seqs anyseq.Seq, labels [][]int) anydiff.Res {
	return SeqCost(r.Transitions, r.Emissions(seqs), labels)
}

// Decode finds the most likely labels for each sequence.
func (r *RNNTagger) Decode(seqs anyseq.Seq) [][]int {
	return SeqViterbi(r.Transitions, r.Emissions(seqs))
}

// Parameters returns the encoder's parameters followed by
// the transition matrix.
func (r *RNNTagger) Parameters() []*anydiff.Var {
	return append(r.Encoder.Parameters(), r.Transitions)
}

// SerializerType returns the unique ID used to serialize
// an RNNTagger with the serializer package.
func (r *RNNTagger) SerializerType() string {
	return "github.com/unixpickle/anycrf.RNNTagger"
}

// Serialize serializes the tagger.
func (r *RNNTagger) Serialize() ([]byte, error) {
	return serializer.SerializeAny(r.Encoder, &anyvecsave.S{Vector: r.Transitions.Vector})
}
