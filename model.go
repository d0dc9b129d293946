package anycrf

import (
	"fmt"
	"math"

	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A Model is a sequence tagger which feeds the output of
// a neural network into a linear-chain CRF.
type Model struct {
	// Emitter is applied to every timestep to produce the
	// emission scores.
	// An empty Net uses the inputs as emission scores.
	Emitter anynet.Net

	// Transitions is the L*L transition matrix.
	Transitions *anydiff.Var

	lastLoss     anydiff.Res
	lastAccuracy anydiff.Res
}

// NewModel creates a Model with a single fully-connected
// emission layer and all-zero transition scores.
func NewModel(c anyvec.Creator, inSize, numLabels int) *Model {
	return &Model{
		Emitter:     anynet.Net{anynet.NewFC(c, inSize, numLabels)},
		Transitions: anydiff.NewVar(c.MakeVector(numLabels * numLabels)),
	}
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var emitter anynet.Net
	var trans *anyvecsave.S
	if err := serializer.DeserializeAny(d, &emitter, &trans); err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if squareSide(trans.Vector.Len()) == 0 {
		return nil, fmt.Errorf("deserialize Model: %d transitions is not square",
			trans.Vector.Len())
	}
	return &Model{
		Emitter:     emitter,
		Transitions: anydiff.NewVar(trans.Vector),
	}, nil
}

// NumLabels returns the number of labels.
func (m *Model) NumLabels() int {
	return squareSide(m.Transitions.Vector.Len())
}

// Emissions applies the emitter to every timestep.
func (m *Model) Emissions(ins []anydiff.Res, batch int) []anydiff.Res {
	res := make([]anydiff.Res, len(ins))
	for i, in := range ins {
		res[i] = m.Emitter.Apply(in, batch)
	}
	return res
}

// Loss computes the mean negative log-likelihood for a
// batch.
//
// The first half of args are the inputs at each timestep,
// and the second half are the labels at each timestep.
// Labels are stored as numbers, one per batch element.
//
// As a side effect, Loss records the metrics returned by
// Metrics.
func (m *Model) Loss(args ...anydiff.Res) anydiff.Res {
	if len(args) == 0 || len(args)%2 != 0 {
		panic(fmt.Sprintf("expected inputs and labels but got %d arguments", len(args)))
	}
	ins, labelRes := args[:len(args)/2], args[len(args)/2:]
	batch := labelRes[0].Output().Len()
	labels := make([][]int, len(labelRes))
	for i, l := range labelRes {
		labels[i] = labelInts(l.Output())
	}

	emissions := m.Emissions(ins, batch)
	costs := Cost(m.Transitions, emissions, labels)
	c := costs.Output().Creator()
	loss := anydiff.Scale(anydiff.Sum(costs), c.MakeNumeric(1/float64(batch)))

	_, path := Viterbi(m.Transitions, emissions)
	acc := anytensor.MakeVector(c, []float64{accuracy(path, labels)})

	m.lastLoss = loss
	m.lastAccuracy = anydiff.NewConst(acc)
	return loss
}

// Metrics returns the values recorded by the last call to
// Loss, along with the transition matrix.
func (m *Model) Metrics() map[string]anydiff.Res {
	res := map[string]anydiff.Res{"transitions": m.Transitions}
	if m.lastLoss != nil {
		res["loss"] = m.lastLoss
		res["accuracy"] = m.lastAccuracy
	}
	return res
}

// Decode finds the most likely labels for a batch of
// input sequences.
// The result is timestep-major, like the path from
// Viterbi.
func (m *Model) Decode(ins []anyvec.Vector, batch int) [][]int {
	inRes := make([]anydiff.Res, len(ins))
	for i, in := range ins {
		inRes[i] = anydiff.NewConst(in)
	}
	_, path := Viterbi(m.Transitions, m.Emissions(inRes, batch))
	return path
}

// Parameters returns the emitter's parameters followed by
// the transition matrix.
func (m *Model) Parameters() []*anydiff.Var {
	return append(m.Emitter.Parameters(), m.Transitions)
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/unixpickle/anycrf.Model"
}

// Serialize serializes the model.
// This fails if any emitter layer is not serializable.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		m.Emitter,
		&anyvecsave.S{Vector: m.Transitions.Vector},
	)
}

func labelInts(v anyvec.Vector) []int {
	vals := anytensor.Floats(v)
	res := make([]int, len(vals))
	for i, x := range vals {
		res[i] = int(math.Round(x))
	}
	return res
}

func accuracy(path, labels [][]int) float64 {
	var correct, total int
	for t, step := range path {
		for i, label := range step {
			if labels[t][i] == label {
				correct++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
