// Command crfdemo trains a CRF tagger on sequences drawn
// from a random Markov chain, then reports how well the
// tagger decodes held-out sequences.
package main

import (
	"log"
	"math"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/unixpickle/anycrf"
	"github.com/unixpickle/anycrf/anytensor"
	"github.com/unixpickle/anycrf/anyupdate"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"github.com/unixpickle/serializer"
)

type Flags struct {
	NumLabels  int
	SeqLen     int
	NumSamples int
	BatchSize  int
	StepSize   float64
	Stickiness float64
	Noise      float64
	MaxIters   int
	OutFile    string
	Seed       int64
}

func main() {
	var flags Flags
	cmd := &cobra.Command{
		Use:           "crfdemo",
		Short:         "Train a linear-chain CRF on synthetic Markov sequences",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(&flags)
		},
	}
	f := cmd.Flags()
	f.IntVar(&flags.NumLabels, "labels", 4, "number of labels")
	f.IntVar(&flags.SeqLen, "length", 10, "sequence length")
	f.IntVar(&flags.NumSamples, "samples", 2000, "number of training samples")
	f.IntVar(&flags.BatchSize, "batch", 32, "mini-batch size")
	f.Float64Var(&flags.StepSize, "step", 0.01, "Adam step size")
	f.Float64Var(&flags.Stickiness, "sticky", 0.8, "probability of repeating a label")
	f.Float64Var(&flags.Noise, "noise", 1, "stddev of input noise")
	f.IntVar(&flags.MaxIters, "iters", 0, "maximum iterations (0 runs until interrupted)")
	f.StringVar(&flags.OutFile, "out", "", "file to save the trained model")
	f.Int64Var(&flags.Seed, "seed", 1337, "random seed")

	if err := cmd.Execute(); err != nil {
		essentials.Die(err)
	}
}

func run(flags *Flags) error {
	log.Println("Setting up...")
	rand.Seed(flags.Seed)
	c := anyvec32.CurrentCreator()

	chain := newMarkovChain(flags.NumLabels, flags.Stickiness)
	training := chain.Samples(c, flags.NumSamples, flags.SeqLen, flags.Noise)
	testing := chain.Samples(c, flags.NumSamples/10+1, flags.SeqLen, flags.Noise)

	model := anycrf.NewModel(c, flags.NumLabels, flags.NumLabels)
	epochSize := flags.NumSamples / flags.BatchSize
	if epochSize == 0 {
		epochSize = 1
	}
	opt := &anyupdate.SGD{
		Model:       model,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(flags.StepSize),
		EpochSize:   epochSize,
	}
	var updater anyupdate.Updater = &anyupdate.Standard{}

	log.Println("Press ctrl+c once to stop...")
	stop := rip.NewRIP().Chan()
	idx := training.Len()
TrainLoop:
	for iter := 0; flags.MaxIters == 0 || iter < flags.MaxIters; iter++ {
		select {
		case <-stop:
			break TrainLoop
		default:
		}
		if idx+flags.BatchSize > training.Len() {
			anysgd.Shuffle(training)
			idx = 0
		}
		samples := training.Slice(idx, idx+flags.BatchSize).(anycrf.SampleList)
		idx += flags.BatchSize

		batch, err := anycrf.Fetch(samples)
		if err != nil {
			return err
		}
		res, err := updater.Update(batch, opt)
		if err != nil {
			return err
		}
		log.Printf("iter %d: loss=%f accuracy=%f", iter, res["loss"], res["accuracy"])
	}

	log.Println("Computing statistics...")
	log.Printf("Validation accuracy: %f", accuracy(model, testing))
	log.Printf("Raw input accuracy: %f", chainAccuracy(chain, testing))

	if flags.OutFile != "" {
		if err := serializer.SaveAny(flags.OutFile, model); err != nil {
			return essentials.AddCtx("save model", err)
		}
		log.Println("Saved model to", flags.OutFile)
	}
	return nil
}

func accuracy(model *anycrf.Model, samples anycrf.SliceSampleList) float64 {
	batch, err := anycrf.Fetch(samples)
	if err != nil {
		essentials.Die(err)
	}
	path := model.Decode(batch.Inputs, batch.Num)
	var correct, total int
	for t, step := range path {
		for i, label := range step {
			if samples[i].Labels[t] == label {
				correct++
			}
			total++
		}
	}
	return float64(correct) / float64(total)
}

// chainAccuracy decodes the raw inputs using the chain's
// true log transition probabilities.
func chainAccuracy(chain *markovChain, samples anycrf.SliceSampleList) float64 {
	model := &anycrf.Model{
		Emitter:     anynet.Net{},
		Transitions: chain.LogTransitions(anyvec32.CurrentCreator()),
	}
	return accuracy(model, samples)
}

// A markovChain generates labels where each label is
// likely to be followed by itself.
type markovChain struct {
	NumLabels  int
	Stickiness float64
}

func newMarkovChain(numLabels int, stickiness float64) *markovChain {
	return &markovChain{NumLabels: numLabels, Stickiness: stickiness}
}

// LogTransitions returns the log transition matrix, where
// entry i*NumLabels+j is the log probability of moving
// from label i to label j.
func (m *markovChain) LogTransitions(c anyvec.Creator) *anydiff.Var {
	n := m.NumLabels
	other := (1 - m.Stickiness) / float64(n)
	res := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				res[i*n+j] = math.Log(m.Stickiness + other)
			} else {
				res[i*n+j] = math.Log(other)
			}
		}
	}
	return anydiff.NewVar(anytensor.MakeVector(c, res))
}

// Samples produces sequences where each input is a
// one-hot encoding of the label plus Gaussian noise.
func (m *markovChain) Samples(c anyvec.Creator, count, length int,
	noise float64) anycrf.SliceSampleList {
	res := make(anycrf.SliceSampleList, count)
	for i := range res {
		sample := &anycrf.Sample{}
		label := rand.Intn(m.NumLabels)
		for t := 0; t < length; t++ {
			if rand.Float64() >= m.Stickiness {
				label = rand.Intn(m.NumLabels)
			}
			in := make([]float64, m.NumLabels)
			for j := range in {
				in[j] = rand.NormFloat64() * noise
			}
			in[label] += 1
			sample.Inputs = append(sample.Inputs, anytensor.MakeVector(c, in))
			sample.Labels = append(sample.Labels, label)
		}
		res[i] = sample
	}
	return res
}
