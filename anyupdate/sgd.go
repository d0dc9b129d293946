package anyupdate

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// SGD is an Optimizer which takes gradient descent steps.
type SGD struct {
	// Model is the Target being trained.
	Model Target

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer anysgd.Transformer

	// Rater determines the learning rate for each step.
	Rater anysgd.Rater

	// EpochSize is the number of steps per epoch, used to
	// compute the epoch for Rater.
	// If it is 0, the epoch is always 0.
	EpochSize int

	// Iteration is the number of completed steps.
	Iteration int

	// LastLoss is set to the loss before each step.
	LastLoss float64
}

// Target returns s.Model.
func (s *SGD) Target() Target {
	return s.Model
}

// Update computes the loss, back-propagates through it,
// and steps the parameters of s.Model.
//
// If the loss has more than one component, the sum of
// the components is minimized.
func (s *SGD) Update(f LossFunc, args ...anydiff.Res) error {
	if s.Model == nil {
		return errors.New("update: no model")
	} else if s.Rater == nil {
		return errors.New("update: no rater")
	}

	grad := anydiff.NewGrad(s.Model.Parameters()...)
	loss := f(args...)
	if loss.Output().Len() != 1 {
		loss = anydiff.Sum(loss)
	}
	s.LastLoss = floatSum(loss.Output())

	c := loss.Output().Creator()
	loss.Propagate(c.MakeVectorData(c.MakeNumericList([]float64{1})), grad)
	if s.Transformer != nil {
		grad = s.Transformer.Transform(grad)
	}
	grad.Scale(c.MakeNumeric(-s.Rater.Rate(s.epoch())))
	grad.AddToVars()

	s.Iteration++
	return nil
}

// Serialize saves or restores the iteration count and,
// if it supports marshalling, the Transformer's state.
func (s *SGD) Serialize(ser Serializer) error {
	iteration := serializer.Int(s.Iteration)
	if err := ser.Serialize("iteration", &iteration); err != nil {
		return essentials.AddCtx("serialize SGD", err)
	}
	s.Iteration = int(iteration)
	if m, ok := s.Transformer.(anysgd.TransformMarshaler); ok {
		if err := ser.Serialize("transformer", m); err != nil {
			return essentials.AddCtx("serialize SGD", err)
		}
	}
	return nil
}

func (s *SGD) epoch() float64 {
	if s.EpochSize == 0 {
		return 0
	}
	return float64(s.Iteration) / float64(s.EpochSize)
}
