// Package anyupdate defines updaters, which perform a
// single optimization step for each mini-batch of a
// training loop.
//
// An Updater is given a mini-batch and an Optimizer.
// It runs the optimizer on a loss function and reports a
// flat set of scalar statistics, such as the loss or the
// accuracy, which the training loop can log or average.
package anyupdate

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
)

// ErrNotImplemented is returned by updaters which do not
// define an update step.
var ErrNotImplemented = errors.New("update: not implemented")

// A Result maps statistic names to their values.
type Result map[string]float64

// A LossFunc computes a differentiable loss from a list of
// inputs.
type LossFunc func(args ...anydiff.Res) anydiff.Res

// A Target is a model that an Optimizer trains.
type Target interface {
	anynet.Parameterizer

	// Loss computes the model's loss for some inputs.
	Loss(args ...anydiff.Res) anydiff.Res

	// Metrics returns named values which the model wants
	// to report.
	// Updaters only report values with one component.
	Metrics() map[string]anydiff.Res
}

// An Optimizer updates the parameters of a Target.
type Optimizer interface {
	Target() Target

	// Update computes f(args...) and takes one step to
	// reduce it.
	Update(f LossFunc, args ...anydiff.Res) error
}

// An Updater performs one training step per mini-batch.
//
// The inputs are whatever the training loop produced for
// the mini-batch.
//
// An Updater may own optimizers besides the one it is
// given.
// In this case, Serialize should serialize them too;
// nothing enforces this.
type Updater interface {
	Update(inputs interface{}, opt Optimizer) (Result, error)
	Serialize(s Serializer) error
}

// Base is an Updater with no update step and no state.
//
// It can be embedded in other updaters to inherit a no-op
// Serialize.
type Base struct{}

// Update returns ErrNotImplemented.
func (b Base) Update(inputs interface{}, opt Optimizer) (Result, error) {
	return nil, ErrNotImplemented
}

// Serialize does nothing, since a Base has no state.
func (b Base) Serialize(s Serializer) error {
	return nil
}

// Func is an Updater which calls a function.
// It has no state to serialize.
type Func func(inputs interface{}, opt Optimizer) (Result, error)

// Update calls f.
func (f Func) Update(inputs interface{}, opt Optimizer) (Result, error) {
	return f(inputs, opt)
}

// Serialize does nothing.
func (f Func) Serialize(s Serializer) error {
	return nil
}
