package anyupdate

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Inputs is a mini-batch which can be split into a list
// of vectors.
type Inputs interface {
	Vectors() []anyvec.Vector
}

// Standard is the typical Updater.
//
// It wraps every input vector in a constant, passes the
// constants to the optimizer along with a loss function,
// and then reports every scalar metric of the target.
type Standard struct {
	Base

	// LossFunc is the loss to optimize.
	// If it is nil, the target's Loss is used.
	LossFunc LossFunc
}

// Update performs one optimization step.
//
// The inputs may be an anyvec.Vector, an []anyvec.Vector,
// or an Inputs.
func (s *Standard) Update(inputs interface{}, opt Optimizer) (Result, error) {
	vecs, err := inputVectors(inputs)
	if err != nil {
		return nil, err
	}
	args := make([]anydiff.Res, len(vecs))
	for i, v := range vecs {
		args[i] = anydiff.NewConst(v)
	}

	lossFunc := s.LossFunc
	if lossFunc == nil {
		lossFunc = opt.Target().Loss
	}
	if err := opt.Update(lossFunc, args...); err != nil {
		return nil, essentials.AddCtx("update", err)
	}

	return ScalarMetrics(opt.Target()), nil
}

// ScalarMetrics gathers the metrics of a Target which
// have exactly one component.
func ScalarMetrics(t Target) Result {
	res := Result{}
	for name, value := range t.Metrics() {
		if value == nil {
			continue
		}
		if out := value.Output(); out.Len() == 1 {
			res[name] = floatSum(out)
		}
	}
	return res
}

func inputVectors(inputs interface{}) ([]anyvec.Vector, error) {
	switch inputs := inputs.(type) {
	case Inputs:
		return inputs.Vectors(), nil
	case []anyvec.Vector:
		return inputs, nil
	case anyvec.Vector:
		return []anyvec.Vector{inputs}, nil
	default:
		return nil, fmt.Errorf("update: unsupported inputs: %T", inputs)
	}
}

func floatSum(v anyvec.Vector) float64 {
	switch sum := anyvec.Sum(v).(type) {
	case float32:
		return float64(sum)
	case float64:
		return sum
	default:
		return 0
	}
}
