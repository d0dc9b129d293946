package anytensor

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// Floats returns the components of a vector as float64
// values.
// The vector must use []float32 or []float64 numeric lists.
func Floats(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return append([]float64{}, d...)
	case []float32:
		s := make([]float64, len(d))
		for i, x := range d {
			s[i] = float64(x)
		}
		return s
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

// MakeVector creates a vector from float64 values with
// the given creator.
func MakeVector(c anyvec.Creator, vals []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(vals))
}
