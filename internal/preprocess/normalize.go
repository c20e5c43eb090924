package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrConstantSignal is returned when a sequence has zero amplitude range.
var ErrConstantSignal = errors.New("constant signal")

// NormMinMax returns x linearly rescaled so its minimum maps to lower and its
// maximum to upper.
func NormMinMax(x []float64, lower, upper float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, errors.New("cannot normalize empty sequence")
	}
	if upper <= lower {
		return nil, fmt.Errorf("invalid range [%g, %g]", lower, upper)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("sample %d is not finite", i)
		}
	}
	lo, hi := floats.Min(x), floats.Max(x)
	if hi == lo {
		return nil, ErrConstantSignal
	}

	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-lo, out)
	floats.Scale((upper-lower)/(hi-lo), out)
	floats.AddConst(lower, out)
	return out, nil
}

// NormalizeWindows scales every window to [0, 1]. Windows that cannot be
// normalized keep their raw samples and are reported in invalid.
func NormalizeWindows(windows [][]float64) (out [][]float64, invalid []int) {
	out = make([][]float64, len(windows))
	for i, w := range windows {
		norm, err := NormMinMax(w, 0, 1)
		if err != nil {
			out[i] = w
			invalid = append(invalid, i)
			continue
		}
		out[i] = norm
	}
	return out, invalid
}

// InvalidWindows reports the windows containing a non-finite sample.
func InvalidWindows(windows [][]float64) []int {
	var invalid []int
	for i, w := range windows {
		for _, v := range w {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				invalid = append(invalid, i)
				break
			}
		}
	}
	return invalid
}
