// Package preprocess turns recordings into fixed-length training windows:
// windowing, normalization, label construction and a few signal helpers.
package preprocess

import (
	"fmt"
	"math"
	"sort"
)

// WindowOptions configures Windows.
type WindowOptions struct {
	Seconds float64
	Fs      float64
	// Overlap is the fraction of a window shared with the next one, in [0, 1).
	Overlap float64
}

// Len returns the window length in samples.
func (o WindowOptions) Len() int {
	return int(math.Round(o.Seconds * o.Fs))
}

// Step returns the distance between consecutive window starts.
func (o WindowOptions) Step() int {
	n := o.Len()
	step := n - int(float64(n)*o.Overlap)
	if step < 1 {
		step = 1
	}
	return step
}

func (o WindowOptions) validate() error {
	if o.Seconds <= 0 || math.IsNaN(o.Seconds) || math.IsInf(o.Seconds, 0) {
		return fmt.Errorf("window length must be positive, got %g s", o.Seconds)
	}
	if o.Fs <= 0 || math.IsNaN(o.Fs) || math.IsInf(o.Fs, 0) {
		return fmt.Errorf("sampling rate must be positive, got %g Hz", o.Fs)
	}
	if o.Overlap < 0 || o.Overlap >= 1 || math.IsNaN(o.Overlap) {
		return fmt.Errorf("overlap must be in [0, 1), got %g", o.Overlap)
	}
	if o.Len() < 1 {
		return fmt.Errorf("window of %g s at %g Hz is shorter than one sample", o.Seconds, o.Fs)
	}
	return nil
}

// Windows splits seq into consecutive windows of opts.Len() samples. The
// trailing partial window is dropped. The returned windows share seq's
// backing array.
func Windows[T any](seq []T, opts WindowOptions) ([][]T, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := opts.Len()
	step := opts.Step()
	if n > len(seq) {
		return [][]T{}, nil
	}
	out := make([][]T, 0, (len(seq)-n)/step+1)
	for start := 0; start+n <= len(seq); start += step {
		out = append(out, seq[start:start+n:start+n])
	}
	return out, nil
}

// Drop returns windows without the entries at the given indices. Order of
// the remaining windows is preserved.
func Drop[T any](windows [][]T, indices []int) [][]T {
	if len(indices) == 0 {
		return windows
	}
	skip := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		skip[i] = struct{}{}
	}
	out := make([][]T, 0, len(windows))
	for i, w := range windows {
		if _, ok := skip[i]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

func uniqueSorted(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	out := append([]int(nil), values...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
