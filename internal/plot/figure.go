// Package plot renders ECG signal slices with their beat annotations, either
// as a braille chart on the terminal or as a PNG image.
package plot

import (
	"errors"
	"fmt"
	"math"
)

// Figure is a signal slice with optional event overlays.
type Figure struct {
	Title string
	// Label names the signal series; "signal" when empty.
	Label  string
	Signal []float64
	Fs     float64
	// Offset is the sample index of Signal[0] in the full recording. It only
	// shifts the time axis.
	Offset int
	// Events are sample positions relative to Signal[0], drawn as markers.
	Events []int
	// Indicator is a per-sample probability or 0/1 sequence drawn as a
	// second series. It must be as long as Signal when set.
	Indicator []float64
	// HRV is rendered in the heading when set.
	HRV *float64
}

func (f Figure) validate() error {
	if len(f.Signal) == 0 {
		return errors.New("figure has no samples")
	}
	if f.Fs <= 0 || math.IsNaN(f.Fs) {
		return fmt.Errorf("sampling rate must be positive, got %g", f.Fs)
	}
	if f.Indicator != nil && len(f.Indicator) != len(f.Signal) {
		return fmt.Errorf("indicator has %d samples, signal has %d", len(f.Indicator), len(f.Signal))
	}
	return nil
}

func (f Figure) label() string {
	if f.Label == "" {
		return "signal"
	}
	return f.Label
}

// Heading returns the title line including the HRV annotation.
func (f Figure) Heading() string {
	switch {
	case f.HRV == nil:
		return f.Title
	case f.Title == "":
		return fmt.Sprintf("HRV: %.3f", *f.HRV)
	default:
		return fmt.Sprintf("%s  HRV: %.3f", f.Title, *f.HRV)
	}
}

// Seconds returns the time of each sample in seconds.
func (f Figure) Seconds() []float64 {
	out := make([]float64, len(f.Signal))
	for i := range out {
		out[i] = float64(f.Offset+i) / f.Fs
	}
	return out
}

// visibleEvents returns the events inside the signal, in order.
func (f Figure) visibleEvents() []int {
	var out []int
	for _, e := range f.Events {
		if e >= 0 && e < len(f.Signal) {
			out = append(out, e)
		}
	}
	return out
}
