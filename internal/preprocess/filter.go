package preprocess

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// Smooth applies a moving average of kernel samples. The signal is padded
// with its edge values so the output has the same length as the input.
// A kernel of 0 or 1 returns a copy.
func Smooth(signal []float64, kernel int) ([]float64, error) {
	if kernel < 0 {
		return nil, fmt.Errorf("kernel length must be non-negative, got %d", kernel)
	}
	out := make([]float64, len(signal))
	if kernel <= 1 || len(signal) == 0 {
		copy(out, signal)
		return out, nil
	}

	pad := kernel / 2
	last := len(signal) - 1
	at := func(j int) float64 {
		j -= pad
		switch {
		case j < 0:
			return signal[0]
		case j > last:
			return signal[last]
		}
		return signal[j]
	}

	weight := 1 / float64(kernel)
	for i := range out {
		var sum float64
		for j := i; j < i+kernel; j++ {
			sum += at(j)
		}
		out[i] = sum * weight
	}
	return out, nil
}

// Downsample keeps every factor-th sample, where factor is
// int(fromHz / toHz).
func Downsample(signal []float64, fromHz, toHz float64) ([]float64, error) {
	if fromHz <= 0 || toHz <= 0 {
		return nil, fmt.Errorf("sampling rates must be positive, got %g and %g", fromHz, toHz)
	}
	factor := int(fromHz / toHz)
	if factor < 1 {
		return nil, fmt.Errorf("cannot downsample from %g Hz to %g Hz", fromHz, toHz)
	}
	out := make([]float64, 0, (len(signal)+factor-1)/factor)
	for i := 0; i < len(signal); i += factor {
		out = append(out, signal[i])
	}
	return out, nil
}

// RRIntervals returns the intervals between consecutive peaks in
// milliseconds.
func RRIntervals(peaks []int, fs float64) []float64 {
	if len(peaks) < 2 || fs <= 0 {
		return nil
	}
	out := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		out[i-1] = float64(peaks[i]-peaks[i-1]) * 1000 / fs
	}
	return out
}

// HRV returns the RR intervals (ms) of the given peaks and their population
// standard deviation (SDNN).
func HRV(peaks []int, fs float64) ([]float64, float64, error) {
	rr := RRIntervals(peaks, fs)
	if len(rr) == 0 {
		return nil, 0, errors.New("at least two peaks are required")
	}
	sdnn, err := stats.StandardDeviationPopulation(rr)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to compute SDNN: %w", err)
	}
	return rr, sdnn, nil
}
