package dataset

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Stats describes the contents of a dataset.
type Stats struct {
	Windows    int
	WindowLen  int
	LabelRatio float64
	Mean       float64
	Std        float64
	Min        float64
	Max        float64
	P05        float64
	P95        float64
}

// Summarize computes amplitude statistics over all inputs and the fraction of
// positive label samples.
func Summarize(d *Dataset) (Stats, error) {
	if d.Len() == 0 {
		return Stats{}, ErrEmpty
	}
	data := stats.Float64Data(d.Inputs())
	s := Stats{
		Windows:    d.Len(),
		WindowLen:  d.WindowLen,
		LabelRatio: float64(d.Positives()) / float64(len(data)),
	}
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Stats{}, fmt.Errorf("failed to compute mean: %w", err)
	}
	if s.Std, err = stats.StandardDeviation(data); err != nil {
		return Stats{}, fmt.Errorf("failed to compute standard deviation: %w", err)
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Stats{}, fmt.Errorf("failed to compute minimum: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Stats{}, fmt.Errorf("failed to compute maximum: %w", err)
	}
	if s.P05, err = stats.PercentileNearestRank(data, 5); err != nil {
		return Stats{}, fmt.Errorf("failed to compute percentile: %w", err)
	}
	if s.P95, err = stats.PercentileNearestRank(data, 95); err != nil {
		return Stats{}, fmt.Errorf("failed to compute percentile: %w", err)
	}
	return s, nil
}
