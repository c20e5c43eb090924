package preprocess

import (
	"fmt"

	"github.com/verte-zerg/ecgprep/internal/model"
)

// DefaultExpandRadius is the number of samples marked on each side of an
// event by ExpandLabels.
const DefaultExpandRadius = 5

// DefaultBeatSymbols lists the annotation symbols that denote a heartbeat.
var DefaultBeatSymbols = []string{
	"N", "L", "R", "B", "A", "a", "J", "S", "V", "r",
	"F", "e", "j", "n", "E", "f", "Q", "?",
}

// EventVector returns a vector of length n with a 1 at every sample index.
// Indices outside [0, n) are ignored.
func EventVector(n int, samples []int) []uint8 {
	if n < 0 {
		n = 0
	}
	out := make([]uint8, n)
	for _, s := range samples {
		if s >= 0 && s < n {
			out[s] = 1
		}
	}
	return out
}

// FilterAnnotations returns the unique, sorted sample positions of the
// annotations whose symbol is in whitelist.
func FilterAnnotations(set *model.AnnotationSet, whitelist []string) []int {
	if set == nil {
		return nil
	}
	allowed := make(map[string]struct{}, len(whitelist))
	for _, s := range whitelist {
		allowed[s] = struct{}{}
	}
	var samples []int
	for i, s := range set.Samples {
		if i >= len(set.Symbols) {
			break
		}
		if _, ok := allowed[set.Symbols[i]]; ok {
			samples = append(samples, s)
		}
	}
	return uniqueSorted(samples)
}

// ExpandLabels widens every event in each window to cover radius samples on
// both sides, clipped to the window. The input is not modified. name only
// labels errors.
func ExpandLabels(windows [][]uint8, radius int, name string) ([][]uint8, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%s: expansion radius must be non-negative, got %d", name, radius)
	}
	out := make([][]uint8, len(windows))
	for wi, w := range windows {
		expanded := make([]uint8, len(w))
		copy(expanded, w)
		for i, v := range w {
			if v != 1 {
				continue
			}
			lo := max(i-radius, 0)
			hi := min(i+radius, len(w)-1)
			for j := lo; j <= hi; j++ {
				expanded[j] = 1
			}
		}
		out[wi] = expanded
	}
	return out, nil
}

// Positives counts the ones across all windows.
func Positives(windows [][]uint8) int {
	n := 0
	for _, w := range windows {
		for _, v := range w {
			if v == 1 {
				n++
			}
		}
	}
	return n
}
