// Package model defines shared data structures.
package model

import "time"

// Record is one multi-channel physiological recording held in memory.
type Record struct {
	Name    string
	Fs      float64
	SigLen  int
	NSig    int
	Labels  []string
	Units   []string
	Signals [][]float64 // Signals[channel][sample], physical units, NaN for missing samples.
}

// Channel returns the samples of channel c.
func (r *Record) Channel(c int) []float64 {
	return r.Signals[c]
}

// AnnotationSet holds point annotations as parallel sample/symbol slices.
type AnnotationSet struct {
	Record  string
	Ext     string
	Samples []int
	Symbols []string
}

// Len returns the number of annotations.
func (a *AnnotationSet) Len() int {
	return len(a.Samples)
}

// HasSymbol reports whether any annotation carries sym.
func (a *AnnotationSet) HasSymbol(sym string) bool {
	for _, s := range a.Symbols {
		if s == sym {
			return true
		}
	}
	return false
}

// ExclusionRule drops records for datasets whose directory path contains Match.
type ExclusionRule struct {
	Match                string
	DisqualifyingSymbols []string
	SkipRecords          []string
}

// BuildConfig defines dataset assembly settings.
type BuildConfig struct {
	AnnotationExt string
	Force         bool
	WindowSeconds float64
	Expand        bool
	ExpandRadius  int
	Normalize     bool
	SmoothKernel  int
	BeatSymbols   []string
	Exclusions    []ExclusionRule
}

// Record outcome statuses.
const (
	StatusUsed     = "used"
	StatusExcluded = "excluded"
	StatusFailed   = "failed"
)

// RecordOutcome captures what a build did with one record.
type RecordOutcome struct {
	Record   string
	Status   string
	Channels int
	Windows  int
	Detail   string
}

// BuildSummary summarizes one dataset build.
type BuildSummary struct {
	ID              string
	SourceDir       string
	StartedAt       time.Time
	EndedAt         time.Time
	WindowSeconds   float64
	WindowSamples   int
	Expand          bool
	CacheHit        bool
	Windows         int
	RecordsUsed     int
	RecordsExcluded int
	RecordsFailed   int
	// Positives is the number of label samples equal to 1.
	Positives int
	Outcomes  []RecordOutcome
	// RecordErrors aggregates the per-record read failures of the build.
	RecordErrors error
}

// PlotConfig defines plot rendering settings.
type PlotConfig struct {
	Width      int
	Height     int
	ForceColor bool
}

// PTBXLConfig defines PTB-XL loading settings.
type PTBXLConfig struct {
	Class      string
	Rate       int
	Lead       int
	Limit      int
	TargetRate int
}
