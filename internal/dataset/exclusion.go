package dataset

import (
	"slices"
	"strings"

	"github.com/verte-zerg/ecgprep/internal/model"
)

// DefaultExclusions drops paced MIT-BIH records and the duplicate Apnea-ECG
// record c05.
func DefaultExclusions() []model.ExclusionRule {
	return []model.ExclusionRule{
		{Match: "mitdb", DisqualifyingSymbols: []string{"/"}},
		{Match: "apnea-ecg", SkipRecords: []string{"c05"}},
	}
}

// activeRules returns the rules whose Match is contained in dir.
func activeRules(dir string, rules []model.ExclusionRule) []model.ExclusionRule {
	var out []model.ExclusionRule
	for _, r := range rules {
		if r.Match != "" && strings.Contains(dir, r.Match) {
			out = append(out, r)
		}
	}
	return out
}

// skipReason reports why name is excluded before it is read, or "".
func skipReason(name string, rules []model.ExclusionRule) string {
	for _, r := range rules {
		if slices.Contains(r.SkipRecords, name) {
			return "skipped by " + r.Match + " rule"
		}
	}
	return ""
}

// disqualifyReason reports why a record with these annotations is excluded,
// or "".
func disqualifyReason(set *model.AnnotationSet, rules []model.ExclusionRule) string {
	for _, r := range rules {
		for _, sym := range r.DisqualifyingSymbols {
			if set.HasSymbol(sym) {
				return "annotation " + sym + " disqualifies record under " + r.Match + " rule"
			}
		}
	}
	return ""
}
