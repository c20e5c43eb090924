// Package report formats build results, history and loaded signals for the
// terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"

	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/ptbxl"
)

const shortIDLen = 8

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ShortID returns the leading characters of a build id.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// RenderBuildSummary prints the outcome of a build and the dataset statistics.
func RenderBuildSummary(w io.Writer, summary model.BuildSummary, st dataset.Stats) error {
	source := "built"
	if summary.CacheHit {
		source = "cache"
	}
	lines := []string{
		"Dataset",
		fmt.Sprintf("Build: %s (%s)", ShortID(summary.ID), source),
		fmt.Sprintf("Directory: %s", summary.SourceDir),
		fmt.Sprintf("Windows: %s x %d samples", humanize.Comma(int64(st.Windows)), st.WindowLen),
		fmt.Sprintf("Label ratio: %.2f%%", st.LabelRatio*100),
		fmt.Sprintf("Amplitude: mean=%.3f std=%.3f min=%.3f max=%.3f", st.Mean, st.Std, st.Min, st.Max),
		fmt.Sprintf("Amplitude p5/p95: %.3f / %.3f", st.P05, st.P95),
	}
	if !summary.CacheHit {
		lines = append(lines,
			fmt.Sprintf("Records: %d used, %d excluded, %d failed", summary.RecordsUsed, summary.RecordsExcluded, summary.RecordsFailed),
			fmt.Sprintf("Took: %s", summary.EndedAt.Sub(summary.StartedAt).Round(time.Millisecond)),
		)
		if errs := multierr.Errors(summary.RecordErrors); len(errs) > 0 {
			lines = append(lines, "Record errors:")
			for _, err := range errs {
				lines = append(lines, "  "+err.Error())
			}
		}
	}
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderOutcomes prints one row per record of a build.
func RenderOutcomes(w io.Writer, outcomes []model.RecordOutcome) error {
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}
	headers := []string{"Record", "Status", "Channels", "Windows", "Detail"}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			o.Record,
			o.Status,
			fmt.Sprintf("%d", o.Channels),
			humanize.Comma(int64(o.Windows)),
			o.Detail,
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{2: true, 3: true}))
}

// RenderHistory prints recent builds, newest first as given.
func RenderHistory(w io.Writer, builds []model.BuildSummary, now time.Time) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(w, "No builds found.")
		return err
	}
	headers := []string{"ID", "When", "Windows", "Used", "Excluded", "Failed", "Cache", "Directory"}
	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		cache := "no"
		if b.CacheHit {
			cache = "yes"
		}
		rows = append(rows, []string{
			ShortID(b.ID),
			humanize.RelTime(b.StartedAt, now, "ago", "from now"),
			humanize.Comma(int64(b.Windows)),
			fmt.Sprintf("%d", b.RecordsUsed),
			fmt.Sprintf("%d", b.RecordsExcluded),
			fmt.Sprintf("%d", b.RecordsFailed),
			cache,
			b.SourceDir,
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true}))
}

// RenderSignals prints the loaded PTB-XL leads.
func RenderSignals(w io.Writer, signals []ptbxl.Signal) error {
	if len(signals) == 0 {
		_, err := fmt.Fprintln(w, "No records loaded.")
		return err
	}
	headers := []string{"ECG ID", "Record", "Rate (Hz)", "Samples", "Duration"}
	rows := make([][]string, 0, len(signals))
	for _, s := range signals {
		dur := time.Duration(float64(len(s.Samples)) / s.Fs * float64(time.Second))
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.Name,
			fmt.Sprintf("%g", s.Fs),
			humanize.Comma(int64(len(s.Samples))),
			dur.String(),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 2: true, 3: true}))
}
