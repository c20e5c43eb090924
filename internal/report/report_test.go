package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/ptbxl"
)

func TestRenderBuildSummary(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	summary := model.BuildSummary{
		ID:              "0123456789abcdef",
		SourceDir:       "/data/mitdb",
		StartedAt:       start,
		EndedAt:         start.Add(1500 * time.Millisecond),
		RecordsUsed:     44,
		RecordsExcluded: 4,
	}
	st := dataset.Stats{Windows: 12345, WindowLen: 1800, LabelRatio: 0.0425, Mean: 0.5}

	var buf bytes.Buffer
	if err := RenderBuildSummary(&buf, summary, st); err != nil {
		t.Fatalf("RenderBuildSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Build: 01234567 (built)", "Windows: 12,345 x 1800 samples", "Label ratio: 4.25%", "Records: 44 used, 4 excluded, 0 failed", "Took: 1.5s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	summary.CacheHit = true
	if err := RenderBuildSummary(&buf, summary, st); err != nil {
		t.Fatalf("RenderBuildSummary failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(cache)") || strings.Contains(buf.String(), "Records:") {
		t.Fatalf("unexpected cached summary:\n%s", buf.String())
	}
}

func TestRenderBuildSummaryRecordErrors(t *testing.T) {
	summary := model.BuildSummary{
		ID:            "0123456789abcdef",
		RecordsUsed:   1,
		RecordsFailed: 2,
		RecordErrors: multierr.Combine(
			errors.New("record 101: truncated signal file"),
			errors.New("record 102: missing header"),
		),
	}
	var buf bytes.Buffer
	if err := RenderBuildSummary(&buf, summary, dataset.Stats{Windows: 1, WindowLen: 10}); err != nil {
		t.Fatalf("RenderBuildSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Record errors:", "  record 101: truncated signal file", "  record 102: missing header"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	summary.RecordErrors = nil
	if err := RenderBuildSummary(&buf, summary, dataset.Stats{Windows: 1, WindowLen: 10}); err != nil {
		t.Fatalf("RenderBuildSummary failed: %v", err)
	}
	if strings.Contains(buf.String(), "Record errors:") {
		t.Fatalf("unexpected record errors:\n%s", buf.String())
	}
}

func TestRenderOutcomes(t *testing.T) {
	var buf bytes.Buffer
	err := RenderOutcomes(&buf, []model.RecordOutcome{
		{Record: "100", Status: model.StatusUsed, Channels: 2, Windows: 722},
		{Record: "102", Status: model.StatusExcluded, Detail: "paced"},
	})
	if err != nil {
		t.Fatalf("RenderOutcomes failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[2], "102") || !strings.HasSuffix(lines[2], "paced") {
		t.Fatalf("unexpected row: %q", lines[2])
	}

	buf.Reset()
	if err := RenderOutcomes(&buf, nil); err != nil {
		t.Fatalf("RenderOutcomes failed: %v", err)
	}
	if buf.String() != "No records found.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := RenderHistory(&buf, []model.BuildSummary{
		{ID: "aaaaaaaa-bbbb", StartedAt: now.Add(-2 * time.Hour), Windows: 2000, RecordsUsed: 3, SourceDir: "/data/a"},
		{ID: "cccccccc-dddd", StartedAt: now.Add(-3 * 24 * time.Hour), CacheHit: true, SourceDir: "/data/b"},
	}, now)
	if err != nil {
		t.Fatalf("RenderHistory failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"aaaaaaaa", "2 hours ago", "2,000", "3 days ago", "yes", "/data/b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSignals(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSignals(&buf, []ptbxl.Signal{{ID: 1, Name: "00001_hr", Fs: 500, Samples: make([]float64, 5000)}})
	if err != nil {
		t.Fatalf("RenderSignals failed: %v", err)
	}
	if !strings.Contains(buf.String(), "00001_hr") || !strings.Contains(buf.String(), "10s") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := ShortID("0123456789"); got != "01234567" {
		t.Fatalf("unexpected short id %q", got)
	}
}
