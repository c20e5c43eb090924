package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ecgprep/internal/config"
	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/wfdb"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(t.TempDir(), "data"))
}

func writeRecord(t *testing.T, dir, name string, n int, beats []int) {
	t.Helper()
	digital := make([]int, n)
	for i := range digital {
		digital[i] = (i % 7) * 20
	}
	hdr := wfdb.Header{
		Record:      name,
		SignalCount: 1,
		Fs:          10,
		Signals:     []wfdb.SignalSpec{{Format: 16, Gain: 200, Description: "MLII"}},
	}
	require.NoError(t, wfdb.WriteRecord(dir, hdr, [][]int{digital}))

	codes := make([]int, len(beats))
	for i := range codes {
		codes[i] = wfdb.Code("N")
	}
	var buf bytes.Buffer
	require.NoError(t, wfdb.EncodeAnnotations(&buf, beats, codes))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".atr"), buf.Bytes(), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Build.Window)
	assert.Contains(t, defaultConfigTemplate(), `"N", "L", "R"`)
}

func TestApplyBuildConfig(t *testing.T) {
	cmd := newBuildCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--window", "2"}))

	window := 3.0
	radius := 7
	cfg := applyBuildConfig(cmd, config.BuildConfig{
		Window:      &window,
		Radius:      &radius,
		BeatSymbols: []string{"V"},
		Exclusions:  []config.ExclusionRule{{Match: "ltdb", SkipRecords: []string{"14046"}}},
	})

	assert.Equal(t, 2.0, cfg.WindowSeconds, "flag overrides config")
	assert.Equal(t, 7, cfg.ExpandRadius)
	assert.True(t, cfg.Expand)
	assert.Equal(t, "atr", cfg.AnnotationExt)
	assert.Equal(t, []string{"V"}, cfg.BeatSymbols)
	require.Len(t, cfg.Exclusions, 1)
	assert.Equal(t, "ltdb", cfg.Exclusions[0].Match)
}

func TestApplyBuildConfigKeepsDefaultExclusions(t *testing.T) {
	cmd := newBuildCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg := applyBuildConfig(cmd, config.BuildConfig{})
	assert.Equal(t, dataset.DefaultExclusions(), cfg.Exclusions)
}

func TestBuildAndHistory(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, "100", 35, []int{5, 12})

	out, err := run(t, "build", dir, "--window", "1", "--expand=false", "--records")
	require.NoError(t, err)
	assert.Contains(t, out, "Windows: 3 x 10 samples")
	assert.Contains(t, out, "Records: 1 used, 0 excluded, 0 failed")
	assert.Regexp(t, `100\s+used`, out)

	x, y := dataset.CachePaths(dir)
	assert.FileExists(t, x)
	assert.FileExists(t, y)

	out, err = run(t, "build", dir, "--window", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(cache)")

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "Cache")
}

func TestBuildShortWindows(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, "100", 15, []int{3, 9})

	out, err := run(t, "build", dir, "--window", "0.5", "--expand=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Windows: 3 x 5 samples")
	assert.Contains(t, out, "Amplitude p5/p95:")
}

func TestBuildEmptyDirectory(t *testing.T) {
	isolate(t)
	_, err := run(t, "build", t.TempDir())
	require.ErrorIs(t, err, dataset.ErrEmpty)
}

func TestPlotTerminal(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, "100", 60, []int{5, 15, 27, 40})

	out, err := run(t, "plot", dir, "100", "--seconds", "5", "--width", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "100  MLII")
	assert.Contains(t, out, "HRV:")
	assert.Contains(t, out, "MLII: min=")
}

func TestPlotPNG(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, "100", 60, []int{5, 15})
	png := filepath.Join(t.TempDir(), "out.png")

	_, err := run(t, "plot", dir, "100", "--png", png)
	require.NoError(t, err)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestPlotRejectsBadChannel(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, "100", 20, nil)

	_, err := run(t, "plot", dir, "100", "--channel", "3")
	require.Error(t, err)
}
