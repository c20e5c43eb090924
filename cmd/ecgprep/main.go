// Package main provides the CLI entrypoint for ecgprep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ecgprep/internal/config"
	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/logging"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/preprocess"
	"github.com/verte-zerg/ecgprep/internal/ptbxl"
	"github.com/verte-zerg/ecgprep/internal/store"
)

const (
	defaultAnnotationExt = "atr"
	defaultWindow        = 5.0
	defaultPlotSeconds   = 10.0
	defaultHistoryLimit  = 20
)

var (
	verbose bool

	buildExt       string
	buildForce     bool
	buildWindow    float64
	buildExpand    bool
	buildRadius    int
	buildNormalize bool
	buildSmooth    int
	buildRecords   bool

	browseWindow float64
	browseColor  bool

	plotChannel int
	plotStart   float64
	plotSeconds float64
	plotExt     string
	plotPNG     string
	plotSmooth  int
	plotWidth   int
	plotHeight  int
	plotColor   bool

	ptbxlClass      string
	ptbxlRate       int
	ptbxlLead       int
	ptbxlLimit      int
	ptbxlTargetRate int
	ptbxlOut        string

	historyLimit   int
	historyRecords string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ecgprep",
		Short:         "ECG dataset preparation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, logging.NewLogger(verbose)))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newPlotCmd())
	rootCmd.AddCommand(newPTBXLCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyBuildConfig overlays the [build] section onto the build flags and
// returns the resulting settings.
func applyBuildConfig(cmd *cobra.Command, fileCfg config.BuildConfig) model.BuildConfig {
	applyStringConfig(cmd, "ext", &buildExt, fileCfg.Ext)
	applyFloatConfig(cmd, "window", &buildWindow, fileCfg.Window)
	applyBoolConfig(cmd, "expand", &buildExpand, fileCfg.Expand)
	applyIntConfig(cmd, "radius", &buildRadius, fileCfg.Radius)
	applyBoolConfig(cmd, "normalize", &buildNormalize, fileCfg.Normalize)
	applyIntConfig(cmd, "smooth", &buildSmooth, fileCfg.Smooth)

	cfg := dataset.DefaultConfig()
	cfg.AnnotationExt = buildExt
	cfg.Force = buildForce
	cfg.WindowSeconds = buildWindow
	cfg.Expand = buildExpand
	cfg.ExpandRadius = buildRadius
	cfg.Normalize = buildNormalize
	cfg.SmoothKernel = buildSmooth
	if len(fileCfg.BeatSymbols) > 0 {
		cfg.BeatSymbols = append([]string(nil), fileCfg.BeatSymbols...)
	}
	if fileCfg.Exclusions != nil {
		cfg.Exclusions = exclusionRules(fileCfg.Exclusions)
	}
	return cfg
}

func exclusionRules(rules []config.ExclusionRule) []model.ExclusionRule {
	out := make([]model.ExclusionRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, model.ExclusionRule{
			Match:                r.Match,
			DisqualifyingSymbols: r.Disqualifying,
			SkipRecords:          r.SkipRecords,
		})
	}
	return out
}

func applyPlotConfig(cmd *cobra.Command, fileCfg config.PlotConfig) model.PlotConfig {
	applyIntConfig(cmd, "width", &plotWidth, fileCfg.Width)
	applyIntConfig(cmd, "height", &plotHeight, fileCfg.Height)
	applyBoolConfig(cmd, "color", &plotColor, fileCfg.Color)
	return model.PlotConfig{Width: plotWidth, Height: plotHeight, ForceColor: plotColor}
}

func applyPTBXLConfig(cmd *cobra.Command, fileCfg config.PTBXLConfig) model.PTBXLConfig {
	applyStringConfig(cmd, "class", &ptbxlClass, fileCfg.Class)
	applyIntConfig(cmd, "rate", &ptbxlRate, fileCfg.Rate)
	applyIntConfig(cmd, "lead", &ptbxlLead, fileCfg.Lead)
	applyIntConfig(cmd, "limit", &ptbxlLimit, fileCfg.Limit)
	applyIntConfig(cmd, "target-rate", &ptbxlTargetRate, fileCfg.TargetRate)
	return model.PTBXLConfig{
		Class:      ptbxlClass,
		Rate:       ptbxlRate,
		Lead:       ptbxlLead,
		Limit:      ptbxlLimit,
		TargetRate: ptbxlTargetRate,
	}
}

func defaultConfigTemplate() string {
	ptbxlDefaults := ptbxl.DefaultConfig()
	return fmt.Sprintf(`# ecgprep configuration
# Uncomment a value to enable it. CLI flags override config values.

[build]
# ext = %q               # Annotation file extension
# window = %.1f             # Window length in seconds
# expand = true             # Widen each annotated sample to a neighbourhood
# radius = %d               # Expansion radius in samples
# normalize = true          # Min-max scale each window to [0, 1]
# smooth = 0                # Moving-average kernel applied before windowing (0 disables)
# beat-symbols = [%s]
#
# [[build.exclusion]]
# match = "mitdb"
# disqualifying-symbols = ["/"]
#
# [[build.exclusion]]
# match = "apnea-ecg"
# skip-records = ["c05"]

[plot]
# width = 0                 # Chart width in cells (0 uses the terminal width)
# height = 0                # Chart height in rows
# color = false             # Force ANSI colors

[ptbxl]
# class = %q             # Diagnostic class to select
# rate = %d                # 100 or 500 Hz records
# lead = %d                  # Lead index
# limit = %d                 # Number of records (0 loads all)
# target-rate = 0           # Downsample to this rate (0 keeps the source rate)
`,
		defaultAnnotationExt,
		defaultWindow,
		preprocess.DefaultExpandRadius,
		quoteList(preprocess.DefaultBeatSymbols),
		ptbxlDefaults.Class,
		ptbxlDefaults.Rate,
		ptbxlDefaults.Lead,
		ptbxlDefaults.Limit,
	)
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
