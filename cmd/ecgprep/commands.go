package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/ecgprep/internal/browse"
	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/logging"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/plot"
	"github.com/verte-zerg/ecgprep/internal/preprocess"
	"github.com/verte-zerg/ecgprep/internal/ptbxl"
	"github.com/verte-zerg/ecgprep/internal/record"
	"github.com/verte-zerg/ecgprep/internal/report"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Window and label a record directory into x.npy/y.npy",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuildCmd,
	}
	cmd.Flags().StringVar(&buildExt, "ext", defaultAnnotationExt, "annotation file extension")
	cmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even when a cached dataset exists")
	cmd.Flags().Float64Var(&buildWindow, "window", defaultWindow, "window length in seconds")
	cmd.Flags().BoolVar(&buildExpand, "expand", true, "widen each annotated sample to a neighbourhood")
	cmd.Flags().IntVar(&buildRadius, "radius", preprocess.DefaultExpandRadius, "expansion radius in samples")
	cmd.Flags().BoolVar(&buildNormalize, "normalize", true, "min-max scale each window to [0, 1]")
	cmd.Flags().IntVar(&buildSmooth, "smooth", 0, "moving-average kernel applied before windowing (0 disables)")
	cmd.Flags().BoolVar(&buildRecords, "records", false, "list per-record outcomes")
	return cmd
}

func runBuildCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg := applyBuildConfig(cmd, fileCfg.Build)

	builder := dataset.NewBuilder(cfg)
	st, err := openStore()
	if err != nil {
		logging.FromContext(cmd.Context()).Warnw("Build history disabled.", zap.Error(err))
	} else {
		defer closeStore(st)
		builder.Recorder = st
	}

	d, summary, err := builder.Build(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to build dataset: %w", err)
	}
	stats, err := dataset.Summarize(d)
	if err != nil {
		return fmt.Errorf("failed to summarize dataset: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := report.RenderBuildSummary(out, summary, stats); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if buildRecords && !summary.CacheHit {
		if err := report.RenderOutcomes(out, summary.Outcomes); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <dir>",
		Short: "Browse the windows of a built dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runBrowseCmd,
	}
	cmd.Flags().Float64Var(&browseWindow, "window", defaultWindow, "window length in seconds the dataset was built with")
	cmd.Flags().BoolVar(&browseColor, "color", true, "color the chart series")
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyFloatConfig(cmd, "window", &browseWindow, fileCfg.Build.Window)
	applyBoolConfig(cmd, "color", &browseColor, fileCfg.Plot.Color)
	if browseWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	d, err := dataset.Load(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no dataset in %s (run: ecgprep build %s)", args[0], args[0])
		}
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	m, err := browse.NewModel(d, browse.Options{
		Fs:    float64(d.WindowLen) / browseWindow,
		Color: browseColor,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <dir> <record>",
		Short: "Plot a record slice with its beat annotations",
		Args:  cobra.ExactArgs(2),
		RunE:  runPlotCmd,
	}
	cmd.Flags().IntVar(&plotChannel, "channel", 0, "channel index")
	cmd.Flags().Float64Var(&plotStart, "start", 0, "slice start in seconds")
	cmd.Flags().Float64Var(&plotSeconds, "seconds", defaultPlotSeconds, "slice length in seconds")
	cmd.Flags().StringVar(&plotExt, "ext", defaultAnnotationExt, "annotation file extension")
	cmd.Flags().StringVar(&plotPNG, "png", "", "write a PNG image to this file instead of the terminal")
	cmd.Flags().IntVar(&plotSmooth, "smooth", 0, "moving-average kernel (0 disables)")
	cmd.Flags().IntVar(&plotWidth, "width", 0, "chart width (0 fits the terminal, PNG default 1024)")
	cmd.Flags().IntVar(&plotHeight, "height", 0, "chart height")
	cmd.Flags().BoolVar(&plotColor, "color", false, "force ANSI colors")
	return cmd
}

func runPlotCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "ext", &plotExt, fileCfg.Build.Ext)
	plotCfg := applyPlotConfig(cmd, fileCfg.Plot)
	beatSymbols := preprocess.DefaultBeatSymbols
	if len(fileCfg.Build.BeatSymbols) > 0 {
		beatSymbols = fileCfg.Build.BeatSymbols
	}

	fig, err := loadFigure(cmd, args[0], args[1], beatSymbols)
	if err != nil {
		return err
	}

	if plotPNG != "" {
		return writePNG(plotPNG, fig, plotCfg)
	}
	return plot.Terminal(cmd.OutOrStdout(), fig, plot.Options{
		Width:      plotCfg.Width,
		Height:     plotCfg.Height,
		ForceColor: plotCfg.ForceColor,
	})
}

func loadFigure(cmd *cobra.Command, dir, name string, beatSymbols []string) (plot.Figure, error) {
	log := logging.FromContext(cmd.Context())
	if plotSeconds <= 0 {
		return plot.Figure{}, fmt.Errorf("--seconds must be > 0")
	}
	if plotStart < 0 {
		return plot.Figure{}, fmt.Errorf("--start must be >= 0")
	}

	reader := record.Reader{}
	path := filepath.Join(dir, name)
	rec, err := reader.ReadRecord(path)
	if err != nil {
		return plot.Figure{}, fmt.Errorf("failed to read record: %w", err)
	}
	if plotChannel < 0 || plotChannel >= rec.NSig {
		return plot.Figure{}, fmt.Errorf("--channel must be in [0, %d)", rec.NSig)
	}

	start := int(math.Round(plotStart * rec.Fs))
	end := start + int(math.Round(plotSeconds*rec.Fs))
	if start >= rec.SigLen {
		return plot.Figure{}, fmt.Errorf("--start %.2fs is past the end of the record (%.2fs)", plotStart, float64(rec.SigLen)/rec.Fs)
	}
	if end > rec.SigLen {
		end = rec.SigLen
	}
	signal := rec.Channel(plotChannel)[start:end]
	if plotSmooth > 1 {
		signal, err = preprocess.Smooth(signal, plotSmooth)
		if err != nil {
			return plot.Figure{}, fmt.Errorf("failed to smooth signal: %w", err)
		}
	}

	label := fmt.Sprintf("ch%d", plotChannel)
	if plotChannel < len(rec.Labels) && rec.Labels[plotChannel] != "" {
		label = rec.Labels[plotChannel]
	}
	fig := plot.Figure{
		Title:  fmt.Sprintf("%s  %s", rec.Name, label),
		Label:  label,
		Signal: signal,
		Fs:     rec.Fs,
		Offset: start,
	}

	set, err := reader.ReadAnnotations(path, plotExt)
	if err != nil {
		log.Warnw("No annotations, plotting signal only.", zap.String("record", name), zap.Error(err))
		return fig, nil
	}
	for _, s := range preprocess.FilterAnnotations(set, beatSymbols) {
		if s >= start && s < end {
			fig.Events = append(fig.Events, s-start)
		}
	}
	if _, sdnn, err := preprocess.HRV(fig.Events, rec.Fs); err == nil {
		fig.HRV = &sdnn
	} else {
		log.Debugw("HRV unavailable.", zap.Error(err))
	}
	return fig, nil
}

func writePNG(path string, fig plot.Figure, cfg model.PlotConfig) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := plot.PNG(f, fig, cfg.Width, cfg.Height); err != nil {
		return fmt.Errorf("failed to render PNG: %w", err)
	}
	logErrf("Wrote %s\n", path)
	return nil
}

func newPTBXLCmd() *cobra.Command {
	defaults := ptbxl.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "ptbxl <dir>",
		Short: "Load PTB-XL records of one diagnostic class",
		Args:  cobra.ExactArgs(1),
		RunE:  runPTBXLCmd,
	}
	cmd.Flags().StringVar(&ptbxlClass, "class", defaults.Class, "diagnostic class (SCP code)")
	cmd.Flags().IntVar(&ptbxlRate, "rate", defaults.Rate, "record rate, 100 or 500 Hz")
	cmd.Flags().IntVar(&ptbxlLead, "lead", defaults.Lead, "lead index")
	cmd.Flags().IntVar(&ptbxlLimit, "limit", defaults.Limit, "number of records (0 loads all)")
	cmd.Flags().IntVar(&ptbxlTargetRate, "target-rate", 0, "downsample to this rate (0 keeps the record rate)")
	cmd.Flags().StringVar(&ptbxlOut, "out", "", "write the loaded leads as an .npy matrix")
	return cmd
}

func runPTBXLCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg := applyPTBXLConfig(cmd, fileCfg.PTBXL)

	signals, err := ptbxl.Load(cmd.Context(), args[0], cfg)
	if err != nil {
		return fmt.Errorf("failed to load PTB-XL records: %w", err)
	}
	if err := report.RenderSignals(cmd.OutOrStdout(), signals); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if ptbxlOut == "" {
		return nil
	}
	m, err := ptbxl.Stack(signals)
	if err != nil {
		return err
	}
	if err := dataset.WriteMatrix(ptbxlOut, m); err != nil {
		return err
	}
	logErrf("Wrote %s\n", ptbxlOut)
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dataset builds",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of builds (0 shows all)")
	cmd.Flags().StringVar(&historyRecords, "records", "", "list record outcomes of this build id (prefix allowed)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if historyRecords != "" {
		id, err := st.ResolveBuildID(ctx, historyRecords)
		if err != nil {
			return err
		}
		outcomes, err := st.ListRecordOutcomes(ctx, id)
		if err != nil {
			return err
		}
		return report.RenderOutcomes(out, outcomes)
	}

	builds, err := st.ListBuilds(ctx, historyLimit)
	if err != nil {
		return err
	}
	return report.RenderHistory(out, builds, time.Now())
}
