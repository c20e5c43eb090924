package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/verte-zerg/ecgprep/internal/logging"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/preprocess"
	"github.com/verte-zerg/ecgprep/internal/record"
)

// Source reads records and annotations by path without extension.
type Source interface {
	ReadRecord(path string) (*model.Record, error)
	ReadAnnotations(path, ext string) (*model.AnnotationSet, error)
}

// Recorder persists build summaries.
type Recorder interface {
	InsertBuild(ctx context.Context, summary model.BuildSummary) error
}

// Builder assembles datasets from record directories.
type Builder struct {
	Config   model.BuildConfig
	Source   Source
	Recorder Recorder
	Now      func() time.Time
}

// DefaultConfig returns the default build settings.
func DefaultConfig() model.BuildConfig {
	return model.BuildConfig{
		AnnotationExt: "atr",
		WindowSeconds: 5,
		Expand:        true,
		ExpandRadius:  preprocess.DefaultExpandRadius,
		Normalize:     true,
		BeatSymbols:   append([]string(nil), preprocess.DefaultBeatSymbols...),
		Exclusions:    DefaultExclusions(),
	}
}

// NewBuilder returns a Builder reading WFDB and EDF records from disk.
func NewBuilder(cfg model.BuildConfig) *Builder {
	return &Builder{Config: cfg, Source: record.Reader{}, Now: time.Now}
}

// Build returns the dataset of dir. Cached arrays are loaded unless
// Config.Force is set; otherwise every annotated record is windowed and the
// result is written to the cache. Records that cannot be read are skipped and
// reported in the summary.
func (b *Builder) Build(ctx context.Context, dir string) (*Dataset, model.BuildSummary, error) {
	log := logging.FromContext(ctx)
	cfg, err := b.config()
	if err != nil {
		return nil, model.BuildSummary{}, err
	}
	summary := model.BuildSummary{
		ID:            uuid.NewString(),
		SourceDir:     dir,
		StartedAt:     b.now(),
		WindowSeconds: cfg.WindowSeconds,
		Expand:        cfg.Expand,
	}

	if !cfg.Force {
		cached, err := CacheExists(dir)
		if err != nil {
			return nil, summary, fmt.Errorf("failed to check cache: %w", err)
		}
		if cached {
			d, err := Load(dir)
			if err != nil {
				return nil, summary, fmt.Errorf("failed to load cached dataset: %w", err)
			}
			summary.CacheHit = true
			b.finish(ctx, &summary, d)
			log.Infow("Loaded cached dataset.", zap.String("dir", dir), zap.Int("windows", d.Len()))
			return d, summary, nil
		}
		log.Infow("No cached dataset found, building.", zap.String("dir", dir))
	}

	names, err := RecordNames(dir, cfg.AnnotationExt)
	if err != nil {
		return nil, summary, err
	}
	rules := activeRules(dir, cfg.Exclusions)
	d := New(0)
	var errList error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}
		outcome, err := b.addRecord(ctx, d, dir, name, cfg, rules)
		if err != nil {
			if errors.Is(err, ErrShapeMismatch) {
				return nil, summary, fmt.Errorf("record %s: %w", name, err)
			}
			errList = multierr.Append(errList, fmt.Errorf("record %s: %w", name, err))
			log.Warnw("Failed to read record, skipping.", zap.String("record", name), zap.Error(err))
			outcome = model.RecordOutcome{Record: name, Status: model.StatusFailed, Detail: err.Error()}
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		switch outcome.Status {
		case model.StatusUsed:
			summary.RecordsUsed++
		case model.StatusExcluded:
			summary.RecordsExcluded++
		case model.StatusFailed:
			summary.RecordsFailed++
		}
	}
	summary.RecordErrors = errList
	if errList != nil {
		log.Warnw("Some records could not be read.", zap.Int("failed", summary.RecordsFailed), zap.Error(errList))
	}

	if d.Len() == 0 {
		return nil, summary, fmt.Errorf("no windows built from %s: %w", dir, ErrEmpty)
	}
	if err := Save(dir, d); err != nil {
		return nil, summary, fmt.Errorf("failed to save dataset: %w", err)
	}
	b.finish(ctx, &summary, d)
	log.Infow("Built dataset.",
		zap.String("dir", dir),
		zap.Int("windows", d.Len()),
		zap.Int("windowLen", d.WindowLen),
		zap.Int("used", summary.RecordsUsed),
		zap.Int("excluded", summary.RecordsExcluded),
		zap.Int("failed", summary.RecordsFailed),
	)
	return d, summary, nil
}

func (b *Builder) addRecord(ctx context.Context, d *Dataset, dir, name string, cfg model.BuildConfig, rules []model.ExclusionRule) (model.RecordOutcome, error) {
	log := logging.FromContext(ctx)
	outcome := model.RecordOutcome{Record: name}
	if reason := skipReason(name, rules); reason != "" {
		log.Debugw("Excluding record.", zap.String("record", name), zap.String("reason", reason))
		outcome.Status = model.StatusExcluded
		outcome.Detail = reason
		return outcome, nil
	}

	path := filepath.Join(dir, name)
	rec, err := b.Source.ReadRecord(path)
	if err != nil {
		return outcome, fmt.Errorf("failed to read signals: %w", err)
	}
	ann, err := b.Source.ReadAnnotations(path, cfg.AnnotationExt)
	if err != nil {
		return outcome, fmt.Errorf("failed to read annotations: %w", err)
	}
	if reason := disqualifyReason(ann, rules); reason != "" {
		log.Debugw("Excluding record.", zap.String("record", name), zap.String("reason", reason))
		outcome.Status = model.StatusExcluded
		outcome.Detail = reason
		return outcome, nil
	}

	events := preprocess.EventVector(rec.SigLen, preprocess.FilterAnnotations(ann, cfg.BeatSymbols))
	opts := preprocess.WindowOptions{Seconds: cfg.WindowSeconds, Fs: rec.Fs}
	dropped := 0
	for c := 0; c < rec.NSig; c++ {
		signal := rec.Channel(c)
		if cfg.SmoothKernel > 1 {
			if signal, err = preprocess.Smooth(signal, cfg.SmoothKernel); err != nil {
				return outcome, err
			}
		}
		inputs, err := preprocess.Windows(signal, opts)
		if err != nil {
			return outcome, err
		}
		labels, err := preprocess.Windows(events, opts)
		if err != nil {
			return outcome, err
		}

		var invalid []int
		if cfg.Normalize {
			inputs, invalid = preprocess.NormalizeWindows(inputs)
		} else {
			invalid = preprocess.InvalidWindows(inputs)
		}
		inputs = preprocess.Drop(inputs, invalid)
		labels = preprocess.Drop(labels, invalid)
		dropped += len(invalid)

		if cfg.Expand {
			if labels, err = preprocess.ExpandLabels(labels, cfg.ExpandRadius, name); err != nil {
				return outcome, err
			}
		}
		if err := d.Append(inputs, labels); err != nil {
			return outcome, err
		}
		outcome.Windows += len(inputs)
	}

	log.Debugw("Windowed record.",
		zap.String("record", name),
		zap.Float64("fs", rec.Fs),
		zap.Int("channels", rec.NSig),
		zap.Int("windows", outcome.Windows),
		zap.Int("dropped", dropped),
	)
	outcome.Status = model.StatusUsed
	outcome.Channels = rec.NSig
	if dropped > 0 {
		outcome.Detail = fmt.Sprintf("%d invalid windows dropped", dropped)
	}
	return outcome, nil
}

func (b *Builder) finish(ctx context.Context, summary *model.BuildSummary, d *Dataset) {
	summary.EndedAt = b.now()
	summary.Windows = d.Len()
	summary.WindowSamples = d.WindowLen
	summary.Positives = d.Positives()
	if b.Recorder == nil {
		return
	}
	if err := b.Recorder.InsertBuild(ctx, *summary); err != nil {
		logging.FromContext(ctx).Warnw("Failed to record build.", zap.String("id", summary.ID), zap.Error(err))
	}
}

func (b *Builder) config() (model.BuildConfig, error) {
	cfg := b.Config
	if cfg.AnnotationExt == "" {
		cfg.AnnotationExt = "atr"
	}
	cfg.AnnotationExt = strings.TrimPrefix(cfg.AnnotationExt, ".")
	if cfg.BeatSymbols == nil {
		cfg.BeatSymbols = preprocess.DefaultBeatSymbols
	}
	if cfg.WindowSeconds <= 0 {
		return cfg, fmt.Errorf("window length must be positive, got %g s", cfg.WindowSeconds)
	}
	if cfg.ExpandRadius < 0 {
		return cfg, fmt.Errorf("expansion radius must be non-negative, got %d", cfg.ExpandRadius)
	}
	if cfg.SmoothKernel < 0 {
		return cfg, fmt.Errorf("smoothing kernel must be non-negative, got %d", cfg.SmoothKernel)
	}
	return cfg, nil
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// RecordNames returns the sorted, unique record basenames in dir that have a
// file ending in "." + ext. The basename is the file name up to its first dot.
func RecordNames(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	suffix := "." + strings.TrimPrefix(ext, ".")
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		name, _, _ := strings.Cut(e.Name(), ".")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
