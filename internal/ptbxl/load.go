package ptbxl

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/verte-zerg/ecgprep/internal/logging"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/preprocess"
	"github.com/verte-zerg/ecgprep/internal/wfdb"
)

// Signal is one lead of a loaded recording.
type Signal struct {
	ID      int
	Name    string
	Fs      float64
	Samples []float64
}

// DefaultConfig returns the default loader settings: normal ECGs at 500 Hz,
// lead index 1, first five records.
func DefaultConfig() model.PTBXLConfig {
	return model.PTBXLConfig{Class: "NORM", Rate: 500, Lead: 1, Limit: 5}
}

// Load reads the records of dir whose diagnostic codes include cfg.Class.
// A Limit of 0 loads every selected record. Records that cannot be read are
// skipped.
func Load(ctx context.Context, dir string, cfg model.PTBXLConfig) ([]Signal, error) {
	log := logging.FromContext(ctx)
	if cfg.Class == "" {
		cfg.Class = "NORM"
	}
	if cfg.Rate == 0 {
		cfg.Rate = 500
	}
	if cfg.Lead < 0 {
		return nil, fmt.Errorf("lead index must be non-negative, got %d", cfg.Lead)
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d", cfg.Limit)
	}
	if cfg.TargetRate < 0 || cfg.TargetRate > cfg.Rate {
		return nil, fmt.Errorf("cannot resample %d Hz records to %d Hz", cfg.Rate, cfg.TargetRate)
	}

	entries, err := LoadIndex(dir)
	if err != nil {
		return nil, err
	}
	selected := Select(entries, cfg.Class)
	if cfg.Limit > 0 && len(selected) > cfg.Limit {
		selected = selected[:cfg.Limit]
	}
	log.Infow("Selected PTB-XL records.", zap.String("class", cfg.Class), zap.Int("records", len(selected)), zap.Int("indexed", len(entries)))

	var signals []Signal
	for _, e := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := e.Filename(cfg.Rate)
		if err != nil {
			return nil, err
		}
		sig, err := loadLead(filepath.Join(dir, filepath.FromSlash(name)), cfg)
		if err != nil {
			log.Warnw("Failed to read record, skipping.", zap.Int("ecgID", e.ID), zap.String("file", name), zap.Error(err))
			continue
		}
		sig.ID = e.ID
		sig.Name = path.Base(name)
		signals = append(signals, sig)
	}
	return signals, nil
}

func loadLead(recordPath string, cfg model.PTBXLConfig) (Signal, error) {
	rec, err := wfdb.ReadRecord(recordPath)
	if err != nil {
		return Signal{}, err
	}
	if cfg.Lead >= rec.NSig {
		return Signal{}, fmt.Errorf("record has %d leads, lead %d requested", rec.NSig, cfg.Lead)
	}
	samples := rec.Channel(cfg.Lead)
	fs := rec.Fs
	if cfg.TargetRate > 0 && float64(cfg.TargetRate) < fs {
		if samples, err = preprocess.Downsample(samples, fs, float64(cfg.TargetRate)); err != nil {
			return Signal{}, err
		}
		fs /= float64(int(fs / float64(cfg.TargetRate)))
	}
	return Signal{Fs: fs, Samples: samples}, nil
}

// Stack returns the signals as rows of a matrix. All signals must have the
// same length.
func Stack(signals []Signal) (*mat.Dense, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals to stack")
	}
	n := len(signals[0].Samples)
	if n == 0 {
		return nil, fmt.Errorf("signal %s is empty", signals[0].Name)
	}
	data := make([]float64, 0, len(signals)*n)
	for _, s := range signals {
		if len(s.Samples) != n {
			return nil, fmt.Errorf("signal %s has %d samples, expected %d", s.Name, len(s.Samples), n)
		}
		data = append(data, s.Samples...)
	}
	return mat.NewDense(len(signals), n, data), nil
}
