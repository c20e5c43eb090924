package wfdb

import (
	"fmt"
	"path/filepath"

	"github.com/verte-zerg/ecgprep/internal/model"
)

// ReadRecord reads the record at path (directory plus record name, without
// extension) and returns its physical signals.
func ReadRecord(path string) (*model.Record, error) {
	hdr, err := ReadHeader(path + ".hea")
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	if hdr.SignalCount == 0 {
		return nil, fmt.Errorf("record %s has no signals", hdr.Record)
	}
	digital, err := ReadDigital(filepath.Dir(path), hdr)
	if err != nil {
		return nil, err
	}

	rec := &model.Record{
		Name:    filepath.Base(path),
		Fs:      hdr.Fs,
		SigLen:  hdr.SigLen,
		NSig:    hdr.SignalCount,
		Labels:  make([]string, hdr.SignalCount),
		Units:   make([]string, hdr.SignalCount),
		Signals: make([][]float64, hdr.SignalCount),
	}
	for i, spec := range hdr.Signals {
		rec.Labels[i] = spec.Description
		rec.Units[i] = spec.Units
		rec.Signals[i] = ToPhysical(digital[i], spec)
	}
	return rec, nil
}
