package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/edf"

	"github.com/verte-zerg/ecgprep/internal/model"
)

const (
	edfFixedHeader     = 256
	edfSignalHeader    = 256
	edfAnnotationLabel = "EDF Annotations"
)

// edfLayout holds the header fields needed to size and scale signal reads.
// The edf package keeps its parsed header private, so these are read directly
// from the fixed-width ASCII header.
type edfLayout struct {
	dataRecords      int
	recordSeconds    float64
	labels           []string
	units            []string
	samplesPerRecord []int
}

// ReadEDF reads an EDF file into a Record. Annotation channels are skipped;
// all remaining channels must share one sampling rate.
func ReadEDF(path string) (*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only record.
			_ = cerr
		}
	}()

	layout, err := readEDFLayout(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read EDF header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind EDF file: %w", err)
	}
	er, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open EDF file: %w", err)
	}

	rec := &model.Record{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	spr := 0
	for i, label := range layout.labels {
		if label == edfAnnotationLabel {
			continue
		}
		if spr == 0 {
			spr = layout.samplesPerRecord[i]
		} else if layout.samplesPerRecord[i] != spr {
			return nil, fmt.Errorf("channel %q samples at %d per record, expected %d", label, layout.samplesPerRecord[i], spr)
		}

		sr, err := er.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("failed to open channel %q: %w", label, err)
		}
		samples := make([]float64, layout.dataRecords*spr)
		n, err := sr.Read(samples)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read channel %q: %w", label, err)
		}
		rec.Signals = append(rec.Signals, samples[:n])
		rec.Labels = append(rec.Labels, label)
		rec.Units = append(rec.Units, layout.units[i])
	}
	if len(rec.Signals) == 0 {
		return nil, fmt.Errorf("EDF file %s has no signal channels", path)
	}
	if layout.recordSeconds <= 0 {
		return nil, fmt.Errorf("invalid data record duration %g", layout.recordSeconds)
	}

	rec.NSig = len(rec.Signals)
	rec.Fs = float64(spr) / layout.recordSeconds
	rec.SigLen = len(rec.Signals[0])
	for _, sig := range rec.Signals[1:] {
		if len(sig) < rec.SigLen {
			rec.SigLen = len(sig)
		}
	}
	for i := range rec.Signals {
		rec.Signals[i] = rec.Signals[i][:rec.SigLen]
	}
	return rec, nil
}

func readEDFLayout(r io.Reader) (edfLayout, error) {
	fixed := make([]byte, edfFixedHeader)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return edfLayout{}, err
	}
	var (
		layout edfLayout
		err    error
	)
	layout.dataRecords, err = strconv.Atoi(field(fixed, 236, 244))
	if err != nil {
		return edfLayout{}, fmt.Errorf("invalid number of data records: %w", err)
	}
	if layout.dataRecords < 0 {
		return edfLayout{}, fmt.Errorf("unknown number of data records")
	}
	layout.recordSeconds, err = strconv.ParseFloat(field(fixed, 244, 252), 64)
	if err != nil {
		return edfLayout{}, fmt.Errorf("invalid data record duration: %w", err)
	}
	ns, err := strconv.Atoi(field(fixed, 252, 256))
	if err != nil {
		return edfLayout{}, fmt.Errorf("invalid signal count: %w", err)
	}
	if ns <= 0 {
		return edfLayout{}, fmt.Errorf("invalid signal count %d", ns)
	}

	signals := make([]byte, ns*edfSignalHeader)
	if _, err := io.ReadFull(r, signals); err != nil {
		return edfLayout{}, err
	}
	// Signal header fields are stored column-wise: all labels, then all
	// transducer types, and so on.
	widths := []int{16, 80, 8, 8, 8, 8, 8, 80, 8}
	offsets := make([]int, len(widths))
	for i := 1; i < len(widths); i++ {
		offsets[i] = offsets[i-1] + widths[i-1]*ns
	}
	layout.labels = make([]string, ns)
	layout.units = make([]string, ns)
	layout.samplesPerRecord = make([]int, ns)
	for i := 0; i < ns; i++ {
		layout.labels[i] = field(signals, offsets[0]+i*16, offsets[0]+(i+1)*16)
		layout.units[i] = field(signals, offsets[2]+i*8, offsets[2]+(i+1)*8)
		spr, err := strconv.Atoi(field(signals, offsets[8]+i*8, offsets[8]+(i+1)*8))
		if err != nil {
			return edfLayout{}, fmt.Errorf("invalid samples per record for signal %d: %w", i, err)
		}
		layout.samplesPerRecord[i] = spr
	}
	return layout, nil
}

func field(b []byte, start, end int) string {
	return strings.TrimSpace(string(b[start:end]))
}
