// Package wfdb reads PhysioNet WFDB records: text headers, binary signal
// files and MIT-format annotation files.
package wfdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Default ADC gain in digital units per physical unit, used when a header
// leaves the gain unset or zero.
const DefaultGain = 200.0

// Header represents a single-segment WFDB record header.
type Header struct {
	Record      string
	SignalCount int
	Fs          float64 // Sampling frequency in Hz
	CounterFreq float64
	SigLen      int // Samples per signal, 0 if unknown
	Signals     []SignalSpec
	Comments    []string
}

// SignalSpec describes one signal line of a header.
type SignalSpec struct {
	FileName        string
	Format          int
	SamplesPerFrame int
	Skew            int
	ByteOffset      int
	Gain            float64
	Baseline        int
	Units           string
	ADCRes          int
	ADCZero         int
	InitValue       int
	Checksum        int
	BlockSize       int
	Description     string
}

var (
	formatRE = regexp.MustCompile(`^(\d+)(?:x(\d+))?(?::(\d+))?(?:\+(\d+))?$`)
	gainRE   = regexp.MustCompile(`^([-+]?[\d.]+(?:[eE][-+]?\d+)?)(?:\((-?\d+)\))?(?:/(\S+))?$`)
)

// ReadHeader parses the header file at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only header.
			_ = cerr
		}
	}()
	return ParseHeader(f)
}

// ParseHeader parses a WFDB header from r.
func ParseHeader(r io.Reader) (*Header, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	hdr := &Header{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			hdr.Comments = append(hdr.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("header has no record line")
	}

	if err := parseRecordLine(hdr, lines[0]); err != nil {
		return nil, err
	}
	if len(lines)-1 < hdr.SignalCount {
		return nil, fmt.Errorf("header declares %d signals but has %d signal lines", hdr.SignalCount, len(lines)-1)
	}

	hdr.Signals = make([]SignalSpec, hdr.SignalCount)
	for i := 0; i < hdr.SignalCount; i++ {
		spec, err := parseSignalLine(lines[i+1])
		if err != nil {
			return nil, fmt.Errorf("error parsing signal %d: %w", i, err)
		}
		hdr.Signals[i] = spec
	}
	return hdr, nil
}

func parseRecordLine(hdr *Header, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("record line too short: %q", line)
	}
	if strings.Contains(fields[0], "/") {
		return fmt.Errorf("multi-segment record %q is not supported", fields[0])
	}
	hdr.Record = fields[0]

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("error parsing signal count: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("negative signal count %d", n)
	}
	hdr.SignalCount = n

	hdr.Fs = 250 // WFDB default when the field is absent
	if len(fields) > 2 {
		fsField := fields[2]
		if i := strings.IndexByte(fsField, '('); i >= 0 {
			fsField = fsField[:i]
		}
		freq, counter, hasCounter := strings.Cut(fsField, "/")
		hdr.Fs, err = strconv.ParseFloat(freq, 64)
		if err != nil {
			return fmt.Errorf("error parsing sampling frequency: %w", err)
		}
		if hasCounter {
			hdr.CounterFreq, err = strconv.ParseFloat(counter, 64)
			if err != nil {
				return fmt.Errorf("error parsing counter frequency: %w", err)
			}
		}
	}
	if hdr.Fs <= 0 {
		return fmt.Errorf("sampling frequency must be positive, got %g", hdr.Fs)
	}

	if len(fields) > 3 {
		hdr.SigLen, err = strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("error parsing number of samples: %w", err)
		}
	}
	return nil
}

func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("signal line too short: %q", line)
	}
	spec := SignalSpec{FileName: fields[0], SamplesPerFrame: 1, Gain: DefaultGain}

	m := formatRE.FindStringSubmatch(fields[1])
	if m == nil {
		return SignalSpec{}, fmt.Errorf("invalid format field %q", fields[1])
	}
	spec.Format = atoiOr(m[1], 0)
	spec.SamplesPerFrame = atoiOr(m[2], 1)
	spec.Skew = atoiOr(m[3], 0)
	spec.ByteOffset = atoiOr(m[4], 0)

	baselineSet := false
	if len(fields) > 2 {
		g := gainRE.FindStringSubmatch(fields[2])
		if g == nil {
			return SignalSpec{}, fmt.Errorf("invalid gain field %q", fields[2])
		}
		gain, err := strconv.ParseFloat(g[1], 64)
		if err != nil {
			return SignalSpec{}, fmt.Errorf("error parsing gain: %w", err)
		}
		if gain != 0 {
			spec.Gain = gain
		}
		if g[2] != "" {
			spec.Baseline = atoiOr(g[2], 0)
			baselineSet = true
		}
		spec.Units = g[3]
	}
	if spec.Units == "" {
		spec.Units = "mV"
	}

	ints := []*int{&spec.ADCRes, &spec.ADCZero, &spec.InitValue, &spec.Checksum, &spec.BlockSize}
	for i, target := range ints {
		idx := i + 3
		if idx >= len(fields) {
			break
		}
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return SignalSpec{}, fmt.Errorf("error parsing field %d: %w", idx, err)
		}
		*target = v
	}
	if !baselineSet {
		spec.Baseline = spec.ADCZero
	}
	if len(fields) > 8 {
		spec.Description = strings.Join(fields[8:], " ")
	}
	return spec, nil
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
