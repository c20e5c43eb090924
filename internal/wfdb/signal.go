package wfdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Sentinel digital values marking missing samples, per storage format.
const (
	invalid16  = -32768
	invalid212 = -2048
	invalid80  = -128
)

type fileGroup struct {
	name    string
	format  int
	offset  int
	signals []int // header signal indices stored in this file, in frame order
}

// ReadDigital reads the raw digital samples of every signal described by hdr.
// Signal files are resolved relative to dir. The result is indexed [signal][sample].
func ReadDigital(dir string, hdr *Header) ([][]int, error) {
	groups, err := groupSignals(hdr)
	if err != nil {
		return nil, err
	}

	out := make([][]int, hdr.SignalCount)
	sigLen := hdr.SigLen
	for _, g := range groups {
		data, err := os.ReadFile(filepath.Join(dir, g.name))
		if err != nil {
			return nil, fmt.Errorf("error reading signal file: %w", err)
		}
		if g.offset > len(data) {
			return nil, fmt.Errorf("byte offset %d beyond end of %s", g.offset, g.name)
		}
		samples, err := decode(data[g.offset:], g.format)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", g.name, err)
		}

		width := len(g.signals)
		frames := len(samples) / width
		if sigLen == 0 {
			sigLen = frames
		}
		if frames < sigLen {
			return nil, fmt.Errorf("signal file %s holds %d samples per signal, header declares %d", g.name, frames, sigLen)
		}
		for j, sig := range g.signals {
			col := make([]int, sigLen)
			for f := 0; f < sigLen; f++ {
				col[f] = samples[f*width+j]
			}
			out[sig] = col
		}
	}
	hdr.SigLen = sigLen
	return out, nil
}

// ToPhysical converts digital samples of one signal to physical units. Missing
// samples become NaN.
func ToPhysical(digital []int, spec SignalSpec) []float64 {
	out := make([]float64, len(digital))
	gain := spec.Gain
	if gain == 0 {
		gain = DefaultGain
	}
	missing := invalidValue(spec.Format)
	for i, d := range digital {
		if d == missing {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(d-spec.Baseline) / gain
	}
	return out
}

func groupSignals(hdr *Header) ([]fileGroup, error) {
	var groups []fileGroup
	index := map[string]int{}
	for i, spec := range hdr.Signals {
		if spec.SamplesPerFrame != 1 {
			return nil, fmt.Errorf("signal %d: multi-frequency records are not supported", i)
		}
		gi, ok := index[spec.FileName]
		if !ok {
			groups = append(groups, fileGroup{name: spec.FileName, format: spec.Format, offset: spec.ByteOffset})
			gi = len(groups) - 1
			index[spec.FileName] = gi
		}
		if groups[gi].format != spec.Format {
			return nil, fmt.Errorf("signal %d: mixed formats in %s", i, spec.FileName)
		}
		groups[gi].signals = append(groups[gi].signals, i)
	}
	return groups, nil
}

func decode(data []byte, format int) ([]int, error) {
	switch format {
	case 16:
		out := make([]int, len(data)/2)
		for i := range out {
			out[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
		return out, nil
	case 61:
		out := make([]int, len(data)/2)
		for i := range out {
			out[i] = int(int16(binary.BigEndian.Uint16(data[i*2:])))
		}
		return out, nil
	case 80:
		out := make([]int, len(data))
		for i, b := range data {
			out[i] = int(b) - 128
		}
		return out, nil
	case 212:
		return decode212(data), nil
	default:
		return nil, fmt.Errorf("unsupported signal format %d", format)
	}
}

// decode212 unpacks pairs of 12-bit two's complement samples stored in three bytes.
func decode212(data []byte) []int {
	out := make([]int, 0, len(data)*2/3+1)
	for i := 0; i+1 < len(data); i += 3 {
		s0 := int(data[i]) | int(data[i+1]&0x0f)<<8
		out = append(out, signExtend12(s0))
		if i+2 >= len(data) {
			break
		}
		s1 := int(data[i+2]) | int(data[i+1]&0xf0)<<4
		out = append(out, signExtend12(s1))
	}
	return out
}

func signExtend12(v int) int {
	if v > 2047 {
		return v - 4096
	}
	return v
}

func invalidValue(format int) int {
	switch format {
	case 212:
		return invalid212
	case 80:
		return invalid80
	default:
		return invalid16
	}
}
