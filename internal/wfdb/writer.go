package wfdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteRecord writes a single-file record: the header and one interleaved
// signal file named after the record. All signals use spec.Format of the first
// signal, which must be 16 or 212.
func WriteRecord(dir string, hdr Header, digital [][]int) error {
	if len(digital) != hdr.SignalCount || len(hdr.Signals) != hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", hdr.SignalCount, len(digital))
	}
	if hdr.SignalCount == 0 {
		return fmt.Errorf("record has no signals")
	}
	sigLen := len(digital[0])
	for i, sig := range digital {
		if len(sig) != sigLen {
			return fmt.Errorf("signal %d has %d samples, expected %d", i, len(sig), sigLen)
		}
	}
	format := hdr.Signals[0].Format
	datName := hdr.Record + ".dat"

	frames := make([]int, 0, sigLen*hdr.SignalCount)
	for f := 0; f < sigLen; f++ {
		for _, sig := range digital {
			frames = append(frames, sig[f])
		}
	}
	var data []byte
	switch format {
	case 16:
		data = make([]byte, len(frames)*2)
		for i, v := range frames {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
		}
	case 212:
		data = encode212(frames)
	default:
		return fmt.Errorf("unsupported signal format %d", format)
	}
	if err := os.WriteFile(filepath.Join(dir, datName), data, 0o644); err != nil {
		return fmt.Errorf("error writing signal file: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, hdr.Record+".hea"))
	if err != nil {
		return fmt.Errorf("error creating header: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s %d %g %d\n", hdr.Record, hdr.SignalCount, hdr.Fs, sigLen)
	for i, spec := range hdr.Signals {
		gain := spec.Gain
		if gain == 0 {
			gain = DefaultGain
		}
		units := spec.Units
		if units == "" {
			units = "mV"
		}
		desc := spec.Description
		if desc == "" {
			desc = fmt.Sprintf("ch%d", i)
		}
		fmt.Fprintf(w, "%s %d %g(%d)/%s %d %d %d 0 0 %s\n",
			datName, format, gain, spec.Baseline, units, spec.ADCRes, spec.ADCZero, firstOr(digital[i]), strings.TrimSpace(desc))
	}
	for _, c := range hdr.Comments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing header: %w", err)
	}
	return f.Close()
}

func encode212(samples []int) []byte {
	out := make([]byte, 0, (len(samples)+1)/2*3)
	for i := 0; i < len(samples); i += 2 {
		s0 := samples[i] & 0x0fff
		s1 := 0
		if i+1 < len(samples) {
			s1 = samples[i+1] & 0x0fff
		}
		out = append(out, byte(s0), byte(s0>>8)|byte(s1>>8)<<4, byte(s1))
	}
	return out
}

func firstOr(sig []int) int {
	if len(sig) == 0 {
		return 0
	}
	return sig[0]
}
