package wfdb_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ecgprep/internal/wfdb"
)

const mitHeader = `100 2 360 650000
100.dat 212 200 11 1024 995 -22131 0 MLII
100.dat 212 200 11 1024 1011 20052 0 V5
# 69 M 1085 1629 x1
# Aldomet, Inderal
`

func TestParseHeader(t *testing.T) {
	hdr, err := wfdb.ParseHeader(strings.NewReader(mitHeader))
	require.NoError(t, err)

	assert.Equal(t, "100", hdr.Record)
	assert.Equal(t, 2, hdr.SignalCount)
	assert.Equal(t, 360.0, hdr.Fs)
	assert.Equal(t, 650000, hdr.SigLen)
	require.Len(t, hdr.Signals, 2)

	sig := hdr.Signals[0]
	assert.Equal(t, "100.dat", sig.FileName)
	assert.Equal(t, 212, sig.Format)
	assert.Equal(t, 200.0, sig.Gain)
	assert.Equal(t, 1024, sig.ADCZero)
	assert.Equal(t, 1024, sig.Baseline)
	assert.Equal(t, "mV", sig.Units)
	assert.Equal(t, "MLII", sig.Description)
	assert.Equal(t, "V5", hdr.Signals[1].Description)
	assert.Len(t, hdr.Comments, 2)
}

func TestParseHeaderGainBaselineUnits(t *testing.T) {
	const hea = "00001_hr 1 500/1 5000\n00001_hr.dat 16+24 1000.0(-5)/uV 16 0 -119 1508 0 I\n"
	hdr, err := wfdb.ParseHeader(strings.NewReader(hea))
	require.NoError(t, err)

	assert.Equal(t, 500.0, hdr.Fs)
	assert.Equal(t, 1.0, hdr.CounterFreq)
	sig := hdr.Signals[0]
	assert.Equal(t, 16, sig.Format)
	assert.Equal(t, 24, sig.ByteOffset)
	assert.Equal(t, 1000.0, sig.Gain)
	assert.Equal(t, -5, sig.Baseline)
	assert.Equal(t, "uV", sig.Units)
}

func TestParseHeaderErrors(t *testing.T) {
	_, err := wfdb.ParseHeader(strings.NewReader(""))
	require.Error(t, err)

	_, err = wfdb.ParseHeader(strings.NewReader("multi/3 2 360 100\n"))
	require.Error(t, err)

	_, err = wfdb.ParseHeader(strings.NewReader("r 2 360 100\nr.dat 16 200 16 0 0 0 0 a\n"))
	require.Error(t, err)
}

func TestWriteAndReadRecord212(t *testing.T) {
	dir := t.TempDir()
	ch0 := []int{0, 200, -200, 2047, -2047, 5, -2048}
	ch1 := []int{100, 100, 100, 100, 100, 100, 100}

	hdr := wfdb.Header{
		Record:      "r212",
		SignalCount: 2,
		Fs:          360,
		Signals: []wfdb.SignalSpec{
			{Format: 212, Gain: 200, Description: "MLII"},
			{Format: 212, Gain: 200, Description: "V5"},
		},
	}
	require.NoError(t, wfdb.WriteRecord(dir, hdr, [][]int{ch0, ch1}))

	rec, err := wfdb.ReadRecord(filepath.Join(dir, "r212"))
	require.NoError(t, err)

	assert.Equal(t, "r212", rec.Name)
	assert.Equal(t, 360.0, rec.Fs)
	assert.Equal(t, 2, rec.NSig)
	assert.Equal(t, len(ch0), rec.SigLen)
	assert.Equal(t, []string{"MLII", "V5"}, rec.Labels)

	assert.InDelta(t, 0.0, rec.Signals[0][0], 1e-9)
	assert.InDelta(t, 1.0, rec.Signals[0][1], 1e-9)
	assert.InDelta(t, -1.0, rec.Signals[0][2], 1e-9)
	assert.InDelta(t, 2047.0/200, rec.Signals[0][3], 1e-9)
	assert.InDelta(t, -2047.0/200, rec.Signals[0][4], 1e-9)
	assert.True(t, math.IsNaN(rec.Signals[0][6]), "invalid sample should decode to NaN")
	for _, v := range rec.Signals[1] {
		assert.InDelta(t, 0.5, v, 1e-9)
	}
}

func TestReadDigitalFormat16WithOffset(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	buf.Write(make([]byte, 4))
	for _, v := range []int16{1, -1, 2, -2, 3, -3} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.dat"), buf.Bytes(), 0o644))

	hdr := &wfdb.Header{
		SignalCount: 2,
		Fs:          100,
		Signals: []wfdb.SignalSpec{
			{FileName: "x.dat", Format: 16, SamplesPerFrame: 1, ByteOffset: 4},
			{FileName: "x.dat", Format: 16, SamplesPerFrame: 1, ByteOffset: 4},
		},
	}
	digital, err := wfdb.ReadDigital(dir, hdr)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, digital[0])
	assert.Equal(t, []int{-1, -2, -3}, digital[1])
	assert.Equal(t, 3, hdr.SigLen)
}

func TestReadDigitalShortFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.dat"), []byte{1, 0}, 0o644))
	hdr := &wfdb.Header{
		SignalCount: 1,
		SigLen:      10,
		Signals:     []wfdb.SignalSpec{{FileName: "x.dat", Format: 16, SamplesPerFrame: 1}},
	}
	_, err := wfdb.ReadDigital(dir, hdr)
	require.Error(t, err)
}

func TestAnnotationsRoundTrip(t *testing.T) {
	samples := []int{18, 77, 370, 662, 5000, 5001}
	codes := []int{wfdb.Code("+"), wfdb.Code("N"), wfdb.Code("N"), wfdb.Code("/"), wfdb.Code("V"), wfdb.Code("~")}

	var buf bytes.Buffer
	require.NoError(t, wfdb.EncodeAnnotations(&buf, samples, codes))

	gotSamples, gotCodes, err := wfdb.DecodeAnnotations(&buf)
	require.NoError(t, err)
	assert.Equal(t, samples, gotSamples)
	assert.Equal(t, codes, gotCodes)
}

func TestDecodeAnnotationsSkipsAuxAndModifiers(t *testing.T) {
	var buf bytes.Buffer
	word := func(code, interval int) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(code<<10|interval)))
	}
	word(1, 10) // N at 10
	word(63, 3) // aux of length 3, padded to 4
	buf.Write([]byte("(N\x00\x00"))
	word(61, 1)  // sub modifier
	word(62, 0)  // chan modifier
	word(5, 20)  // V at 30
	word(0, 0)   // end
	word(1, 100) // ignored after end marker

	samples, codes, err := wfdb.DecodeAnnotations(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30}, samples)
	assert.Equal(t, []int{1, 5}, codes)
}

func TestReadAnnotationsSymbols(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, wfdb.EncodeAnnotations(&buf, []int{5, 9}, []int{wfdb.Code("N"), wfdb.Code("/")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "100.atr"), buf.Bytes(), 0o644))

	set, err := wfdb.ReadAnnotations(filepath.Join(dir, "100"), "atr")
	require.NoError(t, err)
	assert.Equal(t, "100", set.Record)
	assert.Equal(t, []int{5, 9}, set.Samples)
	assert.Equal(t, []string{"N", "/"}, set.Symbols)
	assert.True(t, set.HasSymbol("/"))
}

func TestSymbolCode(t *testing.T) {
	assert.Equal(t, "N", wfdb.Symbol(1))
	assert.Equal(t, "r", wfdb.Symbol(41))
	assert.Equal(t, "[50]", wfdb.Symbol(50))
	assert.Equal(t, 12, wfdb.Code("/"))
	assert.Equal(t, -1, wfdb.Code("no-such"))
}
