package ptbxl_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verte-zerg/ecgprep/internal/logging"
	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/ptbxl"
	"github.com/verte-zerg/ecgprep/internal/wfdb"
)

const index = `ecg_id,patient_id,scp_codes,strat_fold,filename_lr,filename_hr
1,15709.0,"{'NORM': 100.0, 'LVOLT': 0.0, 'SR': 0.0}",3,records100/00000/00001_lr,records500/00000/00001_hr
2,13243.0,"{'IMI': 35.0, 'SR': 0.0}",2,records100/00000/00002_lr,records500/00000/00002_hr
3,20372.0,"{'NORM': 100.0, 'SR': 0.0}",5,records100/00000/00003_lr,records500/00000/00003_hr
4,17014.0,"{'NORM': 80.0}",3,records100/00000/00004_lr,records500/00000/00004_hr
`

func testContext() context.Context {
	return logging.WithLogger(context.Background(), zap.NewNop().Sugar())
}

func writeRecord(t *testing.T, dir, rel string, fs float64, n int, offset int) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	lead0 := make([]int, n)
	lead1 := make([]int, n)
	for i := 0; i < n; i++ {
		lead0[i] = i
		lead1[i] = offset + i*2
	}
	hdr := wfdb.Header{
		Record:      filepath.Base(full),
		SignalCount: 2,
		Fs:          fs,
		Signals: []wfdb.SignalSpec{
			{Format: 16, Gain: 1000, Units: "mV", Description: "I"},
			{Format: 16, Gain: 1000, Units: "mV", Description: "II"},
		},
	}
	require.NoError(t, wfdb.WriteRecord(filepath.Dir(full), hdr, [][]int{lead0, lead1}))
}

func writeDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ptbxl.IndexFile), []byte(index), 0o644))
	for _, id := range []string{"00001", "00002", "00003", "00004"} {
		writeRecord(t, dir, "records500/00000/"+id+"_hr", 500, 50, 100)
		writeRecord(t, dir, "records100/00000/"+id+"_lr", 100, 10, 200)
	}
	return dir
}

func TestParseSCPCodes(t *testing.T) {
	codes, err := ptbxl.ParseSCPCodes("{'NORM': 100.0, 'SR': 0.0}")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"NORM": 100, "SR": 0}, codes)

	codes, err = ptbxl.ParseSCPCodes(`{"AFIB": 50}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AFIB": 50}, codes)

	codes, err = ptbxl.ParseSCPCodes("{}")
	require.NoError(t, err)
	assert.Empty(t, codes)

	for _, bad := range []string{"NORM", "{NORM: 1}", "{'NORM' 1}", "{'NORM': x}"} {
		_, err := ptbxl.ParseSCPCodes(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadIndexAndSelect(t *testing.T) {
	entries, err := ptbxl.ReadIndex(strings.NewReader(index))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, 2, entries[1].ID)
	assert.Equal(t, "records100/00000/00002_lr", entries[1].FilenameLR)

	norm := ptbxl.Select(entries, "NORM")
	require.Len(t, norm, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{norm[0].ID, norm[1].ID, norm[2].ID})
	assert.Len(t, ptbxl.Select(entries, "IMI"), 1)
	assert.Empty(t, ptbxl.Select(entries, "AFIB"))
}

func TestReadIndexMissingColumn(t *testing.T) {
	_, err := ptbxl.ReadIndex(strings.NewReader("ecg_id,scp_codes\n1,{}\n"))
	require.Error(t, err)
}

func TestEntryFilename(t *testing.T) {
	e := ptbxl.Entry{FilenameLR: "lr", FilenameHR: "hr"}
	name, err := e.Filename(100)
	require.NoError(t, err)
	assert.Equal(t, "lr", name)
	name, err = e.Filename(500)
	require.NoError(t, err)
	assert.Equal(t, "hr", name)
	_, err = e.Filename(250)
	require.Error(t, err)
}

func TestLoadHighRate(t *testing.T) {
	dir := writeDatabase(t)

	signals, err := ptbxl.Load(testContext(), dir, ptbxl.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, "00001_hr", signals[0].Name)
	assert.Equal(t, 500.0, signals[0].Fs)
	assert.Len(t, signals[0].Samples, 50)
	assert.InDelta(t, 0.1, signals[0].Samples[0], 1e-9)
	assert.InDelta(t, 0.102, signals[0].Samples[1], 1e-9)
}

func TestLoadLowRateLimitAndLead(t *testing.T) {
	dir := writeDatabase(t)

	cfg := model.PTBXLConfig{Class: "NORM", Rate: 100, Lead: 0, Limit: 2}
	signals, err := ptbxl.Load(testContext(), dir, cfg)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "00001_lr", signals[0].Name)
	assert.Equal(t, 3, signals[1].ID)
	assert.Equal(t, 100.0, signals[0].Fs)
	assert.InDelta(t, 0.009, signals[0].Samples[9], 1e-9)
}

func TestLoadAllAndDownsample(t *testing.T) {
	dir := writeDatabase(t)

	cfg := ptbxl.DefaultConfig()
	cfg.Limit = 0
	cfg.TargetRate = 100
	signals, err := ptbxl.Load(testContext(), dir, cfg)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, 100.0, signals[0].Fs)
	assert.Len(t, signals[0].Samples, 10)
	assert.InDelta(t, 0.110, signals[0].Samples[1], 1e-9)

	m, err := ptbxl.Stack(signals)
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 10, c)
}

func TestLoadSkipsMissingRecords(t *testing.T) {
	dir := writeDatabase(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "records500", "00000", "00003_hr.hea")))

	signals, err := ptbxl.Load(testContext(), dir, ptbxl.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, 4, signals[1].ID)
}

func TestLoadLeadOutOfRange(t *testing.T) {
	dir := writeDatabase(t)
	cfg := ptbxl.DefaultConfig()
	cfg.Lead = 5
	signals, err := ptbxl.Load(testContext(), dir, cfg)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestStackLengthMismatch(t *testing.T) {
	_, err := ptbxl.Stack([]ptbxl.Signal{
		{Name: "a", Samples: []float64{1, 2}},
		{Name: "b", Samples: []float64{1}},
	})
	require.Error(t, err)

	_, err = ptbxl.Stack(nil)
	require.Error(t, err)
}
