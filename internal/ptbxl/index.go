// Package ptbxl loads single-lead recordings from a PTB-XL style database
// directory, filtered by diagnostic class.
package ptbxl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IndexFile is the metadata table at the root of a PTB-XL directory.
const IndexFile = "ptbxl_database.csv"

// Entry is one row of the metadata table.
type Entry struct {
	ID         int
	Codes      map[string]float64
	FilenameLR string
	FilenameHR string
}

// HasCode reports whether the entry lists the diagnostic code.
func (e Entry) HasCode(code string) bool {
	_, ok := e.Codes[code]
	return ok
}

// Filename returns the record path for the sampling rate (100 or 500 Hz).
func (e Entry) Filename(rate int) (string, error) {
	switch rate {
	case 100:
		return e.FilenameLR, nil
	case 500:
		return e.FilenameHR, nil
	default:
		return "", fmt.Errorf("unsupported sampling rate %d, expected 100 or 500", rate)
	}
}

// LoadIndex reads dir/ptbxl_database.csv.
func LoadIndex(dir string) ([]Entry, error) {
	path := filepath.Join(dir, IndexFile)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only index.
			_ = cerr
		}
	}()
	return ReadIndex(file)
}

// ReadIndex parses a metadata table. Columns are located by header name.
func ReadIndex(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("index has no header")
		}
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	required := []string{"ecg_id", "scp_codes", "filename_lr", "filename_hr"}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("index is missing column %q", name)
		}
	}

	var entries []Entry
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read index line %d: %w", line, err)
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("invalid record at line %d: expected %d columns, got %d", line, len(header), len(row))
		}
		id, err := strconv.ParseFloat(strings.TrimSpace(row[cols["ecg_id"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ecg_id at line %d: %w", line, err)
		}
		codes, err := ParseSCPCodes(row[cols["scp_codes"]])
		if err != nil {
			return nil, fmt.Errorf("invalid scp_codes at line %d: %w", line, err)
		}
		entries = append(entries, Entry{
			ID:         int(id),
			Codes:      codes,
			FilenameLR: strings.TrimSpace(row[cols["filename_lr"]]),
			FilenameHR: strings.TrimSpace(row[cols["filename_hr"]]),
		})
	}
	return entries, nil
}

// ParseSCPCodes parses a dictionary literal such as
// {'NORM': 100.0, 'SR': 0.0} into code likelihoods.
func ParseSCPCodes(s string) (map[string]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("expected a dictionary, got %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	codes := make(map[string]float64)
	if body == "" {
		return codes, nil
	}
	for _, item := range strings.Split(body, ",") {
		key, value, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid item %q", item)
		}
		key = strings.TrimSpace(key)
		if len(key) < 2 || (key[0] != '\'' && key[0] != '"') || key[len(key)-1] != key[0] {
			return nil, fmt.Errorf("invalid key %q", key)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		codes[key[1:len(key)-1]] = v
	}
	return codes, nil
}

// Select returns the entries listing class, in index order.
func Select(entries []Entry, class string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.HasCode(class) {
			out = append(out, e)
		}
	}
	return out
}
