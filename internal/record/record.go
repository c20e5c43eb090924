// Package record resolves record basenames to an on-disk backend (WFDB or EDF)
// and reads them into model types.
package record

import (
	"errors"
	"fmt"
	"os"

	"github.com/verte-zerg/ecgprep/internal/model"
	"github.com/verte-zerg/ecgprep/internal/wfdb"
)

// Format identifies the on-disk representation of a record.
type Format string

// Supported record formats.
const (
	FormatWFDB Format = "wfdb"
	FormatEDF  Format = "edf"
)

// ErrNotFound is returned when neither a WFDB header nor an EDF file exists
// for a record path.
var ErrNotFound = errors.New("record not found")

// Reader reads records and their annotations. The zero value is ready to use.
type Reader struct{}

// Detect reports which backend holds the record at path (no extension).
// A WFDB header takes precedence over an EDF file of the same name.
func Detect(path string) (Format, error) {
	if exists(path + ".hea") {
		return FormatWFDB, nil
	}
	if exists(path + ".edf") {
		return FormatEDF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

// ReadRecord reads the record at path.
func (Reader) ReadRecord(path string) (*model.Record, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatEDF:
		return ReadEDF(path + ".edf")
	default:
		return wfdb.ReadRecord(path)
	}
}

// ReadAnnotations reads the WFDB annotation file path + "." + ext. EDF
// records use the same annotation files as WFDB records.
func (Reader) ReadAnnotations(path, ext string) (*model.AnnotationSet, error) {
	return wfdb.ReadAnnotations(path, ext)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
