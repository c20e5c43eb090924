package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// CacheDir is the subdirectory of a record directory holding built arrays.
const CacheDir = "preprocessed"

// CachePaths returns the input and label array paths for dir.
func CachePaths(dir string) (string, string) {
	base := filepath.Join(dir, CacheDir)
	return filepath.Join(base, "x.npy"), filepath.Join(base, "y.npy")
}

// CacheExists reports whether both cached arrays exist for dir.
func CacheExists(dir string) (bool, error) {
	xPath, yPath := CachePaths(dir)
	for _, p := range []string{xPath, yPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// Save writes d to dir/preprocessed/x.npy and y.npy.
func Save(dir string, d *Dataset) error {
	x, y, err := d.Matrices()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, CacheDir), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	xPath, yPath := CachePaths(dir)
	if err := writeNpy(xPath, x); err != nil {
		return fmt.Errorf("failed to write inputs: %w", err)
	}
	if err := writeNpy(yPath, y); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	return nil
}

// Load reads the cached arrays of dir.
func Load(dir string) (*Dataset, error) {
	xPath, yPath := CachePaths(dir)
	x, err := readNpy(xPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	y, err := readNpy(yPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return FromMatrices(x, y)
}

// WriteMatrix writes m as a .npy file at path.
func WriteMatrix(path string, m *mat.Dense) error {
	return writeNpy(path, m)
}

func writeNpy(path string, m *mat.Dense) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return npyio.Write(f, m)
}

func readNpy(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only array.
			_ = cerr
		}
	}()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
