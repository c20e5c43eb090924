// Package dataset assembles windowed ECG inputs and labels from a directory
// of records and caches the result as NumPy arrays.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when a window does not have the dataset's
	// window length.
	ErrShapeMismatch = errors.New("window shape mismatch")
	// ErrEmpty is returned when a dataset without windows would be persisted.
	ErrEmpty = errors.New("dataset is empty")
)

// Dataset holds paired input and label windows in row-major buffers. Inputs
// and labels always have the same number of windows.
type Dataset struct {
	WindowLen int

	inputs []float64
	labels []uint8
}

// New returns an empty dataset for windows of windowLen samples. A zero
// windowLen is fixed by the first Append.
func New(windowLen int) *Dataset {
	return &Dataset{WindowLen: windowLen}
}

// Append adds paired windows. Either all windows are added or none.
func (d *Dataset) Append(inputs [][]float64, labels [][]uint8) error {
	if len(inputs) != len(labels) {
		return fmt.Errorf("got %d input windows and %d label windows", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return nil
	}
	want := d.WindowLen
	if want == 0 {
		want = len(inputs[0])
	}
	for i := range inputs {
		if len(inputs[i]) != want || len(labels[i]) != want {
			return fmt.Errorf("%w: window %d has %d inputs and %d labels, expected (-1, %d)",
				ErrShapeMismatch, i, len(inputs[i]), len(labels[i]), want)
		}
	}
	d.WindowLen = want
	for i := range inputs {
		d.inputs = append(d.inputs, inputs[i]...)
		d.labels = append(d.labels, labels[i]...)
	}
	return nil
}

// Len returns the number of windows.
func (d *Dataset) Len() int {
	if d.WindowLen == 0 {
		return 0
	}
	return len(d.inputs) / d.WindowLen
}

// Input returns window i of the inputs. The slice aliases the dataset.
func (d *Dataset) Input(i int) []float64 {
	return d.inputs[i*d.WindowLen : (i+1)*d.WindowLen]
}

// Label returns window i of the labels. The slice aliases the dataset.
func (d *Dataset) Label(i int) []uint8 {
	return d.labels[i*d.WindowLen : (i+1)*d.WindowLen]
}

// Positives returns the number of label samples equal to 1.
func (d *Dataset) Positives() int {
	n := 0
	for _, v := range d.labels {
		if v == 1 {
			n++
		}
	}
	return n
}

// Inputs returns all input samples in row-major order.
func (d *Dataset) Inputs() []float64 {
	return d.inputs
}

// Matrices returns the inputs and labels as (Len, WindowLen) matrices.
// Labels are stored as float64 values 0 and 1.
func (d *Dataset) Matrices() (*mat.Dense, *mat.Dense, error) {
	n := d.Len()
	if n == 0 {
		return nil, nil, ErrEmpty
	}
	x := mat.NewDense(n, d.WindowLen, append([]float64(nil), d.inputs...))
	y := make([]float64, len(d.labels))
	for i, v := range d.labels {
		y[i] = float64(v)
	}
	return x, mat.NewDense(n, d.WindowLen, y), nil
}

// FromMatrices builds a dataset from (windows, window length) matrices.
func FromMatrices(x, y *mat.Dense) (*Dataset, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr || xc != yc {
		return nil, fmt.Errorf("%w: inputs are (%d, %d), labels are (%d, %d)", ErrShapeMismatch, xr, xc, yr, yc)
	}
	d := &Dataset{
		WindowLen: xc,
		inputs:    make([]float64, 0, xr*xc),
		labels:    make([]uint8, 0, yr*yc),
	}
	for i := 0; i < xr; i++ {
		d.inputs = append(d.inputs, x.RawRowView(i)...)
		for _, v := range y.RawRowView(i) {
			if v != 0 {
				d.labels = append(d.labels, 1)
			} else {
				d.labels = append(d.labels, 0)
			}
		}
	}
	return d, nil
}
