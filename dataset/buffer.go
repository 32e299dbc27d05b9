package dataset

import (
	"encoding/gob"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// DefaultMemoryCap is the number of rows a RowBuffer holds in memory
// before spilling to disk.
const DefaultMemoryCap = 50000

// LabeledRow is one parsed observation: an engineered feature vector and a
// non-negative class index. Binary classification uses labels {0, 1}.
type LabeledRow struct {
	Features []float64
	Label    int
}

// RowBuffer is a bounded store of labeled rows. Rows beyond the in-memory
// cap are spilled to a private temporary file; iteration is agnostic to
// where a row lives. The spill file belongs to exactly one run and is
// removed by Close on every exit path.
type RowBuffer struct {
	memCap    int
	rows      []LabeledRow
	spillPath string
	spillFile *os.File
	spillEnc  *gob.Encoder
	spilled   int
	closed    bool
}

// NewRowBuffer creates a RowBuffer with the given in-memory cap. A cap of
// zero or less uses DefaultMemoryCap.
func NewRowBuffer(memCap int) *RowBuffer {
	if memCap <= 0 {
		memCap = DefaultMemoryCap
	}
	return &RowBuffer{memCap: memCap}
}

// Append adds a row to the buffer, spilling to disk past the memory cap.
func (b *RowBuffer) Append(row LabeledRow) error {
	if b.closed {
		return errors.New("append to closed row buffer")
	}
	if len(b.rows) < b.memCap {
		b.rows = append(b.rows, row)
		return nil
	}

	if b.spillFile == nil {
		file, err := os.CreateTemp("", "crimeml-spill-*.gob")
		if err != nil {
			return errors.Wrap(err, "create spillover file")
		}
		b.spillFile = file
		b.spillPath = file.Name()
		b.spillEnc = gob.NewEncoder(file)
	}
	if err := b.spillEnc.Encode(row); err != nil {
		return errors.Wrap(err, "spill row")
	}
	b.spilled++
	return nil
}

// Count returns the total number of rows, in memory and spilled.
func (b *RowBuffer) Count() int {
	return len(b.rows) + b.spilled
}

// ForEach calls fn for every row in insertion order. Iteration is
// restartable: each call reads the spill file from the beginning.
func (b *RowBuffer) ForEach(fn func(row LabeledRow) error) error {
	for _, row := range b.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	if b.spilled == 0 {
		return nil
	}

	file, err := os.Open(b.spillPath)
	if err != nil {
		return errors.Wrap(err, "open spillover file")
	}
	defer file.Close() //nolint:errcheck

	dec := gob.NewDecoder(file)
	for i := 0; i < b.spilled; i++ {
		var row LabeledRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return errors.New("spillover file truncated")
			}
			return errors.Wrap(err, "decode spilled row")
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// NFeatures returns the feature arity of the buffer, zero when empty.
// Arity is identical across every row of one buffer by construction.
func (b *RowBuffer) NFeatures() int {
	if len(b.rows) > 0 {
		return len(b.rows[0].Features)
	}
	return 0
}

// Matrix materializes the buffer into a dense feature matrix and a label
// vector for batch fitting.
func (b *RowBuffer) Matrix() (*mat.Dense, []int, error) {
	n := b.Count()
	if n == 0 {
		return nil, nil, errors.NewEmptyDatasetError("RowBuffer.Matrix", "")
	}
	cols := b.NFeatures()

	X := mat.NewDense(n, cols, nil)
	y := make([]int, 0, n)
	i := 0
	err := b.ForEach(func(row LabeledRow) error {
		if len(row.Features) != cols {
			return errors.NewDimensionError("RowBuffer.Matrix", cols, len(row.Features), 1)
		}
		X.SetRow(i, row.Features)
		y = append(y, row.Label)
		i++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// Close flushes and deletes the spillover file. It is safe to call more
// than once.
func (b *RowBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.rows = nil

	if b.spillFile == nil {
		return nil
	}
	closeErr := b.spillFile.Close()
	removeErr := os.Remove(b.spillPath)
	b.spillFile = nil
	b.spillEnc = nil
	if closeErr != nil {
		return errors.Wrap(closeErr, "close spillover file")
	}
	if removeErr != nil {
		return errors.Wrap(removeErr, "remove spillover file")
	}
	return nil
}
