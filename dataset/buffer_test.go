package dataset

import (
	"os"
	"testing"
)

func appendRows(t *testing.T, b *RowBuffer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		row := LabeledRow{
			Features: []float64{float64(i), float64(i) * 2},
			Label:    i % 2,
		}
		if err := b.Append(row); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
}

func TestRowBufferInMemory(t *testing.T) {
	b := NewRowBuffer(100)
	defer b.Close()
	appendRows(t, b, 10)

	if b.Count() != 10 {
		t.Errorf("Count() = %d, want 10", b.Count())
	}
	if b.spilled != 0 {
		t.Errorf("spilled = %d, want 0", b.spilled)
	}
	if b.NFeatures() != 2 {
		t.Errorf("NFeatures() = %d, want 2", b.NFeatures())
	}
}

func TestRowBufferSpillover(t *testing.T) {
	b := NewRowBuffer(3)
	appendRows(t, b, 10)

	if b.Count() != 10 {
		t.Errorf("Count() = %d, want 10", b.Count())
	}
	if b.spilled != 7 {
		t.Errorf("spilled = %d, want 7", b.spilled)
	}
	spillPath := b.spillPath
	if spillPath == "" {
		t.Fatal("no spill file created")
	}

	// Iteration preserves insertion order and is restartable.
	for pass := 0; pass < 2; pass++ {
		i := 0
		err := b.ForEach(func(row LabeledRow) error {
			if row.Features[0] != float64(i) {
				t.Errorf("pass %d row %d: Features[0] = %v, want %v", pass, i, row.Features[0], float64(i))
			}
			i++
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() pass %d error = %v", pass, err)
		}
		if i != 10 {
			t.Errorf("pass %d visited %d rows, want 10", pass, i)
		}
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(spillPath); !os.IsNotExist(err) {
		t.Errorf("spill file %s still exists after Close", spillPath)
	}
	// Close is idempotent.
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestRowBufferMatrix(t *testing.T) {
	b := NewRowBuffer(3)
	defer b.Close()
	appendRows(t, b, 8)

	X, y, err := b.Matrix()
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	rows, cols := X.Dims()
	if rows != 8 || cols != 2 {
		t.Fatalf("Dims() = (%d, %d), want (8, 2)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		if X.At(i, 1) != float64(i)*2 {
			t.Errorf("X[%d][1] = %v, want %v", i, X.At(i, 1), float64(i)*2)
		}
		if y[i] != i%2 {
			t.Errorf("y[%d] = %d, want %d", i, y[i], i%2)
		}
	}
}

func TestRowBufferEmptyMatrix(t *testing.T) {
	b := NewRowBuffer(3)
	defer b.Close()
	if _, _, err := b.Matrix(); err == nil {
		t.Error("Matrix() on empty buffer: expected error")
	}
}

func TestRowBufferAppendAfterClose(t *testing.T) {
	b := NewRowBuffer(3)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Append(LabeledRow{Features: []float64{1}}); err == nil {
		t.Error("Append() after Close: expected error")
	}
}
