package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func rowNorm(out *mat.Dense, i int, normType string) float64 {
	_, c := out.Dims()
	switch normType {
	case NormL1:
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += math.Abs(out.At(i, j))
		}
		return sum
	case NormL2:
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += out.At(i, j) * out.At(i, j)
		}
		return math.Sqrt(sum)
	case NormMax:
		max := 0.0
		for j := 0; j < c; j++ {
			if v := math.Abs(out.At(i, j)); v > max {
				max = v
			}
		}
		return max
	}
	return 0
}

func TestNormalizerRowNorms(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1, 200, -3,
		4, 180, 0,
		-2, 220, 5,
		0, 210, 1,
	})

	for _, normType := range []string{NormL1, NormL2, NormMax} {
		t.Run(normType, func(t *testing.T) {
			n, err := NewNormalizer(normType)
			if err != nil {
				t.Fatalf("NewNormalizer() error = %v", err)
			}
			out, err := n.FitTransform(X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}

			r, _ := out.Dims()
			for i := 0; i < r; i++ {
				if got := rowNorm(out, i, normType); math.Abs(got-1.0) > 1e-9 {
					t.Errorf("row %d %s norm = %v, want 1.0", i, normType, got)
				}
			}
		})
	}
}

func TestNormalizerStandardization(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 100,
		2, 200,
		3, 300,
		4, 400,
	})
	n, err := NewNormalizer(NormL2)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Fit(X); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if n.Means[0] != 2.5 || n.Means[1] != 250 {
		t.Errorf("Means = %v, want [2.5 250]", n.Means)
	}
	// Population standard deviation.
	wantStd := math.Sqrt(1.25)
	if math.Abs(n.StdDevs[0]-wantStd) > 1e-9 {
		t.Errorf("StdDevs[0] = %v, want %v", n.StdDevs[0], wantStd)
	}
}

func TestNormalizerConstantFeature(t *testing.T) {
	// A zero-variance feature standardizes through the epsilon floor
	// without dividing by zero.
	X := mat.NewDense(3, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
	})
	n, err := NewNormalizer(NormL2)
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := out.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("out[%d][%d] = %v, want finite", i, j, v)
			}
		}
	}
	// The constant column standardizes to exactly zero.
	for i := 0; i < r; i++ {
		if out.At(i, 0) != 0 {
			t.Errorf("constant column out[%d][0] = %v, want 0", i, out.At(i, 0))
		}
	}
}

func TestNormalizerEmptyTransform(t *testing.T) {
	n, err := NewNormalizer(NormL2)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	out, err := n.Transform(&mat.Dense{})
	if err != nil {
		t.Fatalf("Transform(empty) error = %v", err)
	}
	if r, c := out.Dims(); r != 0 || c != 0 {
		t.Errorf("Dims() = (%d, %d), want (0, 0)", r, c)
	}
}

func TestNormalizerRestore(t *testing.T) {
	n, err := RestoreNormalizer(NormL2, []float64{2.5, 250}, []float64{1.1180339887498949, 111.80339887498948})
	if err != nil {
		t.Fatalf("RestoreNormalizer() error = %v", err)
	}
	out, err := n.Transform(mat.NewDense(1, 2, []float64{3, 300}))
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got := rowNorm(out, 0, NormL2); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("restored row norm = %v, want 1.0", got)
	}
}

func TestNormalizerErrors(t *testing.T) {
	if _, err := NewNormalizer("l3"); err == nil {
		t.Error("unknown norm type: expected error")
	}

	n, err := NewNormalizer(NormL2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform before Fit: expected error")
	}
	if _, err := RestoreNormalizer(NormL2, []float64{1, 2}, []float64{1}); err == nil {
		t.Error("length mismatch on restore: expected error")
	}
}
