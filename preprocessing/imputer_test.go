package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestImputerStrategies(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(5, 2, []float64{
		1, 10,
		2, nan,
		3, 10,
		nan, 20,
		4, 10,
	})

	tests := []struct {
		name     string
		strategy string
		opts     []ImputerOption
		want0    float64 // replacement for column 0
		want1    float64 // replacement for column 1
	}{
		{"mean", StrategyMean, nil, 2.5, 12.5},
		{"median", StrategyMedian, nil, 2.5, 10},
		{"most frequent", StrategyMostFrequent, nil, 1, 10},
		{"constant", StrategyConstant, []ImputerOption{WithFillValue(-1)}, -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, err := NewImputer(tt.strategy, tt.opts...)
			if err != nil {
				t.Fatalf("NewImputer() error = %v", err)
			}
			out, err := imp.FitTransform(X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}

			if got := out.At(3, 0); math.Abs(got-tt.want0) > 1e-9 {
				t.Errorf("column 0 replacement = %v, want %v", got, tt.want0)
			}
			if got := out.At(1, 1); math.Abs(got-tt.want1) > 1e-9 {
				t.Errorf("column 1 replacement = %v, want %v", got, tt.want1)
			}

			// No missing values survive a transform.
			r, c := out.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					if math.IsNaN(out.At(i, j)) {
						t.Errorf("out[%d][%d] is NaN after transform", i, j)
					}
				}
			}
			// Present values pass through untouched.
			if out.At(0, 0) != 1 || out.At(4, 0) != 4 {
				t.Errorf("present values changed: %v, %v", out.At(0, 0), out.At(4, 0))
			}
		})
	}
}

func TestImputerCustomSentinel(t *testing.T) {
	imp, err := NewImputer(StrategyMean, WithMissingValue(-999))
	if err != nil {
		t.Fatal(err)
	}
	X := mat.NewDense(3, 1, []float64{2, -999, 4})
	out, err := imp.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if got := out.At(1, 0); got != 3 {
		t.Errorf("sentinel replacement = %v, want 3", got)
	}
}

func TestImputerAllMissingColumn(t *testing.T) {
	nan := math.NaN()
	imp, err := NewImputer(StrategyMean, WithFillValue(7))
	if err != nil {
		t.Fatal(err)
	}
	X := mat.NewDense(2, 2, []float64{1, nan, 3, nan})
	out, err := imp.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if out.At(0, 1) != 7 || out.At(1, 1) != 7 {
		t.Errorf("all-missing column = [%v %v], want fill value 7", out.At(0, 1), out.At(1, 1))
	}
}

func TestImputerErrors(t *testing.T) {
	if _, err := NewImputer("mode"); err == nil {
		t.Error("unknown strategy: expected error")
	}

	imp, err := NewImputer(StrategyMean)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := imp.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform before Fit: expected error")
	}

	if err := imp.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	if _, err := imp.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("arity mismatch: expected error")
	}
}

func TestImputerRestore(t *testing.T) {
	imp, err := Restore(StrategyMedian, []float64{1.5, 2.5}, math.NaN(), 0)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	X := mat.NewDense(1, 2, []float64{math.NaN(), math.NaN()})
	out, err := imp.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out.At(0, 0) != 1.5 || out.At(0, 1) != 2.5 {
		t.Errorf("restored transform = [%v %v], want [1.5 2.5]", out.At(0, 0), out.At(0, 1))
	}
}
