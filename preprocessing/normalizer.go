package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// StandardizeEpsilon is the floor applied to a feature's standard
// deviation during standardization. Training and evaluation share this
// single constant so artifacts reproduce bit-identical transforms.
const StandardizeEpsilon = 1e-12

// Row-wise norm types.
const (
	NormL1  = "l1"
	NormL2  = "l2"
	NormMax = "max"
	NormStd = "std"
)

var validNorms = []string{NormL1, NormL2, NormMax, NormStd}

// Normalizer performs two-stage normalization: per-feature
// standardization (x - mean) / max(std, epsilon) with statistics fit on
// the training set, followed by a row-wise vector norm.
//
// Reapplying Transform with the same fitted statistics is idempotent for
// the standardization stage only; the row norm is recomputed on every
// call.
type Normalizer struct {
	State *model.StateManager

	// Type is the row-wise norm: l1, l2, max, or std.
	Type string

	// Means and StdDevs are the fitted per-feature statistics.
	Means   []float64
	StdDevs []float64

	// NFeatures is the fitted feature arity.
	NFeatures int
}

// NewNormalizer creates a Normalizer with the given row-norm type. An
// unrecognized type is an InvalidConfigurationError.
func NewNormalizer(normType string) (*Normalizer, error) {
	switch normType {
	case NormL1, NormL2, NormMax, NormStd:
	default:
		return nil, errors.NewInvalidConfigurationError("normalization.type", normType, validNorms...)
	}
	return &Normalizer{
		State: model.NewStateManager(),
		Type:  normType,
	}, nil
}

// RestoreNormalizer rebuilds a fitted Normalizer from persisted artifact
// statistics.
func RestoreNormalizer(normType string, means, stdDevs []float64) (*Normalizer, error) {
	n, err := NewNormalizer(normType)
	if err != nil {
		return nil, err
	}
	if len(means) != len(stdDevs) {
		return nil, errors.NewDimensionError("RestoreNormalizer", len(means), len(stdDevs), 1)
	}
	n.Means = means
	n.StdDevs = stdDevs
	n.NFeatures = len(means)
	n.State.SetFitted()
	return n, nil
}

// Fit computes per-feature means and population standard deviations.
func (n *Normalizer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewEmptyDatasetError("Normalizer.Fit", "")
	}

	n.NFeatures = c
	n.Means = make([]float64, c)
	n.StdDevs = make([]float64, c)

	column := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			column[i] = X.At(i, j)
		}
		n.Means[j] = stat.Mean(column, nil)

		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := column[i] - n.Means[j]
			sumSquares += diff * diff
		}
		n.StdDevs[j] = math.Sqrt(sumSquares / float64(r))
	}

	n.State.SetFitted()
	n.State.SetDimensions(c, r)
	return nil
}

// Transform standardizes each feature with the fitted statistics and then
// applies the row-wise norm. Transforming an empty matrix returns an
// empty matrix.
func (n *Normalizer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !n.State.IsFitted() {
		return nil, errors.NewNotFittedError("Normalizer", "Transform")
	}

	r, c := X.Dims()
	if r == 0 {
		return &mat.Dense{}, nil
	}
	if c != n.NFeatures {
		return nil, errors.NewDimensionError("Normalizer.Transform", n.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			std := n.StdDevs[j]
			if std < StandardizeEpsilon {
				std = StandardizeEpsilon
			}
			row[j] = (X.At(i, j) - n.Means[j]) / std
		}
		n.normalizeRow(row)
		result.SetRow(i, row)
	}
	return result, nil
}

// FitTransform fits on X and transforms the same data.
func (n *Normalizer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := n.Fit(X); err != nil {
		return nil, err
	}
	return n.Transform(X)
}

// normalizeRow applies the row-wise norm in place. A zero denominator
// leaves the row unchanged instead of dividing by zero.
func (n *Normalizer) normalizeRow(row []float64) {
	switch n.Type {
	case NormL1:
		sum := 0.0
		for _, v := range row {
			sum += math.Abs(v)
		}
		scaleRow(row, sum)
	case NormL2:
		sum := 0.0
		for _, v := range row {
			sum += v * v
		}
		scaleRow(row, math.Sqrt(sum))
	case NormMax:
		max := 0.0
		for _, v := range row {
			if math.Abs(v) > max {
				max = math.Abs(v)
			}
		}
		scaleRow(row, max)
	case NormStd:
		mean := stat.Mean(row, nil)
		sumSquares := 0.0
		for _, v := range row {
			diff := v - mean
			sumSquares += diff * diff
		}
		std := math.Sqrt(sumSquares / float64(len(row)))
		if std < StandardizeEpsilon {
			return
		}
		for i := range row {
			row[i] = (row[i] - mean) / std
		}
	}
}

func scaleRow(row []float64, denom float64) {
	if denom < StandardizeEpsilon {
		return
	}
	for i := range row {
		row[i] /= denom
	}
}

// String returns a printable description of the normalizer.
func (n *Normalizer) String() string {
	if !n.State.IsFitted() {
		return fmt.Sprintf("Normalizer(type=%s)", n.Type)
	}
	return fmt.Sprintf("Normalizer(type=%s, n_features=%d)", n.Type, n.NFeatures)
}
