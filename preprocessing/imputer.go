// Package preprocessing implements the fit/transform stages that wrap any
// classifier in the pipeline: missing-value imputation and two-stage
// normalization. Statistics computed at fit time are owned by the artifact
// that persists them and are never recomputed at evaluation time.
package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

var validStrategies = []string{StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant}

// Imputer replaces missing feature values with per-feature statistics
// computed once over the training data.
//
// A value is missing when it equals the configured sentinel; with the
// default NaN sentinel, any non-finite value counts as missing.
type Imputer struct {
	State *model.StateManager

	// Strategy is one of mean, median, most_frequent, constant.
	Strategy string

	// MissingValue is the sentinel marking a missing cell. NaN by default.
	MissingValue float64

	// FillValue is the replacement used by the constant strategy.
	FillValue float64

	// Statistics holds the fitted per-feature replacement values.
	Statistics []float64

	// NFeatures is the fitted feature arity.
	NFeatures int
}

// ImputerOption is a functional option for Imputer.
type ImputerOption func(*Imputer)

// WithMissingValue sets the sentinel that marks a missing cell.
func WithMissingValue(v float64) ImputerOption {
	return func(imp *Imputer) {
		imp.MissingValue = v
	}
}

// WithFillValue sets the replacement value for the constant strategy.
func WithFillValue(v float64) ImputerOption {
	return func(imp *Imputer) {
		imp.FillValue = v
	}
}

// NewImputer creates an Imputer for the given strategy. An unrecognized
// strategy is an InvalidConfigurationError; there is no silent default.
func NewImputer(strategy string, opts ...ImputerOption) (*Imputer, error) {
	switch strategy {
	case StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant:
	default:
		return nil, errors.NewInvalidConfigurationError("imputer.strategy", strategy, validStrategies...)
	}

	imp := &Imputer{
		State:        model.NewStateManager(),
		Strategy:     strategy,
		MissingValue: math.NaN(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp, nil
}

// Restore rebuilds a fitted Imputer from persisted artifact statistics.
func Restore(strategy string, statistics []float64, missingValue, fillValue float64) (*Imputer, error) {
	imp, err := NewImputer(strategy, WithMissingValue(missingValue), WithFillValue(fillValue))
	if err != nil {
		return nil, err
	}
	imp.Statistics = statistics
	imp.NFeatures = len(statistics)
	imp.State.SetFitted()
	return imp, nil
}

// Fit computes the per-feature replacement statistics over the non-missing
// values of X.
func (imp *Imputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewEmptyDatasetError("Imputer.Fit", "")
	}

	imp.NFeatures = c
	imp.Statistics = make([]float64, c)

	for j := 0; j < c; j++ {
		present := make([]float64, 0, r)
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !imp.isMissing(v) {
				present = append(present, v)
			}
		}
		imp.Statistics[j] = imp.statistic(present)
	}

	imp.State.SetFitted()
	imp.State.SetDimensions(c, r)
	return nil
}

// statistic computes one feature's replacement value. A feature with no
// observed values falls back to FillValue so Transform still removes every
// missing sentinel.
func (imp *Imputer) statistic(present []float64) float64 {
	if imp.Strategy == StrategyConstant {
		return imp.FillValue
	}
	if len(present) == 0 {
		return imp.FillValue
	}

	switch imp.Strategy {
	case StrategyMean:
		return stat.Mean(present, nil)
	case StrategyMedian:
		sorted := append([]float64(nil), present...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	case StrategyMostFrequent:
		counts := make(map[float64]int, len(present))
		best := present[0]
		bestCount := 0
		for _, v := range present {
			counts[v]++
			if counts[v] > bestCount || (counts[v] == bestCount && v < best) {
				best = v
				bestCount = counts[v]
			}
		}
		return best
	}
	return imp.FillValue
}

// Transform returns a copy of X with every missing value replaced by the
// fitted statistic for its feature.
func (imp *Imputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !imp.State.IsFitted() {
		return nil, errors.NewNotFittedError("Imputer", "Transform")
	}

	r, c := X.Dims()
	if r == 0 {
		return &mat.Dense{}, nil
	}
	if c != imp.NFeatures {
		return nil, errors.NewDimensionError("Imputer.Transform", imp.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if imp.isMissing(v) {
				v = imp.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform fits the imputer on X and transforms the same data.
func (imp *Imputer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	return imp.Transform(X)
}

func (imp *Imputer) isMissing(v float64) bool {
	if math.IsNaN(imp.MissingValue) {
		return math.IsNaN(v) || math.IsInf(v, 0)
	}
	return v == imp.MissingValue
}

// String returns a printable description of the imputer.
func (imp *Imputer) String() string {
	if !imp.State.IsFitted() {
		return fmt.Sprintf("Imputer(strategy=%s)", imp.Strategy)
	}
	return fmt.Sprintf("Imputer(strategy=%s, n_features=%d)", imp.Strategy, imp.NFeatures)
}
