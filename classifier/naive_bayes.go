package classifier

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// GaussianNB is a Gaussian naive Bayes classifier: per-class feature
// means and variances with a variance-smoothing floor.
//
// Fields are exported for gob encoding.
type GaussianNB struct {
	State *model.StateManager

	VarSmoothing float64

	// Fitted parameters, indexed by class position in ClassList.
	ClassList []int
	LogPriors []float64
	Theta     [][]float64 // per-class feature means
	Sigma     [][]float64 // per-class feature variances
	NFeatures int
}

// NewGaussianNB creates a Gaussian naive Bayes classifier from resolved
// options.
func NewGaussianNB(opts Options) *GaussianNB {
	return &GaussianNB{
		State:        model.NewStateManager(),
		VarSmoothing: opts.VarSmoothing,
	}
}

func (nb *GaussianNB) Name() string { return NaiveBayesType.String() }

// Classes returns the sorted class labels seen during fitting.
func (nb *GaussianNB) Classes() []int { return nb.ClassList }

// GetParams returns the resolved hyperparameters.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing": nb.VarSmoothing,
	}
}

// Fit estimates class priors and per-class Gaussian parameters.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if err := validateXY("GaussianNB.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	nb.ClassList = extractClasses(y)
	nb.NFeatures = nFeatures

	nClasses := len(nb.ClassList)
	nb.LogPriors = make([]float64, nClasses)
	nb.Theta = make([][]float64, nClasses)
	nb.Sigma = make([][]float64, nClasses)

	// Largest feature variance across the data scales the smoothing
	// floor, matching the usual var_smoothing semantics.
	maxVariance := 0.0
	column := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		for i := 0; i < nSamples; i++ {
			column[i] = X.At(i, j)
		}
		if v := popVariance(column); v > maxVariance {
			maxVariance = v
		}
	}
	epsilon := nb.VarSmoothing * maxVariance
	if epsilon <= 0 {
		epsilon = nb.VarSmoothing
	}

	for c, class := range nb.ClassList {
		var members []int
		for i := 0; i < nSamples; i++ {
			if int(y.At(i, 0)) == class {
				members = append(members, i)
			}
		}
		nb.LogPriors[c] = math.Log(float64(len(members)) / float64(nSamples))
		nb.Theta[c] = make([]float64, nFeatures)
		nb.Sigma[c] = make([]float64, nFeatures)

		values := make([]float64, len(members))
		for j := 0; j < nFeatures; j++ {
			for k, i := range members {
				values[k] = X.At(i, j)
			}
			nb.Theta[c][j] = stat.Mean(values, nil)
			nb.Sigma[c][j] = popVariance(values) + epsilon
		}
	}

	nb.State.SetFitted()
	nb.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// jointLogLikelihood computes the unnormalized log posterior of sample i
// for every class.
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix, i int) []float64 {
	scores := make([]float64, len(nb.ClassList))
	for c := range nb.ClassList {
		score := nb.LogPriors[c]
		for j := 0; j < nb.NFeatures; j++ {
			diff := X.At(i, j) - nb.Theta[c][j]
			score -= 0.5 * (math.Log(2*math.Pi*nb.Sigma[c][j]) + diff*diff/nb.Sigma[c][j])
		}
		scores[c] = score
	}
	return scores
}

// Predict returns the maximum-posterior class per sample.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !nb.State.IsFitted() {
		return nil, errors.NewNotFittedError("GaussianNB", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.NFeatures {
		return nil, errors.NewDimensionError("GaussianNB.Predict", nb.NFeatures, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		scores := nb.jointLogLikelihood(X, i)
		best := 0
		for c := 1; c < len(scores); c++ {
			if scores[c] > scores[best] {
				best = c
			}
		}
		predictions.Set(i, 0, float64(nb.ClassList[best]))
	}
	return predictions, nil
}

// PredictProba normalizes the joint log likelihoods into probabilities.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !nb.State.IsFitted() {
		return nil, errors.NewNotFittedError("GaussianNB", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.NFeatures {
		return nil, errors.NewDimensionError("GaussianNB.PredictProba", nb.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, len(nb.ClassList), nil)
	for i := 0; i < nSamples; i++ {
		scores := nb.jointLogLikelihood(X, i)
		maxScore := scores[0]
		for _, s := range scores[1:] {
			if s > maxScore {
				maxScore = s
			}
		}
		sum := 0.0
		for c := range scores {
			scores[c] = math.Exp(scores[c] - maxScore)
			sum += scores[c]
		}
		for c := range scores {
			probas.Set(i, c, scores[c]/sum)
		}
	}
	return probas, nil
}

// popVariance computes the population variance of values.
func popVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}
