package classifier

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
	"github.com/urbanrisk/crimeml/pkg/log"
)

// LogisticRegression is a binary and one-vs-rest multiclass logistic
// regression fit by full-batch gradient descent with an adaptive learning
// rate and L2 regularization.
//
// Fields are exported for gob encoding.
type LogisticRegression struct {
	State *model.StateManager

	// Hyperparameters
	LearningRate float64
	MaxIter      int
	C            float64 // inverse regularization strength
	Tol          float64

	// Fitted parameters
	Coef      [][]float64 // one weight vector per class (one for binary)
	Intercept []float64
	ClassList []int
	NFeatures int

	seed int64
}

// NewLogisticRegression creates a logistic regression classifier from
// resolved options.
func NewLogisticRegression(opts Options) *LogisticRegression {
	return &LogisticRegression{
		State:        model.NewStateManager(),
		LearningRate: opts.LearningRate,
		MaxIter:      opts.MaxIter,
		C:            opts.C,
		Tol:          opts.Tol,
		seed:         opts.Seed,
	}
}

func (lr *LogisticRegression) Name() string { return LogisticRegressionType.String() }

// Classes returns the sorted class labels seen during fitting.
func (lr *LogisticRegression) Classes() []int { return lr.ClassList }

// GetParams returns the resolved hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": lr.LearningRate,
		"max_iter":      lr.MaxIter,
		"C":             lr.C,
		"tol":           lr.Tol,
	}
}

// Fit trains the model. Binary problems get a single weight vector over
// the positive class; multiclass problems get one one-vs-rest vector per
// class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := validateXY("LogisticRegression.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	lr.ClassList = extractClasses(y)
	lr.NFeatures = nFeatures

	rng := rand.New(rand.NewSource(lr.seed))
	nVectors := len(lr.ClassList)
	if nVectors == 2 {
		nVectors = 1
	}
	lr.Coef = make([][]float64, nVectors)
	lr.Intercept = make([]float64, nVectors)
	for v := range lr.Coef {
		lr.Coef[v] = make([]float64, nFeatures)
		for j := range lr.Coef[v] {
			lr.Coef[v][j] = rng.NormFloat64() * 0.01
		}
	}

	if len(lr.ClassList) == 2 {
		lr.fitOne(X, binaryTargets(y, nSamples, lr.ClassList[1]), 0)
	} else {
		for classIdx, class := range lr.ClassList {
			lr.fitOne(X, binaryTargets(y, nSamples, class), classIdx)
		}
	}

	lr.State.SetFitted()
	lr.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// binaryTargets converts labels to 0/1 against a positive class.
func binaryTargets(y mat.Matrix, nSamples, positive int) []float64 {
	targets := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		if int(y.At(i, 0)) == positive {
			targets[i] = 1
		}
	}
	return targets
}

// fitOne runs gradient descent for one weight vector.
func (lr *LogisticRegression) fitOne(X mat.Matrix, targets []float64, vec int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.Coef[vec]
	intercept := &lr.Intercept[vec]
	converged := false

	for iter := 0; iter < lr.MaxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - targets[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		// L2 penalty gradient
		lambda := 1.0 / lr.C
		for j := range weights {
			gradWeights[j] += lambda * weights[j] / float64(nSamples)
		}

		learningRate := lr.LearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		*intercept -= learningRate * gradIntercept

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.Tol {
			converged = true
			break
		}
	}

	if !converged {
		warning := errors.NewConvergenceWarning("LogisticRegression", lr.MaxIter)
		slog.Warn(warning.Error(), log.ComponentKey, "classifier")
	}
}

// decision computes the raw score of sample i against weight vector v.
func (lr *LogisticRegression) decision(X mat.Matrix, i, vec int) float64 {
	z := lr.Intercept[vec]
	for j := 0; j < lr.NFeatures; j++ {
		z += X.At(i, j) * lr.Coef[vec][j]
	}
	return z
}

// Predict returns the hard class prediction per sample.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := proba.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for c := 1; c < len(lr.ClassList); c++ {
			if proba.At(i, c) > proba.At(i, best) {
				best = c
			}
		}
		predictions.Set(i, 0, float64(lr.ClassList[best]))
	}
	return predictions, nil
}

// PredictProba returns per-class probabilities in Classes() order.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !lr.State.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.NFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, len(lr.ClassList), nil)
	if len(lr.ClassList) == 2 {
		for i := 0; i < nSamples; i++ {
			p := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
		}
		return probas, nil
	}

	// One-vs-rest scores through softmax.
	for i := 0; i < nSamples; i++ {
		scores := make([]float64, len(lr.ClassList))
		maxScore := math.Inf(-1)
		for c := range lr.ClassList {
			scores[c] = lr.decision(X, i, c)
			if scores[c] > maxScore {
				maxScore = scores[c]
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

// FeatureImportances returns mean absolute coefficient magnitudes.
func (lr *LogisticRegression) FeatureImportances() []float64 {
	if len(lr.Coef) == 0 {
		return nil
	}
	importances := make([]float64, lr.NFeatures)
	for _, weights := range lr.Coef {
		for j, w := range weights {
			importances[j] += math.Abs(w)
		}
	}
	for j := range importances {
		importances[j] /= float64(len(lr.Coef))
	}
	return importances
}

// sigmoid computes the logistic function.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
