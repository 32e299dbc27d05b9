package classifier

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// LinearSVC is a linear support vector classifier fit by stochastic
// subgradient descent on the hinge loss with L2 regularization. It does
// not expose probabilities; evaluation falls back to hard predictions.
//
// Fields are exported for gob encoding.
type LinearSVC struct {
	State *model.StateManager

	LearningRate float64
	MaxIter      int
	C            float64 // cost: weight of the hinge term

	Coef      [][]float64 // one weight vector per class (one for binary)
	Intercept []float64
	ClassList []int
	NFeatures int

	seed int64
}

// NewLinearSVC creates a linear SVC from resolved options.
func NewLinearSVC(opts Options) *LinearSVC {
	return &LinearSVC{
		State:        model.NewStateManager(),
		LearningRate: opts.LearningRate,
		MaxIter:      opts.MaxIter,
		C:            opts.C,
		seed:         opts.Seed,
	}
}

func (svc *LinearSVC) Name() string { return SVCType.String() }

// Classes returns the sorted class labels seen during fitting.
func (svc *LinearSVC) Classes() []int { return svc.ClassList }

// GetParams returns the resolved hyperparameters.
func (svc *LinearSVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": svc.LearningRate,
		"max_iter":      svc.MaxIter,
		"cost":          svc.C,
		"kernel":        "linear",
	}
}

// Fit trains one weight vector for binary problems and one one-vs-rest
// vector per class otherwise.
func (svc *LinearSVC) Fit(X, y mat.Matrix) error {
	if err := validateXY("LinearSVC.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	svc.ClassList = extractClasses(y)
	svc.NFeatures = nFeatures

	nVectors := len(svc.ClassList)
	if nVectors == 2 {
		nVectors = 1
	}
	svc.Coef = make([][]float64, nVectors)
	svc.Intercept = make([]float64, nVectors)
	for v := range svc.Coef {
		svc.Coef[v] = make([]float64, nFeatures)
	}

	if len(svc.ClassList) == 2 {
		svc.fitOne(X, y, svc.ClassList[1], 0, nSamples)
	} else {
		for classIdx, class := range svc.ClassList {
			svc.fitOne(X, y, class, classIdx, nSamples)
		}
	}

	svc.State.SetFitted()
	svc.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// fitOne runs Pegasos-style SGD for one weight vector, with +1/-1 targets
// against the given positive class.
func (svc *LinearSVC) fitOne(X, y mat.Matrix, positive, vec, nSamples int) {
	weights := svc.Coef[vec]
	intercept := &svc.Intercept[vec]
	lambda := 1.0 / (svc.C * float64(nSamples))
	rng := rand.New(rand.NewSource(svc.seed + int64(vec)))

	for epoch := 0; epoch < svc.MaxIter; epoch++ {
		order := rng.Perm(nSamples)
		eta := svc.LearningRate / (1.0 + float64(epoch))

		for _, i := range order {
			target := -1.0
			if int(y.At(i, 0)) == positive {
				target = 1.0
			}
			margin := *intercept
			for j := range weights {
				margin += X.At(i, j) * weights[j]
			}
			margin *= target

			for j := range weights {
				grad := lambda * weights[j]
				if margin < 1 {
					grad -= target * X.At(i, j)
				}
				weights[j] -= eta * grad
			}
			if margin < 1 {
				*intercept += eta * target
			}
		}
	}
}

// decision computes the raw margin of sample i against weight vector v.
func (svc *LinearSVC) decision(X mat.Matrix, i, vec int) float64 {
	z := svc.Intercept[vec]
	for j := 0; j < svc.NFeatures; j++ {
		z += X.At(i, j) * svc.Coef[vec][j]
	}
	return z
}

// Predict returns the hard class prediction per sample.
func (svc *LinearSVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !svc.State.IsFitted() {
		return nil, errors.NewNotFittedError("LinearSVC", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != svc.NFeatures {
		return nil, errors.NewDimensionError("LinearSVC.Predict", svc.NFeatures, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	if len(svc.ClassList) == 2 {
		for i := 0; i < nSamples; i++ {
			if svc.decision(X, i, 0) >= 0 {
				predictions.Set(i, 0, float64(svc.ClassList[1]))
			} else {
				predictions.Set(i, 0, float64(svc.ClassList[0]))
			}
		}
		return predictions, nil
	}

	for i := 0; i < nSamples; i++ {
		best := 0
		bestScore := svc.decision(X, i, 0)
		for c := 1; c < len(svc.ClassList); c++ {
			if score := svc.decision(X, i, c); score > bestScore {
				bestScore = score
				best = c
			}
		}
		predictions.Set(i, 0, float64(svc.ClassList[best]))
	}
	return predictions, nil
}

// FeatureImportances returns mean absolute coefficient magnitudes.
func (svc *LinearSVC) FeatureImportances() []float64 {
	if len(svc.Coef) == 0 {
		return nil
	}
	importances := make([]float64, svc.NFeatures)
	for _, weights := range svc.Coef {
		for j, w := range weights {
			if w < 0 {
				w = -w
			}
			importances[j] += w
		}
	}
	for j := range importances {
		importances[j] /= float64(len(svc.Coef))
	}
	return importances
}
