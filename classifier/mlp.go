package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// MLP is a single-hidden-layer perceptron with tanh activation and a
// softmax output, fit by full-batch gradient descent on cross-entropy
// loss. The per-epoch loss is surfaced through the EpochHook option so
// long fits can report progress.
//
// Fields are exported for gob encoding.
type MLP struct {
	State *model.StateManager

	HiddenUnits  int
	LearningRate float64
	MaxIter      int

	// Fitted weights: input->hidden and hidden->output, plus biases.
	W1 [][]float64
	B1 []float64
	W2 [][]float64
	B2 []float64

	ClassList []int
	NFeatures int

	seed int64
	hook func(epoch, totalEpochs int, loss float64)
}

// NewMLP creates an MLP classifier from resolved options.
func NewMLP(opts Options) *MLP {
	return &MLP{
		State:        model.NewStateManager(),
		HiddenUnits:  opts.HiddenUnits,
		LearningRate: opts.LearningRate,
		MaxIter:      opts.MaxIter,
		seed:         opts.Seed,
		hook:         opts.EpochHook,
	}
}

func (mlp *MLP) Name() string { return MLPType.String() }

// Classes returns the sorted class labels seen during fitting.
func (mlp *MLP) Classes() []int { return mlp.ClassList }

// GetParams returns the resolved hyperparameters.
func (mlp *MLP) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_units":  mlp.HiddenUnits,
		"learning_rate": mlp.LearningRate,
		"max_iter":      mlp.MaxIter,
	}
}

// Fit trains the network by full-batch gradient descent.
func (mlp *MLP) Fit(X, y mat.Matrix) error {
	if err := validateXY("MLP.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	mlp.ClassList = extractClasses(y)
	mlp.NFeatures = nFeatures
	nClasses := len(mlp.ClassList)
	nHidden := mlp.HiddenUnits

	classIndex := make(map[int]int, nClasses)
	for i, c := range mlp.ClassList {
		classIndex[c] = i
	}
	targets := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		targets[i] = classIndex[int(y.At(i, 0))]
	}

	rng := rand.New(rand.NewSource(mlp.seed))
	initWeights := func(rows, cols int, scale float64) [][]float64 {
		w := make([][]float64, rows)
		for r := range w {
			w[r] = make([]float64, cols)
			for c := range w[r] {
				w[r][c] = rng.NormFloat64() * scale
			}
		}
		return w
	}
	// Xavier-style scaling keeps tanh activations out of saturation.
	mlp.W1 = initWeights(nFeatures, nHidden, math.Sqrt(1.0/float64(nFeatures)))
	mlp.B1 = make([]float64, nHidden)
	mlp.W2 = initWeights(nHidden, nClasses, math.Sqrt(1.0/float64(nHidden)))
	mlp.B2 = make([]float64, nClasses)

	hidden := make([][]float64, nSamples)
	output := make([][]float64, nSamples)
	for i := range hidden {
		hidden[i] = make([]float64, nHidden)
		output[i] = make([]float64, nClasses)
	}

	for epoch := 0; epoch < mlp.MaxIter; epoch++ {
		loss := 0.0
		gradW1 := initZero(nFeatures, nHidden)
		gradB1 := make([]float64, nHidden)
		gradW2 := initZero(nHidden, nClasses)
		gradB2 := make([]float64, nClasses)

		for i := 0; i < nSamples; i++ {
			mlp.forwardInto(X, i, hidden[i], output[i])
			loss -= math.Log(math.Max(output[i][targets[i]], 1e-15))

			// Output delta: softmax + cross entropy.
			deltaOut := make([]float64, nClasses)
			for c := 0; c < nClasses; c++ {
				deltaOut[c] = output[i][c]
				if c == targets[i] {
					deltaOut[c] -= 1
				}
			}
			for h := 0; h < nHidden; h++ {
				for c := 0; c < nClasses; c++ {
					gradW2[h][c] += hidden[i][h] * deltaOut[c]
				}
			}
			for c := 0; c < nClasses; c++ {
				gradB2[c] += deltaOut[c]
			}

			// Hidden delta through tanh'.
			for h := 0; h < nHidden; h++ {
				sum := 0.0
				for c := 0; c < nClasses; c++ {
					sum += deltaOut[c] * mlp.W2[h][c]
				}
				deltaHidden := sum * (1 - hidden[i][h]*hidden[i][h])
				for j := 0; j < nFeatures; j++ {
					gradW1[j][h] += X.At(i, j) * deltaHidden
				}
				gradB1[h] += deltaHidden
			}
		}

		scale := mlp.LearningRate / float64(nSamples)
		applyGrad(mlp.W1, gradW1, scale)
		applyGradVec(mlp.B1, gradB1, scale)
		applyGrad(mlp.W2, gradW2, scale)
		applyGradVec(mlp.B2, gradB2, scale)

		if mlp.hook != nil {
			mlp.hook(epoch+1, mlp.MaxIter, loss/float64(nSamples))
		}
	}

	mlp.State.SetFitted()
	mlp.State.SetDimensions(nFeatures, nSamples)
	return nil
}

func initZero(rows, cols int) [][]float64 {
	w := make([][]float64, rows)
	for r := range w {
		w[r] = make([]float64, cols)
	}
	return w
}

func applyGrad(w, grad [][]float64, scale float64) {
	for r := range w {
		for c := range w[r] {
			w[r][c] -= scale * grad[r][c]
		}
	}
}

func applyGradVec(b, grad []float64, scale float64) {
	for i := range b {
		b[i] -= scale * grad[i]
	}
}

// forwardInto runs one sample through the network, writing the hidden
// activations and softmax output into the provided slices.
func (mlp *MLP) forwardInto(X mat.Matrix, i int, hidden, output []float64) {
	for h := range hidden {
		z := mlp.B1[h]
		for j := 0; j < mlp.NFeatures; j++ {
			z += X.At(i, j) * mlp.W1[j][h]
		}
		hidden[h] = math.Tanh(z)
	}

	maxZ := math.Inf(-1)
	for c := range output {
		z := mlp.B2[c]
		for h := range hidden {
			z += hidden[h] * mlp.W2[h][c]
		}
		output[c] = z
		if z > maxZ {
			maxZ = z
		}
	}
	sum := 0.0
	for c := range output {
		output[c] = math.Exp(output[c] - maxZ)
		sum += output[c]
	}
	for c := range output {
		output[c] /= sum
	}
}

// Predict returns the maximum-probability class per sample.
func (mlp *MLP) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := mlp.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := proba.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for c := 1; c < len(mlp.ClassList); c++ {
			if proba.At(i, c) > proba.At(i, best) {
				best = c
			}
		}
		predictions.Set(i, 0, float64(mlp.ClassList[best]))
	}
	return predictions, nil
}

// PredictProba returns softmax outputs per class.
func (mlp *MLP) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !mlp.State.IsFitted() {
		return nil, errors.NewNotFittedError("MLP", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != mlp.NFeatures {
		return nil, errors.NewDimensionError("MLP.PredictProba", mlp.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, len(mlp.ClassList), nil)
	hidden := make([]float64, mlp.HiddenUnits)
	output := make([]float64, len(mlp.ClassList))
	for i := 0; i < nSamples; i++ {
		mlp.forwardInto(X, i, hidden, output)
		probas.SetRow(i, output)
	}
	return probas, nil
}
