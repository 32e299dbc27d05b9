package classifier

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/core/parallel"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// parallelPredictThreshold is the sample count above which KNN prediction
// fans out across CPU cores.
const parallelPredictThreshold = 256

// KNN is a k-nearest-neighbors classifier over Euclidean distance. Fit
// stores the training set; prediction is a majority vote among the k
// closest training samples.
//
// Fields are exported for gob encoding.
type KNN struct {
	State *model.StateManager

	K int

	TrainX    []float64 // row-major training matrix
	TrainY    []int     // class index per training row
	ClassList []int
	NFeatures int
	NSamples  int
}

// NewKNN creates a KNN classifier from resolved options.
func NewKNN(opts Options) *KNN {
	return &KNN{
		State: model.NewStateManager(),
		K:     opts.K,
	}
}

func (knn *KNN) Name() string { return KNNType.String() }

// Classes returns the sorted class labels seen during fitting.
func (knn *KNN) Classes() []int { return knn.ClassList }

// GetParams returns the resolved hyperparameters.
func (knn *KNN) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": knn.K,
	}
}

// Fit stores the training data.
func (knn *KNN) Fit(X, y mat.Matrix) error {
	if err := validateXY("KNN.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	knn.ClassList = extractClasses(y)
	knn.NFeatures = nFeatures
	knn.NSamples = nSamples

	classIndex := make(map[int]int, len(knn.ClassList))
	for i, c := range knn.ClassList {
		classIndex[c] = i
	}

	knn.TrainX = make([]float64, nSamples*nFeatures)
	knn.TrainY = make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			knn.TrainX[i*nFeatures+j] = X.At(i, j)
		}
		knn.TrainY[i] = classIndex[int(y.At(i, 0))]
	}

	knn.State.SetFitted()
	knn.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// votes tallies the per-class vote fractions of sample i's k nearest
// training rows.
func (knn *KNN) votes(X mat.Matrix, i int) []float64 {
	type neighbor struct {
		dist  float64
		class int
	}
	neighbors := make([]neighbor, knn.NSamples)
	for t := 0; t < knn.NSamples; t++ {
		dist := 0.0
		for j := 0; j < knn.NFeatures; j++ {
			diff := X.At(i, j) - knn.TrainX[t*knn.NFeatures+j]
			dist += diff * diff
		}
		neighbors[t] = neighbor{dist: dist, class: knn.TrainY[t]}
	}
	sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })

	k := knn.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	votes := make([]float64, len(knn.ClassList))
	for _, n := range neighbors[:k] {
		votes[n.class] += 1.0 / float64(k)
	}
	return votes
}

// Predict returns the majority-vote class per sample. Prediction is
// parallel across samples for large batches.
func (knn *KNN) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := knn.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := proba.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for c := 1; c < len(knn.ClassList); c++ {
			if proba.At(i, c) > proba.At(i, best) {
				best = c
			}
		}
		predictions.Set(i, 0, float64(knn.ClassList[best]))
	}
	return predictions, nil
}

// PredictProba returns neighbor vote fractions per class.
func (knn *KNN) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !knn.State.IsFitted() {
		return nil, errors.NewNotFittedError("KNN", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != knn.NFeatures {
		return nil, errors.NewDimensionError("KNN.PredictProba", knn.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, len(knn.ClassList), nil)
	parallel.ParallelizeWithThreshold(nSamples, parallelPredictThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			probas.SetRow(i, knn.votes(X, i))
		}
	})
	return probas, nil
}
