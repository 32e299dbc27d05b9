// Package classifier implements the classifier families the trainer can
// dispatch to. Every family satisfies the same pipeline contract: fit on
// standardized, imputed feature matrices, produce class predictions, and,
// where the algorithm supports it, per-class probabilities.
package classifier

import (
	"encoding/gob"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// ModelType is the closed set of classifier families. Adding a family
// means extending the factory switch; unknown strings never reach it.
type ModelType int

const (
	LogisticRegressionType ModelType = iota
	NaiveBayesType
	DecisionTreeType
	SVCType
	KNNType
	MLPType
)

var modelTypeNames = map[ModelType]string{
	LogisticRegressionType: "logistic_regression",
	NaiveBayesType:         "naive_bayes",
	DecisionTreeType:       "decision_tree",
	SVCType:                "svc",
	KNNType:                "knn",
	MLPType:                "mlp",
}

// String returns the wire name of the model type.
func (t ModelType) String() string {
	if name, ok := modelTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseModelType maps a wire name to a ModelType. An empty string resolves
// to the logistic regression default; anything else unrecognized is an
// InvalidConfigurationError.
func ParseModelType(s string) (ModelType, error) {
	if s == "" {
		return LogisticRegressionType, nil
	}
	for t, name := range modelTypeNames {
		if name == s {
			return t, nil
		}
	}
	valid := make([]string, 0, len(modelTypeNames))
	for _, name := range modelTypeNames {
		valid = append(valid, name)
	}
	sort.Strings(valid)
	return 0, errors.NewInvalidConfigurationError("model_type", s, valid...)
}

// Classifier is the pipeline contract every family satisfies. X is an
// n_samples x n_features matrix; y is an n_samples x 1 column of integer
// class labels.
type Classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int

	// Name returns the wire name of the family.
	Name() string

	// GetParams returns the resolved hyperparameters with snake_case keys.
	GetParams() map[string]interface{}
}

// ProbabilityEstimator is implemented by families that expose per-class
// probabilities. Columns of the returned matrix follow Classes() order.
type ProbabilityEstimator interface {
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// ImportanceProvider is implemented by families with a natural
// feature-importance measure.
type ImportanceProvider interface {
	FeatureImportances() []float64
}

// Options carries the typed, already-clamped hyperparameters the factory
// hands to a family. Each family reads only the fields it understands.
type Options struct {
	LearningRate float64 // logistic_regression, svc, mlp
	MaxIter      int     // logistic_regression, svc, mlp
	C            float64 // logistic_regression (inverse L2), svc (cost)
	Tol          float64 // iterative solvers
	VarSmoothing float64 // naive_bayes
	MaxDepth     int     // decision_tree
	MinSplit     int     // decision_tree
	K            int     // knn
	HiddenUnits  int     // mlp
	Seed         int64   // weight initialization

	// EpochHook, when set, is invoked after every epoch of an iterative
	// fit with the running loss. Used to surface training progress.
	EpochHook func(epoch, totalEpochs int, loss float64)
}

// New constructs a classifier of the given family. The switch is
// exhaustive over the closed ModelType set.
func New(t ModelType, opts Options) Classifier {
	switch t {
	case LogisticRegressionType:
		return NewLogisticRegression(opts)
	case NaiveBayesType:
		return NewGaussianNB(opts)
	case DecisionTreeType:
		return NewDecisionTree(opts)
	case SVCType:
		return NewLinearSVC(opts)
	case KNNType:
		return NewKNN(opts)
	case MLPType:
		return NewMLP(opts)
	}
	// Unreachable for values produced by ParseModelType.
	return NewLogisticRegression(opts)
}

// RegisterGob registers every concrete classifier with encoding/gob so
// artifacts can round-trip through the codec.
func RegisterGob() {
	gob.Register(&LogisticRegression{})
	gob.Register(&GaussianNB{})
	gob.Register(&DecisionTree{})
	gob.Register(&LinearSVC{})
	gob.Register(&KNN{})
	gob.Register(&MLP{})
}

// extractClasses returns the sorted distinct integer labels of y.
func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		seen[int(y.At(i, 0))] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// validateXY checks that X and y agree on sample count and that y is a
// column vector.
func validateXY(op string, X, y mat.Matrix) error {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewEmptyDatasetError(op, "")
	}
	if yCols != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if nSamples != yRows {
		return errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	return nil
}
