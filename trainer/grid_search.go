package trainer

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/classifier"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// GridCandidate is one scored point of the grid.
type GridCandidate struct {
	Params    map[string]interface{} `json:"params"`
	MeanScore float64                `json:"mean_score"`
}

// GridSearchResult summarizes a cross-validated grid search. It is
// persisted verbatim in the artifact sidecar.
type GridSearchResult struct {
	BestParams map[string]interface{} `json:"best_params"`
	BestScore  float64                `json:"best_score"`
	CVFolds    int                    `json:"cv_folds"`
	Candidates []GridCandidate        `json:"candidates"`
}

// Default per-family grids, used when grid search is enabled without an
// explicit param_grid.
func defaultGrid(t classifier.ModelType) map[string][]interface{} {
	switch t {
	case classifier.LogisticRegressionType:
		return map[string][]interface{}{
			"learning_rate": {0.1, 1.0},
			"C":             {0.1, 1.0, 10.0},
		}
	case classifier.NaiveBayesType:
		return map[string][]interface{}{
			"var_smoothing": {1e-9, 1e-7, 1e-5},
		}
	case classifier.DecisionTreeType:
		return map[string][]interface{}{
			"max_depth":         {4, 8, 16},
			"min_samples_split": {2, 8},
		}
	case classifier.SVCType:
		return map[string][]interface{}{
			"C": {0.1, 1.0, 10.0},
		}
	case classifier.KNNType:
		return map[string][]interface{}{
			"n_neighbors": {3, 5, 9},
		}
	case classifier.MLPType:
		return map[string][]interface{}{
			"hidden_units":  {8, 16, 32},
			"learning_rate": {0.1, 1.0},
		}
	}
	return nil
}

// expandGrid builds the cartesian product of the grid in deterministic
// key order.
func expandGrid(grid map[string][]interface{}) []map[string]interface{} {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(points)*len(grid[k]))
		for _, base := range points {
			for _, v := range grid[k] {
				point := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					point[bk] = bv
				}
				point[k] = v
				next = append(next, point)
			}
		}
		points = next
	}
	return points
}

// runGridSearch scores every grid point with k-fold cross-validated
// accuracy and returns the summary plus the winning resolved
// configuration. onCandidate, when non-nil, is called after each
// candidate is scored.
func runGridSearch(X *mat.Dense, y []int, base *Resolved, onCandidate func(done, total int)) (*GridSearchResult, *Resolved, error) {
	grid := base.ParamGrid
	if len(grid) == 0 {
		grid = defaultGrid(base.ModelType)
	}
	points := expandGrid(grid)
	if len(points) == 0 {
		return nil, base, nil
	}

	folds := NewStratifiedKFold(base.CVFolds, base.Options.Seed).Split(y)

	result := &GridSearchResult{
		CVFolds:    len(folds),
		Candidates: make([]GridCandidate, 0, len(points)),
		BestScore:  -1,
	}
	best := base
	for i, point := range points {
		candidate := base.apply(point)
		score, err := crossValidate(X, y, candidate, folds)
		if err != nil {
			return nil, nil, err
		}
		result.Candidates = append(result.Candidates, GridCandidate{Params: point, MeanScore: score})
		if score > result.BestScore {
			result.BestScore = score
			result.BestParams = point
			best = candidate
		}
		if onCandidate != nil {
			onCandidate(i+1, len(points))
		}
	}
	return result, best, nil
}

// crossValidate fits a fresh classifier per fold and returns mean
// held-out accuracy.
func crossValidate(X *mat.Dense, y []int, r *Resolved, folds []Fold) (float64, error) {
	var total float64
	scored := 0
	for _, fold := range folds {
		if len(fold.TrainIndices) == 0 || len(fold.TestIndices) == 0 {
			continue
		}
		trainX, trainY := subset(X, y, fold.TrainIndices)
		testX, testY := subset(X, y, fold.TestIndices)

		clf := classifier.New(r.ModelType, r.Options)
		if err := clf.Fit(trainX, trainY); err != nil {
			return 0, errors.Wrap(err, "cross-validation fold fit failed")
		}
		pred, err := clf.Predict(testX)
		if err != nil {
			return 0, errors.Wrap(err, "cross-validation fold predict failed")
		}
		total += accuracy(pred, testY)
		scored++
	}
	if scored == 0 {
		return 0, nil
	}
	return total / float64(scored), nil
}

// subset gathers the given rows into a fresh matrix and label column.
func subset(X *mat.Dense, y []int, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	sub := mat.NewDense(len(indices), cols, nil)
	labels := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		sub.SetRow(i, X.RawRowView(idx))
		labels.Set(i, 0, float64(y[idx]))
	}
	return sub, labels
}

func accuracy(pred mat.Matrix, truth *mat.Dense) float64 {
	n, _ := pred.Dims()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if int(pred.At(i, 0)) == int(truth.At(i, 0)) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}
