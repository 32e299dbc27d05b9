// Package trainer turns a row buffer into a scored, versioned classifier
// artifact: preprocessing fit, model-type dispatch, optional grid search
// with cross-validated accuracy, final fit, and artifact persistence.
package trainer

import (
	"math"
	"strconv"

	"github.com/urbanrisk/crimeml/classifier"
	"github.com/urbanrisk/crimeml/preprocessing"
)

// Hyperparameters is the caller-supplied hyperparameter bag. Values are
// coerced to their typed form and clamped to documented ranges during
// resolution, so identical inputs always echo identical values.
type Hyperparameters map[string]interface{}

// Clamp ranges and defaults. Every tunable the trainer echoes back falls
// inside these bounds.
const (
	defaultLearningRate = 1.0
	minLearningRate     = 1e-4
	maxLearningRate     = 10.0

	defaultMaxIter = 200
	minMaxIter     = 10
	maxMaxIter     = 10000

	defaultC = 1.0
	minC     = 1e-3
	maxC     = 1e3

	defaultTol = 1e-4
	minTol     = 1e-8
	maxTol     = 1e-1

	defaultVarSmoothing = 1e-9
	minVarSmoothing     = 1e-12
	maxVarSmoothing     = 1e-3

	defaultMaxDepth = 8
	minMaxDepth     = 1
	maxMaxDepth     = 64

	defaultMinSplit = 2
	minMinSplit     = 2
	maxMinSplit     = 100

	defaultNeighbors = 5
	minNeighbors     = 1
	maxNeighbors     = 100

	defaultHiddenUnits = 16
	minHiddenUnits     = 2
	maxHiddenUnits     = 256

	defaultCVFolds = 3
	minCVFolds     = 2
	maxCVFolds     = 10

	defaultSeed = 42
)

// Resolved is the typed result of hyperparameter resolution.
type Resolved struct {
	ModelType       classifier.ModelType
	Options         classifier.Options
	CVFolds         int
	GridSearch      bool
	ParamGrid       map[string][]interface{}
	ImputerStrategy string
	ImputerFill     float64
	Normalization   string
}

// Resolve coerces and clamps the hyperparameter bag. Unknown model types,
// imputer strategies, and normalization types fail here, before any I/O.
func Resolve(hp Hyperparameters) (*Resolved, error) {
	modelType, err := classifier.ParseModelType(stringParam(hp, "model_type", ""))
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		ModelType: modelType,
		Options: classifier.Options{
			LearningRate: floatParam(hp, "learning_rate", defaultLearningRate, minLearningRate, maxLearningRate),
			MaxIter:      intParam(hp, "max_iter", defaultMaxIter, minMaxIter, maxMaxIter),
			C:            floatParam(hp, "C", defaultC, minC, maxC),
			Tol:          floatParam(hp, "tol", defaultTol, minTol, maxTol),
			VarSmoothing: floatParam(hp, "var_smoothing", defaultVarSmoothing, minVarSmoothing, maxVarSmoothing),
			MaxDepth:     intParam(hp, "max_depth", defaultMaxDepth, minMaxDepth, maxMaxDepth),
			MinSplit:     intParam(hp, "min_samples_split", defaultMinSplit, minMinSplit, maxMinSplit),
			K:            intParam(hp, "n_neighbors", defaultNeighbors, minNeighbors, maxNeighbors),
			HiddenUnits:  intParam(hp, "hidden_units", defaultHiddenUnits, minHiddenUnits, maxHiddenUnits),
			Seed:         int64(intParam(hp, "seed", defaultSeed, 0, math.MaxInt32)),
		},
		CVFolds:         intParam(hp, "cv_folds", defaultCVFolds, minCVFolds, maxCVFolds),
		GridSearch:      boolParam(hp, "grid_search"),
		ImputerStrategy: stringParam(hp, "imputer_strategy", preprocessing.StrategyMean),
		ImputerFill:     floatParam(hp, "fill_value", 0, -math.MaxFloat64, math.MaxFloat64),
		Normalization:   stringParam(hp, "normalization", preprocessing.NormL2),
	}

	// SVC exposes its regularization as "cost"; fold it into C.
	if cost, ok := hp["cost"]; ok {
		if v, numeric := toFloat(cost); numeric {
			r.Options.C = clampFloat(v, minC, maxC)
		}
	}

	if grid, ok := hp["param_grid"].(map[string][]interface{}); ok {
		r.ParamGrid = grid
	}

	// Validate preprocessing configuration up front so misconfiguration
	// fails before any dataset I/O.
	if _, err := preprocessing.NewImputer(r.ImputerStrategy); err != nil {
		return nil, err
	}
	if _, err := preprocessing.NewNormalizer(r.Normalization); err != nil {
		return nil, err
	}

	return r, nil
}

// Echo returns the resolved hyperparameters as they are persisted in the
// artifact sidecar and returned to the caller. Identical inputs always
// produce identical echoes.
func (r *Resolved) Echo() map[string]interface{} {
	echo := map[string]interface{}{
		"model_type":       r.ModelType.String(),
		"cv_folds":         r.CVFolds,
		"imputer_strategy": r.ImputerStrategy,
		"normalization":    r.Normalization,
		"seed":             int(r.Options.Seed),
	}
	for k, v := range classifier.New(r.ModelType, r.Options).GetParams() {
		echo[k] = v
	}
	return echo
}

// apply returns a copy of r with grid-point overrides applied and
// re-clamped.
func (r *Resolved) apply(point map[string]interface{}) *Resolved {
	out := *r
	for k, v := range point {
		f, numeric := toFloat(v)
		if !numeric {
			continue
		}
		switch k {
		case "learning_rate":
			out.Options.LearningRate = clampFloat(f, minLearningRate, maxLearningRate)
		case "max_iter":
			out.Options.MaxIter = clampInt(int(f), minMaxIter, maxMaxIter)
		case "C", "cost":
			out.Options.C = clampFloat(f, minC, maxC)
		case "tol":
			out.Options.Tol = clampFloat(f, minTol, maxTol)
		case "var_smoothing":
			out.Options.VarSmoothing = clampFloat(f, minVarSmoothing, maxVarSmoothing)
		case "max_depth":
			out.Options.MaxDepth = clampInt(int(f), minMaxDepth, maxMaxDepth)
		case "min_samples_split":
			out.Options.MinSplit = clampInt(int(f), minMinSplit, maxMinSplit)
		case "n_neighbors":
			out.Options.K = clampInt(int(f), minNeighbors, maxNeighbors)
		case "hidden_units":
			out.Options.HiddenUnits = clampInt(int(f), minHiddenUnits, maxHiddenUnits)
		}
	}
	return &out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// toFloat coerces the numeric encodings a JSON-ish bag can carry.
func toFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		return f, err == nil
	}
	return 0, false
}

func floatParam(hp Hyperparameters, key string, def, lo, hi float64) float64 {
	if v, ok := hp[key]; ok {
		if f, numeric := toFloat(v); numeric && !math.IsNaN(f) {
			return clampFloat(f, lo, hi)
		}
	}
	return def
}

func intParam(hp Hyperparameters, key string, def, lo, hi int) int {
	if v, ok := hp[key]; ok {
		if f, numeric := toFloat(v); numeric && !math.IsNaN(f) {
			return clampInt(int(f), lo, hi)
		}
	}
	return def
}

func boolParam(hp Hyperparameters, key string) bool {
	switch v := hp[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func stringParam(hp Hyperparameters, key, def string) string {
	if v, ok := hp[key].(string); ok && v != "" {
		return v
	}
	return def
}
