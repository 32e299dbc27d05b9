package trainer

import (
	"testing"

	"github.com/urbanrisk/crimeml/artifact"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/pkg/errors"
	"github.com/urbanrisk/crimeml/progress"
)

// clusterBuffer builds a linearly separable buffer: negatives around
// (-2, -2), positives around (2, 2).
func clusterBuffer(t *testing.T, n int) (*dataset.RowBuffer, *dataset.FeatureSpec) {
	t.Helper()
	buf := dataset.NewRowBuffer(0)
	t.Cleanup(func() { buf.Close() })

	for i := 0; i < n; i++ {
		label := i % 2
		center := -2.0
		if label == 1 {
			center = 2.0
		}
		jitter := 0.1 * float64(i%5)
		if err := buf.Append(dataset.LabeledRow{
			Features: []float64{center + jitter, center - jitter},
			Label:    label,
		}); err != nil {
			t.Fatal(err)
		}
	}
	return buf, &dataset.FeatureSpec{
		Names:      []string{"latitude", "longitude"},
		Categories: []string{},
	}
}

func newTestTrainer(t *testing.T) *Trainer {
	t.Helper()
	return NewTrainer(artifact.NewCodec(dataset.NewLocalStore(t.TempDir())))
}

func TestTrainEndToEnd(t *testing.T) {
	buf, spec := clusterBuffer(t, 20)
	tr := newTestTrainer(t)

	result, err := tr.Train("crime", buf, spec, Hyperparameters{
		"model_type": "logistic_regression",
		"max_iter":   200,
	}, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if result.Version == "" || result.ArtifactPath != "crime/"+result.Version {
		t.Errorf("result paths = %q / %q", result.ArtifactPath, result.Version)
	}

	meta := result.Metadata
	if meta.Metrics == nil {
		t.Fatal("Metrics missing from sidecar")
	}
	if meta.Metrics.Accuracy < 0.8 {
		t.Errorf("training accuracy = %v, want >= 0.8", meta.Metrics.Accuracy)
	}
	if meta.Metrics.AUC < 0.8 {
		t.Errorf("training AUC = %v, want >= 0.8", meta.Metrics.AUC)
	}
	if len(meta.FeatureMeans) != 2 || len(meta.FeatureStdDevs) != 2 {
		t.Errorf("preprocessing statistics missing: %+v", meta)
	}
	if len(meta.Imputer.Statistics) != 2 {
		t.Errorf("imputer statistics missing: %+v", meta.Imputer)
	}
	if meta.Hyperparameters["model_type"] != "logistic_regression" {
		t.Errorf("hyperparameter echo = %v", meta.Hyperparameters)
	}
	if len(meta.FeatureImportances) != 2 {
		t.Errorf("feature importances = %v, want arity 2", meta.FeatureImportances)
	}
	if len(meta.GridSearch) != 0 {
		t.Errorf("grid_search = %v, want empty block without grid search", meta.GridSearch)
	}
}

func TestTrainGridSearch(t *testing.T) {
	buf, spec := clusterBuffer(t, 30)
	tr := newTestTrainer(t)

	result, err := tr.Train("crime", buf, spec, Hyperparameters{
		"model_type":  "decision_tree",
		"grid_search": true,
		"cv_folds":    3,
		"param_grid": map[string][]interface{}{
			"max_depth": {2, 4},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	gs := result.Metadata.GridSearch
	if gs["best_params"] == nil {
		t.Fatalf("grid_search block = %v, want best_params", gs)
	}
	if gs["cv_folds"] != 3 {
		t.Errorf("cv_folds = %v, want 3", gs["cv_folds"])
	}
	candidates, ok := gs["candidates"].([]interface{})
	if !ok || len(candidates) != 2 {
		t.Errorf("candidates = %v, want 2 scored points", gs["candidates"])
	}
	if score, ok := gs["best_score"].(float64); !ok || score < 0.8 {
		t.Errorf("best_score = %v, want >= 0.8 on separable data", gs["best_score"])
	}
}

func TestTrainEmptyBuffer(t *testing.T) {
	buf := dataset.NewRowBuffer(0)
	defer buf.Close()
	tr := newTestTrainer(t)

	_, err := tr.Train("crime", buf, &dataset.FeatureSpec{}, Hyperparameters{}, nil)
	var empty *errors.EmptyDatasetError
	if !errors.As(err, &empty) {
		t.Fatalf("Train() error = %v, want EmptyDatasetError", err)
	}
}

func TestTrainInvalidModelType(t *testing.T) {
	buf, spec := clusterBuffer(t, 10)
	tr := newTestTrainer(t)

	_, err := tr.Train("crime", buf, spec, Hyperparameters{"model_type": "xgboost"}, nil)
	var invalid *errors.InvalidConfigurationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Train() error = %v, want InvalidConfigurationError", err)
	}
}

func TestTrainProgressSequence(t *testing.T) {
	buf, spec := clusterBuffer(t, 20)
	tr := newTestTrainer(t)

	var percents []float64
	report := func(percent float64, message string, m *progress.Metrics) {
		percents = append(percents, percent)
	}

	if _, err := tr.Train("crime", buf, spec, Hyperparameters{
		"model_type": "mlp",
		"max_iter":   30,
	}, report); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("no progress reported")
	}
	if percents[0] != 0 {
		t.Errorf("first report = %v, want 0", percents[0])
	}
	if percents[len(percents)-1] != 100 {
		t.Errorf("last report = %v, want 100", percents[len(percents)-1])
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress regressed: %v after %v", percents[i], percents[i-1])
		}
	}
}

func TestTrainVersionsDistinct(t *testing.T) {
	buf, spec := clusterBuffer(t, 10)
	tr := newTestTrainer(t)
	hp := Hyperparameters{"model_type": "naive_bayes"}

	first, err := tr.Train("crime", buf, spec, hp, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tr.Train("crime", buf, spec, hp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Version == second.Version {
		t.Errorf("two runs produced the same version %q", first.Version)
	}
}
