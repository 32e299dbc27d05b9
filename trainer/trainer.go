package trainer

import (
	"fmt"
	"log/slog"
	"path"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/artifact"
	"github.com/urbanrisk/crimeml/classifier"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/metrics"
	"github.com/urbanrisk/crimeml/pkg/errors"
	crimelog "github.com/urbanrisk/crimeml/pkg/log"
	"github.com/urbanrisk/crimeml/preprocessing"
	"github.com/urbanrisk/crimeml/progress"
)

// Trainer runs the full training pipeline and persists the resulting
// artifact through a codec.
type Trainer struct {
	codec *artifact.Codec
}

// NewTrainer creates a Trainer writing artifacts through codec.
func NewTrainer(codec *artifact.Codec) *Trainer {
	return &Trainer{codec: codec}
}

// Result describes one completed training run.
type Result struct {
	// ArtifactPath is the store-relative path the artifact was written to,
	// modelID/version.
	ArtifactPath string

	// Version is the opaque artifact version.
	Version string

	// Metadata is the sidecar as persisted, metrics and hyperparameter
	// echo included.
	Metadata *artifact.Metadata
}

// Train fits the configured model on the buffered rows and persists a
// versioned artifact under modelID. The pipeline is: resolve
// hyperparameters, impute, normalize, optionally grid-search with
// cross-validated accuracy, fit the final model, score it on the
// training rows, and save model blob plus sidecar.
//
// report receives throttle-friendly progress across the run; pass
// progress.Discard to ignore it. Panics inside model code surface as a
// PanicError return, never crash the caller.
func (t *Trainer) Train(modelID string, buf *dataset.RowBuffer, spec *dataset.FeatureSpec, hp Hyperparameters, report progress.Func) (result *Result, err error) {
	defer errors.Recover(&err, "train")
	if report == nil {
		report = progress.Discard
	}
	start := time.Now()

	report(0, "resolving hyperparameters", nil)
	resolved, err := Resolve(hp)
	if err != nil {
		return nil, err
	}

	if buf == nil || buf.Count() == 0 {
		return nil, errors.NewEmptyDatasetError("train", modelID)
	}
	X, y, err := buf.Matrix()
	if err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()

	slog.Info("training started",
		slog.String(crimelog.OperationKey, "train"),
		slog.String(crimelog.ModelTypeKey, resolved.ModelType.String()),
		slog.String(crimelog.RunIDKey, modelID),
		slog.Int(crimelog.SamplesKey, nSamples),
		slog.Int(crimelog.FeaturesKey, nFeatures),
	)

	report(10, "fitting imputer", nil)
	imputer, err := preprocessing.NewImputer(resolved.ImputerStrategy,
		preprocessing.WithFillValue(resolved.ImputerFill))
	if err != nil {
		return nil, err
	}
	imputed, err := imputer.FitTransform(X)
	if err != nil {
		return nil, err
	}

	report(20, "fitting normalizer", nil)
	normalizer, err := preprocessing.NewNormalizer(resolved.Normalization)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizer.FitTransform(imputed)
	if err != nil {
		return nil, err
	}

	best := resolved
	var gridResult *GridSearchResult
	if resolved.GridSearch {
		gridResult, best, err = runGridSearch(normalized, y, resolved, func(done, total int) {
			percent := 20 + 40*float64(done)/float64(total)
			report(percent, fmt.Sprintf("grid search candidate %d/%d", done, total), nil)
		})
		if err != nil {
			return nil, err
		}
	}

	opts := best.Options
	opts.EpochHook = func(epoch, totalEpochs int, loss float64) {
		percent := 60 + 25*float64(epoch)/float64(totalEpochs)
		report(percent, "fitting model", &progress.Metrics{
			CurrentEpoch: epoch,
			TotalEpochs:  totalEpochs,
			Loss:         loss,
		})
	}
	clf := classifier.New(best.ModelType, opts)

	report(60, "fitting model", nil)
	labels := labelColumn(y)
	if err := clf.Fit(normalized, labels); err != nil {
		return nil, err
	}

	report(85, "scoring model", nil)
	evalMetrics, err := scoreOnTrainingSet(clf, normalized, y)
	if err != nil {
		return nil, err
	}

	meta := &artifact.Metadata{
		FeatureMeans:   normalizer.Means,
		FeatureStdDevs: normalizer.StdDevs,
		Categories:     spec.Categories,
		Normalization:  artifact.NormalizationConfig{Type: normalizer.Type},
		Imputer: artifact.ImputerConfig{
			Strategy:   imputer.Strategy,
			Statistics: imputer.Statistics,
			FillValue:  imputer.FillValue,
		},
		Metrics:            evalMetrics,
		Hyperparameters:    best.Echo(),
		FeatureImportances: featureImportances(clf, nFeatures),
		GridSearch:         gridSearchBlock(gridResult),
	}

	version := artifact.NewVersion(time.Now())
	artifactPath := path.Join(modelID, version)

	report(90, "persisting artifact", nil)
	if _, err := t.codec.Save(artifactPath, clf, meta); err != nil {
		return nil, err
	}

	slog.Info("training complete",
		slog.String(crimelog.OperationKey, "train"),
		slog.String(crimelog.ModelTypeKey, best.ModelType.String()),
		slog.String(crimelog.ModelVersionKey, version),
		slog.Float64(crimelog.AccuracyKey, evalMetrics.Accuracy),
		slog.Float64(crimelog.AUCKey, evalMetrics.AUC),
		slog.Int64(crimelog.DurationMsKey, time.Since(start).Milliseconds()),
	)
	report(100, "training complete", &progress.Metrics{Accuracy: evalMetrics.Accuracy})

	return &Result{
		ArtifactPath: artifactPath,
		Version:      version,
		Metadata:     meta,
	}, nil
}

// scoreOnTrainingSet predicts the rows the model was fitted on and builds
// the metrics block persisted in the sidecar.
func scoreOnTrainingSet(clf classifier.Classifier, X *mat.Dense, y []int) (*artifact.Metrics, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, err
	}
	predicted := make([]int, len(y))
	for i := range predicted {
		predicted[i] = int(pred.At(i, 0))
	}

	report, err := metrics.GenerateClassificationReport(y, predicted)
	if err != nil {
		return nil, err
	}

	auc, err := metrics.AUC(y, classifier.PositiveScores(clf, X, predicted))
	if err != nil {
		return nil, err
	}

	return &artifact.Metrics{
		ClassificationReport: *report.Rounded(),
		AUC:                  metrics.Round4(auc),
	}, nil
}

func featureImportances(clf classifier.Classifier, nFeatures int) []float64 {
	if ip, ok := clf.(classifier.ImportanceProvider); ok {
		if imp := ip.FeatureImportances(); len(imp) == nFeatures {
			return imp
		}
	}
	return []float64{}
}

// gridSearchBlock flattens the grid-search summary into the sidecar form.
// An empty block, never null, when grid search did not run.
func gridSearchBlock(result *GridSearchResult) map[string]interface{} {
	if result == nil {
		return map[string]interface{}{}
	}
	candidates := make([]interface{}, len(result.Candidates))
	for i, c := range result.Candidates {
		candidates[i] = map[string]interface{}{
			"params":     c.Params,
			"mean_score": metrics.Round4(c.MeanScore),
		}
	}
	return map[string]interface{}{
		"best_params": result.BestParams,
		"best_score":  metrics.Round4(result.BestScore),
		"cv_folds":    result.CVFolds,
		"candidates":  candidates,
	}
}

func labelColumn(y []int) *mat.Dense {
	col := mat.NewDense(len(y), 1, nil)
	for i, v := range y {
		col.Set(i, 0, float64(v))
	}
	return col
}
