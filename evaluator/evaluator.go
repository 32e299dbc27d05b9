// Package evaluator scores a persisted artifact against fresh labeled
// rows: it restores the training-time preprocessing from the sidecar,
// rebuilds the feature layout, and reports classification metrics plus
// binary AUC.
package evaluator

import (
	"log/slog"
	"time"

	"github.com/urbanrisk/crimeml/artifact"
	"github.com/urbanrisk/crimeml/classifier"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/metrics"
	"github.com/urbanrisk/crimeml/pkg/errors"
	crimelog "github.com/urbanrisk/crimeml/pkg/log"
	"github.com/urbanrisk/crimeml/preprocessing"
	"github.com/urbanrisk/crimeml/progress"
)

// Evaluator loads artifacts through a codec and scores them.
type Evaluator struct {
	codec *artifact.Codec
}

// NewEvaluator creates an Evaluator reading artifacts through codec.
func NewEvaluator(codec *artifact.Codec) *Evaluator {
	return &Evaluator{codec: codec}
}

// Evaluate loads the artifact at artifactPath, builds feature rows from
// src using the persisted category vocabulary so one-hot columns line up
// with training, and scores the model on them. The preprocessing chain is
// restored from the sidecar and applied transform-only; evaluation never
// refits statistics.
//
// report receives progress across the run; pass progress.Discard to
// ignore it.
func (e *Evaluator) Evaluate(artifactPath string, src dataset.Source, schema dataset.SchemaMap, report progress.Func) (m *artifact.Metrics, err error) {
	defer errors.Recover(&err, "evaluate")
	if report == nil {
		report = progress.Discard
	}

	report(0, "loading artifact", nil)
	clf, meta, err := e.codec.Load(artifactPath)
	if err != nil {
		return nil, err
	}

	report(10, "building feature rows", nil)
	buf, _, err := dataset.BuildBuffer(src, schema, meta.Categories, dataset.DefaultMemoryCap)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := buf.Close(); cerr != nil {
			slog.Warn("row buffer cleanup failed", crimelog.ErrAttr(cerr))
		}
	}()

	return e.evaluateBuffer(clf, meta, buf, src.Name(), report)
}

// EvaluateBuffer scores the artifact at artifactPath against rows already
// buffered by the caller. The buffer's feature arity must match the
// artifact's persisted layout.
func (e *Evaluator) EvaluateBuffer(artifactPath string, buf *dataset.RowBuffer, report progress.Func) (m *artifact.Metrics, err error) {
	defer errors.Recover(&err, "evaluate")
	if report == nil {
		report = progress.Discard
	}

	clf, meta, err := e.codec.Load(artifactPath)
	if err != nil {
		return nil, err
	}
	return e.evaluateBuffer(clf, meta, buf, artifactPath, report)
}

func (e *Evaluator) evaluateBuffer(clf classifier.Classifier, meta *artifact.Metadata, buf *dataset.RowBuffer, source string, report progress.Func) (*artifact.Metrics, error) {
	start := time.Now()

	if buf == nil || buf.Count() == 0 {
		return nil, errors.NewEmptyDatasetError("evaluate", source)
	}
	X, y, err := buf.Matrix()
	if err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if expected := len(meta.FeatureMeans); nFeatures != expected {
		return nil, errors.NewFeatureMismatchError("evaluate", expected, nFeatures)
	}

	slog.Info("evaluation started",
		slog.String(crimelog.OperationKey, "evaluate"),
		slog.String(crimelog.ModelTypeKey, clf.Name()),
		slog.Int(crimelog.SamplesKey, nSamples),
		slog.Int(crimelog.FeaturesKey, nFeatures),
	)

	report(30, "applying preprocessing", nil)
	imputer, err := preprocessing.Restore(meta.Imputer.Strategy, meta.Imputer.Statistics,
		meta.Imputer.SentinelValue(), meta.Imputer.FillValue)
	if err != nil {
		return nil, err
	}
	imputed, err := imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	normalizer, err := preprocessing.RestoreNormalizer(meta.Normalization.Type,
		meta.FeatureMeans, meta.FeatureStdDevs)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizer.Transform(imputed)
	if err != nil {
		return nil, err
	}

	report(60, "predicting", nil)
	pred, err := clf.Predict(normalized)
	if err != nil {
		return nil, err
	}
	predicted := make([]int, len(y))
	for i := range predicted {
		predicted[i] = int(pred.At(i, 0))
	}

	report(80, "computing metrics", nil)
	classReport, err := metrics.GenerateClassificationReport(y, predicted)
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUC(y, classifier.PositiveScores(clf, normalized, predicted))
	if err != nil {
		return nil, err
	}

	result := &artifact.Metrics{
		ClassificationReport: *classReport.Rounded(),
		AUC:                  metrics.Round4(auc),
	}

	slog.Info("evaluation complete",
		slog.String(crimelog.OperationKey, "evaluate"),
		slog.Float64(crimelog.AccuracyKey, result.Accuracy),
		slog.Float64(crimelog.AUCKey, result.AUC),
		slog.Int64(crimelog.DurationMsKey, time.Since(start).Milliseconds()),
	)
	report(100, "evaluation complete", &progress.Metrics{Accuracy: result.Accuracy})

	return result, nil
}
