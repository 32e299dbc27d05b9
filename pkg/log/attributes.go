// Standard attribute keys for pipeline logging. Using these keys keeps log
// lines filterable across training, evaluation, and progress reporting.

package log

// Model and operation context.
const (
	// ModelTypeKey identifies the classifier family.
	// Examples: "logistic_regression", "decision_tree"
	ModelTypeKey = "model.type"

	// ModelVersionKey carries the opaque artifact version string.
	ModelVersionKey = "model.version"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "train", "evaluate", "fit", "predict", "transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "trainer", "evaluator", "preprocessing", "artifact"
	ComponentKey = "ml.component"
)

// Run context.
const (
	// RunIDKey identifies one training or evaluation run.
	RunIDKey = "run.id"

	// StageKey is the run stage a progress report belongs to.
	// Standard values: "training", "evaluation"
	StageKey = "run.stage"

	// PercentKey is the fractional completion of a run.
	PercentKey = "run.percent"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// SkippedRowsKey counts rows dropped during parsing.
	SkippedRowsKey = "data.skipped_rows"
)

// Performance metrics.
const (
	// AccuracyKey is the classification accuracy of a fit or evaluation.
	AccuracyKey = "metrics.accuracy"

	// AUCKey is the area under the ROC curve.
	AUCKey = "metrics.auc"

	// DurationMsKey is the wall time of an operation in milliseconds.
	DurationMsKey = "duration_ms"
)
