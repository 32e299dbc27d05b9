// Package errors provides the error taxonomy for the training and
// evaluation pipeline. Every failure a run can surface is a typed error
// constructed here, carrying a stack trace via cockroachdb/errors and
// structured fields for zerolog-aware log sinks.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Pipeline error types
//
// ===========================================================================

// EmptyDatasetError is returned when a buffer holds zero usable rows after
// parsing. No artifact is written when training fails with this error.
type EmptyDatasetError struct {
	Op     string
	Source string
}

func (e *EmptyDatasetError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("crimeml: %s: dataset %q contains no usable rows", e.Op, e.Source)
	}
	return fmt.Sprintf("crimeml: %s: dataset contains no usable rows", e.Op)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EmptyDatasetError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("source", e.Source).
		Str("type", "EmptyDatasetError")
}

// NewEmptyDatasetError creates a new EmptyDatasetError with a stack trace.
func NewEmptyDatasetError(op, source string) error {
	return errors.WithStack(&EmptyDatasetError{Op: op, Source: source})
}

// InvalidConfigurationError is returned when an imputer strategy,
// normalization type, or model type is unrecognized and no safe default
// applies. It is raised at configuration-resolution time, before any I/O.
type InvalidConfigurationError struct {
	Param string
	Value interface{}
	Valid []string
}

func (e *InvalidConfigurationError) Error() string {
	if len(e.Valid) > 0 {
		return fmt.Sprintf("crimeml: invalid configuration for %q: got %v, valid values are %v", e.Param, e.Value, e.Valid)
	}
	return fmt.Sprintf("crimeml: invalid configuration for %q: got %v", e.Param, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *InvalidConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Interface("value", e.Value).
		Strs("valid", e.Valid).
		Str("type", "InvalidConfigurationError")
}

// NewInvalidConfigurationError creates a new InvalidConfigurationError with
// a stack trace.
func NewInvalidConfigurationError(param string, value interface{}, valid ...string) error {
	return errors.WithStack(&InvalidConfigurationError{Param: param, Value: value, Valid: valid})
}

// ArtifactNotFoundError is returned when either half of a persisted
// artifact (model blob or JSON sidecar) is missing. The path is kept for
// internal logging; user-facing sanitization is the caller's concern.
type ArtifactNotFoundError struct {
	Path    string
	Missing string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("crimeml: artifact not found: missing %s under %s", e.Missing, e.Path)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ArtifactNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("missing", e.Missing).
		Str("type", "ArtifactNotFoundError")
}

// NewArtifactNotFoundError creates a new ArtifactNotFoundError with a stack
// trace.
func NewArtifactNotFoundError(path, missing string) error {
	return errors.WithStack(&ArtifactNotFoundError{Path: path, Missing: missing})
}

// CorruptArtifactError is returned when an artifact sidecar is unparsable
// or is missing required numeric arrays.
type CorruptArtifactError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crimeml: corrupt artifact at %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("crimeml: corrupt artifact at %s: %s", e.Path, e.Reason)
}

func (e *CorruptArtifactError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *CorruptArtifactError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("reason", e.Reason).
		Str("type", "CorruptArtifactError")
}

// NewCorruptArtifactError creates a new CorruptArtifactError with a stack
// trace.
func NewCorruptArtifactError(path, reason string, err error) error {
	return errors.WithStack(&CorruptArtifactError{Path: path, Reason: reason, Err: err})
}

// FeatureMismatchError is returned when an evaluation feature vector's
// arity disagrees with the persisted feature statistics. Evaluation never
// truncates or pads to compensate.
type FeatureMismatchError struct {
	Op       string
	Expected int
	Got      int
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("crimeml: %s: feature arity mismatch: artifact expects %d features, dataset produced %d", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *FeatureMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "FeatureMismatchError")
}

// NewFeatureMismatchError creates a new FeatureMismatchError with a stack
// trace.
func NewFeatureMismatchError(op string, expected, got int) error {
	return errors.WithStack(&FeatureMismatchError{Op: op, Expected: expected, Got: got})
}

// ===========================================================================
//
//	Estimator error types
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called on an
// estimator that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("crimeml: %s: this estimator is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError is returned when input data dimensions differ from what
// an operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("crimeml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError is returned when an argument value is unsuitable for an
// operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("crimeml: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// ConvergenceWarning is emitted when an iterative solver stops at its
// iteration cap without meeting its tolerance.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations}
}

// UndefinedMetricWarning is emitted when a metric is ill-defined for the
// given inputs, for example AUC over a single-class label set. The metric
// is set to Result instead of failing.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}
