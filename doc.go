// Package crimeml is a training and evaluation pipeline for crime-risk
// classification over incident CSV exports.
//
// The pipeline stages live in their own packages:
//
//   - dataset: schema mapping, feature engineering, and a spillover row
//     buffer that keeps memory bounded on large exports
//   - preprocessing: missing-value imputation and two-stage normalization
//   - classifier: six model families behind one Fit/Predict contract
//   - trainer: hyperparameter resolution, k-fold grid search, final fit,
//     and artifact persistence
//   - evaluator: transform-only scoring of persisted artifacts
//   - metrics: classification reports and binary Mann-Whitney AUC
//   - artifact: the gob model blob plus JSON sidecar wire format
//   - progress: throttled progress tracking with pluggable cache and
//     broadcast backends
//
// The crimeml command under cmd/crimeml drives a full run from a YAML
// config:
//
//	crimeml train -c crimeml.yaml
//	crimeml evaluate chicago/20250117093045-a1b2c3d4 -c crimeml.yaml
package crimeml
