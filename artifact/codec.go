// Package artifact serializes a trained classifier and its preprocessing
// statistics into a single versioned artifact: a gob-encoded model blob
// plus a JSON sidecar. Artifacts are immutable once written; re-training
// produces a new versioned path.
package artifact

import (
	"bytes"
	"encoding/json"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urbanrisk/crimeml/classifier"
	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/metrics"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

const (
	sidecarFile = "artifact.json"
	modelFile   = "model.gob"
)

// NormalizationConfig is the persisted row-norm configuration.
type NormalizationConfig struct {
	Type string `json:"type"`
}

// ImputerConfig is the persisted imputer configuration and statistics.
// MissingValue is null in JSON when the sentinel is NaN.
type ImputerConfig struct {
	Strategy     string    `json:"strategy"`
	Statistics   []float64 `json:"statistics"`
	MissingValue *float64  `json:"missing_value"`
	FillValue    float64   `json:"fill_value"`
}

// SentinelValue returns the missing-value sentinel, NaN when null.
func (c ImputerConfig) SentinelValue() float64 {
	if c.MissingValue == nil {
		return math.NaN()
	}
	return *c.MissingValue
}

// Metrics is the evaluation block embedded in the sidecar: the full
// classification report plus AUC.
type Metrics struct {
	metrics.ClassificationReport
	AUC float64 `json:"auc"`
}

// Metadata is the JSON sidecar of one artifact. The field set is part of
// the wire contract with evaluation and with external consumers of the
// sidecar; do not rename fields.
type Metadata struct {
	ModelFile          string                 `json:"model_file"`
	FeatureMeans       []float64              `json:"feature_means"`
	FeatureStdDevs     []float64              `json:"feature_std_devs"`
	Categories         []string               `json:"categories"`
	Normalization      NormalizationConfig    `json:"normalization"`
	Imputer            ImputerConfig          `json:"imputer"`
	Metrics            *Metrics               `json:"metrics"`
	Hyperparameters    map[string]interface{} `json:"hyperparameters"`
	FeatureImportances []float64              `json:"feature_importances"`
	GridSearch         map[string]interface{} `json:"grid_search"`
}

// Validate checks the numeric arrays evaluation depends on. A sidecar
// that fails here is corrupt, not merely incomplete.
func (m *Metadata) Validate(artifactPath string) error {
	if len(m.FeatureMeans) == 0 {
		return errors.NewCorruptArtifactError(artifactPath, "feature_means is empty", nil)
	}
	if len(m.FeatureMeans) != len(m.FeatureStdDevs) {
		return errors.NewCorruptArtifactError(artifactPath, "feature_means and feature_std_devs lengths differ", nil)
	}
	for _, v := range m.FeatureMeans {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewCorruptArtifactError(artifactPath, "feature_means contains a non-finite value", nil)
		}
	}
	for _, v := range m.FeatureStdDevs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewCorruptArtifactError(artifactPath, "feature_std_devs contains a non-finite value", nil)
		}
	}
	return nil
}

// NewVersion returns an opaque artifact version: a UTC timestamp prefix
// keeps versions of one model monotonic, a uuid suffix disambiguates
// artifacts created within the same second.
func NewVersion(now time.Time) string {
	return now.UTC().Format("20060102150405") + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// modelBlob wraps the classifier interface for gob round-tripping.
// Concrete classifier types are registered in classifier.RegisterGob.
type modelBlob struct {
	Classifier classifier.Classifier
}

// Codec reads and writes artifacts through a file-storage collaborator.
type Codec struct {
	store dataset.FileStore
}

// NewCodec creates a Codec over the given store.
func NewCodec(store dataset.FileStore) *Codec {
	classifier.RegisterGob()
	return &Codec{store: store}
}

// Save writes the model blob and sidecar under artifactPath and returns
// that path. Metadata.ModelFile is set by Save.
func (c *Codec) Save(artifactPath string, clf classifier.Classifier, meta *Metadata) (string, error) {
	meta.ModelFile = modelFile

	var blob bytes.Buffer
	if err := model.SaveModelToWriter(&modelBlob{Classifier: clf}, &blob); err != nil {
		return "", errors.Wrap(err, "encode model blob")
	}
	if err := c.store.Put(path.Join(artifactPath, modelFile), blob.Bytes()); err != nil {
		return "", errors.Wrap(err, "write model blob")
	}

	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode sidecar")
	}
	if err := c.store.Put(path.Join(artifactPath, sidecarFile), sidecar); err != nil {
		return "", errors.Wrap(err, "write sidecar")
	}

	return artifactPath, nil
}

// Load reads both halves of an artifact back. A missing half is
// ArtifactNotFound; an unparsable sidecar or one missing its required
// numeric arrays is CorruptArtifact.
func (c *Codec) Load(artifactPath string) (classifier.Classifier, *Metadata, error) {
	sidecarPath := path.Join(artifactPath, sidecarFile)
	if !c.store.Exists(sidecarPath) {
		return nil, nil, errors.NewArtifactNotFoundError(artifactPath, sidecarFile)
	}

	raw, err := c.store.Get(sidecarPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read sidecar")
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, errors.NewCorruptArtifactError(artifactPath, "sidecar is not valid JSON", err)
	}
	if err := meta.Validate(artifactPath); err != nil {
		return nil, nil, err
	}

	blobPath := path.Join(artifactPath, meta.ModelFile)
	if meta.ModelFile == "" || !c.store.Exists(blobPath) {
		return nil, nil, errors.NewArtifactNotFoundError(artifactPath, modelFile)
	}
	raw, err = c.store.Get(blobPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read model blob")
	}

	var blob modelBlob
	if err := model.LoadModelFromReader(&blob, bytes.NewReader(raw)); err != nil {
		return nil, nil, errors.NewCorruptArtifactError(artifactPath, "model blob failed to decode", err)
	}
	if blob.Classifier == nil {
		return nil, nil, errors.NewCorruptArtifactError(artifactPath, "model blob holds no classifier", nil)
	}

	return blob.Classifier, &meta, nil
}
