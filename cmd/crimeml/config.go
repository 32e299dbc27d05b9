package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/pkg/errors"
	"github.com/urbanrisk/crimeml/trainer"
)

// Config is the YAML pipeline configuration shared by train and evaluate.
type Config struct {
	// Dataset is the path to the incident CSV export.
	Dataset string `yaml:"dataset"`

	// Schema maps semantic roles (timestamp, latitude, longitude,
	// category, risk, label) to CSV column names. Unmapped roles fall
	// back to header-name matching.
	Schema dataset.SchemaMap `yaml:"schema"`

	// ArtifactDir is the root directory artifacts are stored under.
	ArtifactDir string `yaml:"artifact_dir"`

	// ModelID groups artifact versions of one model.
	ModelID string `yaml:"model_id"`

	// MemoryCap bounds in-memory buffered rows before spilling to disk.
	MemoryCap int `yaml:"memory_cap"`

	// RedisAddr, when set, enables Redis-backed progress snapshots and
	// pub/sub broadcasting. Empty keeps progress in process memory.
	RedisAddr string `yaml:"redis_addr"`

	// Hyperparameters is handed to the trainer as-is.
	Hyperparameters trainer.Hyperparameters `yaml:"hyperparameters"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := &Config{
		ArtifactDir: "models",
		ModelID:     "default",
		MemoryCap:   dataset.DefaultMemoryCap,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.Dataset == "" {
		return nil, errors.NewInvalidConfigurationError("dataset", "", "path to a CSV file")
	}
	if cfg.MemoryCap <= 0 {
		cfg.MemoryCap = dataset.DefaultMemoryCap
	}
	return cfg, nil
}
