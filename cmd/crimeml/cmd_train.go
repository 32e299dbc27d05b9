package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/urbanrisk/crimeml/artifact"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/pkg/log"
	"github.com/urbanrisk/crimeml/progress"
	"github.com/urbanrisk/crimeml/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier from the configured dataset",
	Long: `Train reads the configured CSV export, engineers feature rows,
fits the configured model, and writes a versioned artifact
(model blob plus JSON sidecar) under the artifact directory.

Progress snapshots go to Redis when redis_addr is configured,
otherwise to the process log.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(rootFlags.configPath)
	if err != nil {
		return err
	}

	src, err := dataset.NewCSVFileSource(cfg.Dataset)
	if err != nil {
		return err
	}
	defer src.Close()

	buf, spec, err := dataset.BuildBuffer(src, cfg.Schema, nil, cfg.MemoryCap)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := buf.Close(); cerr != nil {
			slog.Warn("row buffer cleanup failed", log.ErrAttr(cerr))
		}
	}()

	tracker, cleanup := newTracker(cfg)
	defer cleanup()

	store := dataset.NewLocalStore(cfg.ArtifactDir)
	t := trainer.NewTrainer(artifact.NewCodec(store))

	result, err := t.Train(cfg.ModelID, buf, spec, cfg.Hyperparameters,
		tracker.Func(cmd.Context(), cfg.ModelID, "training"))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"artifact_path": store.Path(result.ArtifactPath),
		"version":       result.Version,
		"metrics":       result.Metadata.Metrics,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// newTracker wires progress to Redis when configured, otherwise to an
// in-process cache and the log.
func newTracker(cfg *Config) (*progress.Tracker, func()) {
	if cfg.RedisAddr == "" {
		return progress.NewTracker(progress.NewMemoryCache(), progress.LogBroadcaster{}), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	tracker := progress.NewTracker(
		progress.NewRedisCache(client, ""),
		progress.NewRedisBroadcaster(client, ""),
	)
	return tracker, func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis close failed", log.ErrAttr(err))
		}
	}
}
