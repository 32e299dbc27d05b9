package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanrisk/crimeml/artifact"
	"github.com/urbanrisk/crimeml/dataset"
	"github.com/urbanrisk/crimeml/evaluator"
)

var evaluateFlags struct {
	artifactPath string
	datasetPath  string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <model-id/version>",
	Short: "Score a persisted artifact against labeled rows",
	Long: `Evaluate loads the artifact at <model-id/version> under the artifact
directory, rebuilds the training-time feature layout from its sidecar,
and scores the model on the configured dataset (or --dataset).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evaluateFlags.artifactPath, "artifact", "", "Artifact path relative to artifact_dir (model-id/version)")
	f.StringVar(&evaluateFlags.datasetPath, "dataset", "", "CSV to evaluate on (default: config dataset)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(rootFlags.configPath)
	if err != nil {
		return err
	}

	artifactPath := evaluateFlags.artifactPath
	if artifactPath == "" && len(args) > 0 {
		artifactPath = args[0]
	}
	if artifactPath == "" {
		return fmt.Errorf("artifact path is required\n\nUsage: crimeml evaluate <model-id/version>")
	}

	datasetPath := evaluateFlags.datasetPath
	if datasetPath == "" {
		datasetPath = cfg.Dataset
	}
	src, err := dataset.NewCSVFileSource(datasetPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tracker, cleanup := newTracker(cfg)
	defer cleanup()

	store := dataset.NewLocalStore(cfg.ArtifactDir)
	e := evaluator.NewEvaluator(artifact.NewCodec(store))

	result, err := e.Evaluate(artifactPath, src, cfg.Schema,
		tracker.Func(cmd.Context(), artifactPath, "evaluation"))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
