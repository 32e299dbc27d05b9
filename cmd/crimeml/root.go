package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/urbanrisk/crimeml/pkg/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "crimeml",
	Short: "Train and evaluate crime-risk classifiers",
	Long: "crimeml builds predictive models over incident CSV exports:\n" +
		"feature engineering, imputation, normalization, model fitting with\n" +
		"optional grid search, and versioned artifact persistence.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.SetupLogger(rootFlags.logLevel)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "crimeml.yaml", "Path to pipeline config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
