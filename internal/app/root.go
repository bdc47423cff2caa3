package app

import (
	"github.com/spf13/cobra"
)

// RootCmd is the root command for trainctl
var RootCmd = &cobra.Command{
	Use:   "trainctl",
	Short: "Versioned model artifact store with score-gated training runs",
	Long: `trainctl drives training runs over a catalog of named models and keeps a
versioned history of every artifact it touches.

Each run backs up the live artifact, invokes the model's trainer, and keeps
the new artifact only when its score is at least the current one. Rejected
or failed attempts are rolled back to the previous version automatically.

Configuration comes from the environment (STORE_LEDGER_DIR,
STORE_VERSIONS_DIR, JOBS_FILE, ...); the job catalog is a YAML file listing
one entry per model: name, artifact path and the training command.

Examples:
  # Train every configured model against a dataset
  trainctl run --dataset data/2026-08.csv

  # Train a subset
  trainctl run --dataset data/2026-08.csv --jobs sentiment,ranker

  # Inspect recorded versions
  trainctl models
  trainctl versions sentiment

  # Restore the previous version after a bad promotion
  trainctl rollback sentiment

  # Retrain automatically when the dataset changes
  trainctl watch --path data/`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(modelsCmd)
	RootCmd.AddCommand(versionsCmd)
	RootCmd.AddCommand(rollbackCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
