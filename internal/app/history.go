package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history [runId]",
		Short: "Show archived training runs",
		Long: `List archived training runs, newest first. With a run id argument the
full report is printed as JSON, per-job results and notifications included.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is not enabled (set HISTORY_ENABLED=true)")
	}

	history, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer history.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		run, err := history.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	runs, err := history.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs archived yet.")
		return nil
	}

	fmt.Fprintf(out, "%-38s %-22s %-8s %-8s %s\n", "RUN", "STARTED", "OK", "FAILED", "DATASET")
	for _, run := range runs {
		fmt.Fprintf(out, "%-38s %-22s %-8d %-8d %s\n",
			run.RunID,
			run.StartedAt.Format(time.RFC3339),
			run.SuccessCount,
			run.FailureCount,
			run.DatasetRef)
	}
	return nil
}
