package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/services"

	"github.com/spf13/cobra"
)

var (
	runDataset     string
	runJobs        string
	runParallelism int
	runTimeout     time.Duration
	runReportDir   string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Train every configured model and promote or roll back by score",
		Long: `Run the training cycle for the configured job catalog.

For each model the live artifact is backed up, the training command is
executed, and the resulting artifact is kept only when its score is at
least the current version's score. Rejected and failed attempts are rolled
back to the previous version. One job failing never aborts the run.

The full run report is archived (when HISTORY_ENABLED) and written as JSON
under the report directory. The command exits non-zero when any job ends
in an unhealthy state.`,
		Example: `  # Train the whole catalog
  trainctl run --dataset data/2026-08.csv

  # Train two models, four at a time
  trainctl run --dataset data/2026-08.csv --jobs sentiment,ranker --parallelism 4`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringVar(&runDataset, "dataset", "", "dataset reference handed to each trainer")
	runCmd.Flags().StringVar(&runJobs, "jobs", "", "comma-separated subset of the catalog (default: all)")
	runCmd.Flags().IntVar(&runParallelism, "parallelism", 0, "max jobs training at once (default: from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-trainer time budget (default: from config)")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "data/runs", "directory run reports are written to")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		return fmt.Errorf("%w (set JOBS_FILE to a job catalog)", domain.ErrNoJobsDefined)
	}

	jobs, err := filterJobs(catalog, runJobs)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	history, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	if history != nil {
		defer history.Close()
	}

	opts := services.OrchestratorOptions{
		Parallelism:  cfg.Orchestrator.Parallelism,
		TrainTimeout: cfg.Orchestrator.TrainTimeout,
	}
	if runParallelism > 0 {
		opts.Parallelism = runParallelism
	}
	if runTimeout > 0 {
		opts.TrainTimeout = runTimeout
	}

	orch := services.NewOrchestratorService(store, history, opts)
	result := orch.Run(cmd.Context(), jobs, runDataset)

	printRunResult(cmd, jobs, result)

	if path, err := writeReport(runReportDir, result); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠ Could not write report: %v\n", err)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	}

	if result.Failed() {
		return fmt.Errorf("%d of %d jobs failed", result.FailureCount, len(jobs))
	}
	return nil
}

// filterJobs narrows the catalog to the comma-separated names in list.
func filterJobs(catalog []services.TrainingJob, list string) ([]services.TrainingJob, error) {
	if strings.TrimSpace(list) == "" {
		return catalog, nil
	}

	byName := make(map[string]services.TrainingJob, len(catalog))
	known := make([]string, 0, len(catalog))
	for _, job := range catalog {
		byName[job.Name] = job
		known = append(known, job.Name)
	}

	var jobs []services.TrainingJob
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		job, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown model %q (catalog: %s)", name, strings.Join(known, ", "))
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, domain.ErrNoJobsDefined
	}
	return jobs, nil
}

func printRunResult(cmd *cobra.Command, jobs []services.TrainingJob, result *domain.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s", result.RunID)
	if result.DatasetRef != "" {
		fmt.Fprintf(out, " (dataset %s)", result.DatasetRef)
	}
	fmt.Fprintln(out)

	for _, job := range jobs {
		j, ok := result.PerJob[job.Name]
		if !ok {
			continue
		}

		mark := "✗"
		if j.Success {
			mark = "✓"
		}
		line := fmt.Sprintf("  %s %-20s %-18s", mark, j.ModelName, j.State)
		if j.Score != nil {
			line += fmt.Sprintf(" score=%g", *j.Score)
		}
		line += fmt.Sprintf(" (%s)", j.Duration().Round(time.Millisecond))
		fmt.Fprintln(out, line)
		if j.Error != "" {
			fmt.Fprintf(out, "      %s\n", j.Error)
		}
	}

	fmt.Fprintf(out, "%d jobs: %d succeeded, %d failed\n",
		len(result.PerJob), result.SuccessCount, result.FailureCount)
}

// writeReport dumps the run report as indented JSON under dir.
func writeReport(dir string, result *domain.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	data = append(data, '\n')

	path := filepath.Join(dir, result.RunID.String()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
