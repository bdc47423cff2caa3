package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/services"
	"model-training-service/internal/watcher"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	watchPath     string
	watchDebounce time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Retrain the catalog whenever the watched dataset changes",
		Long: `Watch a dataset path and start a training run for the whole catalog
whenever it changes. Bursts of writes are coalesced by a debounce window;
a change arriving while a run is in flight is skipped, not queued.

Runs until interrupted.`,
		Example: `  trainctl watch --path data/
  trainctl watch --path data/train.csv --debounce 10s`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchPath, "path", "", "dataset file or directory to watch (default: WATCHER_PATH)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet window before a change triggers a run (default: from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	path := watchPath
	if path == "" {
		path = cfg.Watcher.Path
	}
	if path == "" {
		return fmt.Errorf("nothing to watch: pass --path or set WATCHER_PATH")
	}

	debounce := cfg.Watcher.Debounce
	if watchDebounce > 0 {
		debounce = watchDebounce
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

	orch := services.NewOrchestratorService(store, history, services.OrchestratorOptions{
		Parallelism:  cfg.Orchestrator.Parallelism,
		TrainTimeout: cfg.Orchestrator.TrainTimeout,
	})

	onChange := func(datasetRef string) {
		runID, err := orch.StartRun(catalog, datasetRef)
		if errors.Is(err, domain.ErrRunInProgress) {
			log.WithField("dataset", datasetRef).Warn("change ignored, a run is already in flight")
			return
		}
		if err != nil {
			log.WithError(err).Error("failed to start run")
			return
		}
		log.WithFields(log.Fields{"runId": runID, "dataset": datasetRef}).Info("dataset changed, run started")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (debounce %s). Press Ctrl-C to stop.\n", path, debounce)

	w := watcher.New(path, debounce, onChange)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Let an in-flight run finish before tearing down the store.
	if _, busy := orch.ActiveRun(); busy {
		log.Info("waiting for the in-flight run to finish")
		for busy {
			time.Sleep(200 * time.Millisecond)
			_, busy = orch.ActiveRun()
		}
	}
	return nil
}
