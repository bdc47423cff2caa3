package app

import (
	"context"
	"fmt"

	"model-training-service/internal/adapters/secondary/exectrainer"
	"model-training-service/internal/adapters/secondary/fsstore"
	"model-training-service/internal/adapters/secondary/postgres"
	"model-training-service/internal/adapters/secondary/sqlite"
	"model-training-service/internal/config"
	"model-training-service/internal/core/ports/output"
	"model-training-service/internal/core/services"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// loadEnv reads configuration from the environment and applies the logger
// settings. Every command calls this first.
func loadEnv() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyLogger(cfg.Logger)
	return cfg, nil
}

func applyLogger(lc config.LoggerConfig) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if lc.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// buildLedgerRepo picks the ledger backend: postgres when enabled, the
// filesystem store otherwise. The returned closer releases the pool.
func buildLedgerRepo(ctx context.Context, cfg *config.Config) (ports.LedgerRepository, func(), error) {
	if !cfg.Database.Enabled {
		return fsstore.NewLedgerRepository(cfg.Store.LedgerDir), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return postgres.NewLedgerRepository(pool), pool.Close, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (*services.ArtifactStoreService, func(), error) {
	ledgerRepo, closer, err := buildLedgerRepo(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := services.NewArtifactStoreService(ledgerRepo, fsstore.NewArtifactRepository(), cfg.Store.VersionsDir)
	return store, closer, nil
}

// buildCatalog turns the configured job table into orchestrator jobs, each
// backed by a command trainer.
func buildCatalog(cfg *config.Config) ([]services.TrainingJob, error) {
	if cfg.JobsFile == "" {
		return nil, nil
	}

	jobCfgs, err := config.LoadJobs(cfg.JobsFile)
	if err != nil {
		return nil, err
	}

	jobs := make([]services.TrainingJob, 0, len(jobCfgs))
	for _, jc := range jobCfgs {
		jobs = append(jobs, services.TrainingJob{
			Name:         jc.Name,
			ArtifactPath: jc.Artifact,
			Trainer:      exectrainer.NewCommandTrainer(jc.Command, jc.Args...),
		})
	}
	return jobs, nil
}

// openHistory opens the sqlite run archive, or returns nil when disabled.
func openHistory(cfg *config.Config) (ports.RunHistoryRepository, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	return sqlite.NewRunHistoryRepository(cfg.History.Path)
}
