package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"model-training-service/internal/adapters/primary/http/handlers"
	"model-training-service/internal/adapters/primary/http/middleware"
	"model-training-service/internal/adapters/secondary/exectrainer"
	"model-training-service/internal/adapters/secondary/fsstore"
	"model-training-service/internal/adapters/secondary/postgres"
	"model-training-service/internal/adapters/secondary/sqlite"
	"model-training-service/internal/artifactcache"
	"model-training-service/internal/config"
	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
	"model-training-service/internal/core/services"
	"model-training-service/internal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Secondary Adapters
	// ============================================================================

	// Ledger backend (postgres optional - based on config)
	var ledgerRepo ports.LedgerRepository
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			log.Fatalf("parse db config: %v", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("create db pool: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping db: %v", err)
		}
		if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalf("ensure ledger schema: %v", err)
		}
		ledgerRepo = postgres.NewLedgerRepository(pool)
		log.Info("database connection established")
	} else {
		ledgerRepo = fsstore.NewLedgerRepository(cfg.Store.LedgerDir)
		log.Info("postgres ledger disabled, using filesystem ledger")
	}

	// Run history archive (optional - based on config)
	var history ports.RunHistoryRepository
	if cfg.History.Enabled {
		h, err := sqlite.NewRunHistoryRepository(cfg.History.Path)
		if err != nil {
			log.Warnf("run history init failed (continuing without archive): %v", err)
		} else {
			history = h
			defer h.Close()
			log.Info("run history archive enabled")
		}
	} else {
		log.Info("run history disabled")
	}

	// Job catalog
	var catalog []services.TrainingJob
	if cfg.JobsFile != "" {
		jobCfgs, err := config.LoadJobs(cfg.JobsFile)
		if err != nil {
			log.Fatalf("load job catalog: %v", err)
		}
		for _, jc := range jobCfgs {
			catalog = append(catalog, services.TrainingJob{
				Name:         jc.Name,
				ArtifactPath: jc.Artifact,
				Trainer:      exectrainer.NewCommandTrainer(jc.Command, jc.Args...),
			})
		}
		log.Infof("job catalog loaded (%d models)", len(catalog))
	} else {
		log.Warn("no job catalog configured, run requests will be refused")
	}

	// ============================================================================
	// Core Services
	// ============================================================================

	store := services.NewArtifactStoreService(ledgerRepo, fsstore.NewArtifactRepository(), cfg.Store.VersionsDir)
	for _, job := range catalog {
		store.RegisterModel(job.Name, job.ArtifactPath)
	}

	orch := services.NewOrchestratorService(store, history, services.OrchestratorOptions{
		Parallelism:  cfg.Orchestrator.Parallelism,
		TrainTimeout: cfg.Orchestrator.TrainTimeout,
	})

	cache, err := artifactcache.New(store, artifactcache.DefaultSize)
	if err != nil {
		log.Fatalf("init artifact cache: %v", err)
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(store, orch, history, cache, catalog)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/training")
	h.RegisterRoutes(api)

	// Health check with DB ping when postgres backs the ledger
	router.GET("/healthz", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dataset watcher (optional - based on config)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.Watcher.Enabled && cfg.Watcher.Path != "" && len(catalog) > 0 {
		w := watcher.New(cfg.Watcher.Path, cfg.Watcher.Debounce, func(datasetRef string) {
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
		})
		go func() {
			if err := w.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("dataset watcher stopped")
			}
		}()
		log.Infof("watching %s for dataset changes", cfg.Watcher.Path)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
