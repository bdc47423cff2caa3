package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Logger       LoggerConfig
	Store        StoreConfig
	Orchestrator OrchestratorConfig
	History      HistoryConfig
	Database     DatabaseConfig
	Watcher      WatcherConfig
	JobsFile     string
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level  string
	Format string
}

// StoreConfig locates the on-disk ledger and backup blob directories.
type StoreConfig struct {
	LedgerDir   string
	VersionsDir string
}

type OrchestratorConfig struct {
	Parallelism  int
	TrainTimeout time.Duration
}

// HistoryConfig controls the sqlite run archive.
type HistoryConfig struct {
	Enabled bool
	Path    string
}

// DatabaseConfig is the optional postgres ledger backend. When disabled
// the store falls back to the filesystem ledger under Store.LedgerDir.
type DatabaseConfig struct {
	Enabled         bool
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type WatcherConfig struct {
	Enabled  bool
	Path     string
	Debounce time.Duration
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("STORE_LEDGER_DIR", "data/ledgers")
	v.SetDefault("STORE_VERSIONS_DIR", "data/versions")
	v.SetDefault("ORCHESTRATOR_PARALLELISM", 1)
	v.SetDefault("ORCHESTRATOR_TRAIN_TIMEOUT", "10m")
	v.SetDefault("HISTORY_ENABLED", true)
	v.SetDefault("HISTORY_PATH", "data/history.db")
	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("WATCHER_ENABLED", false)
	v.SetDefault("WATCHER_PATH", "")
	v.SetDefault("WATCHER_DEBOUNCE", "2s")
	v.SetDefault("JOBS_FILE", "")

	// Env
	v.AutomaticEnv()

	trainTimeout, err := time.ParseDuration(v.GetString("ORCHESTRATOR_TRAIN_TIMEOUT"))
	if err != nil {
		trainTimeout = 10 * time.Minute
	}

	debounce, err := time.ParseDuration(v.GetString("WATCHER_DEBOUNCE"))
	if err != nil {
		debounce = 2 * time.Second
	}

	connLifetime, err := time.ParseDuration(v.GetString("DATABASE_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Store: StoreConfig{
			LedgerDir:   v.GetString("STORE_LEDGER_DIR"),
			VersionsDir: v.GetString("STORE_VERSIONS_DIR"),
		},
		Orchestrator: OrchestratorConfig{
			Parallelism:  v.GetInt("ORCHESTRATOR_PARALLELISM"),
			TrainTimeout: trainTimeout,
		},
		History: HistoryConfig{
			Enabled: v.GetBool("HISTORY_ENABLED"),
			Path:    v.GetString("HISTORY_PATH"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("DATABASE_ENABLED"),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Watcher: WatcherConfig{
			Enabled:  v.GetBool("WATCHER_ENABLED"),
			Path:     v.GetString("WATCHER_PATH"),
			Debounce: debounce,
		},
		JobsFile: v.GetString("JOBS_FILE"),
	}

	if cfg.Orchestrator.Parallelism < 1 {
		cfg.Orchestrator.Parallelism = 1
	}

	return cfg, nil
}

// ============================================================================
// Job definitions
// ============================================================================

// JobConfig declares one trainable model: where its live artifact lives and
// the command that retrains it.
type JobConfig struct {
	Name     string   `mapstructure:"name"`
	Artifact string   `mapstructure:"artifact"`
	Command  string   `mapstructure:"command"`
	Args     []string `mapstructure:"args"`
}

// LoadJobs reads the job table from a YAML or JSON file with a top-level
// "jobs" key.
func LoadJobs(path string) ([]JobConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	var jobs []JobConfig
	if err := v.UnmarshalKey("jobs", &jobs); err != nil {
		return nil, fmt.Errorf("parse jobs file: %w", err)
	}

	for i, job := range jobs {
		if job.Name == "" {
			return nil, fmt.Errorf("jobs[%d]: missing name", i)
		}
		if job.Artifact == "" {
			return nil, fmt.Errorf("jobs[%d] (%s): missing artifact path", i, job.Name)
		}
		if job.Command == "" {
			return nil, fmt.Errorf("jobs[%d] (%s): missing command", i, job.Name)
		}
	}

	return jobs, nil
}
