package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

const defaultListLimit = 50

// historyRepo archives completed training runs in a SQLite database. The full
// run report is stored as JSON next to queryable summary columns, so GetRun
// reconstructs the run losslessly while run_jobs stays greppable with plain
// SQL.
type historyRepo struct {
	db *sql.DB
}

// NewRunHistoryRepository opens (or creates) the history database at dbPath.
// Use ":memory:" for tests.
func NewRunHistoryRepository(dbPath string) (ports.RunHistoryRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &historyRepo{db: db}, nil
}

func (r *historyRepo) RecordRun(ctx context.Context, run *domain.RunResult) error {
	report, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, dataset_ref, started_at, finished_at, success_count, failure_count, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.DatasetRef,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.SuccessCount,
		run.FailureCount,
		string(report),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for name, job := range run.PerJob {
		var score sql.NullFloat64
		if job.Score != nil {
			score = sql.NullFloat64{Float64: *job.Score, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_jobs
				(run_id, model_name, state, success, score, version_id, rolled_back, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.RunID.String(),
			name,
			string(job.State),
			job.Success,
			score,
			job.VersionID,
			job.RolledBack,
			job.Error,
		)
		if err != nil {
			return fmt.Errorf("insert run job %s/%s: %w", run.RunID, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

func (r *historyRepo) GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error) {
	var report string
	err := r.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID.String()).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var run domain.RunResult
	if err := json.Unmarshal([]byte(report), &run); err != nil {
		return nil, fmt.Errorf("parse run report %s: %w", runID, err)
	}
	return &run, nil
}

func (r *historyRepo) ListRuns(ctx context.Context, limit int) ([]*domain.RunResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT report FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.RunResult{}
	for rows.Next() {
		var report string
		if err := rows.Scan(&report); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		var run domain.RunResult
		if err := json.Unmarshal([]byte(report), &run); err != nil {
			return nil, fmt.Errorf("parse run report: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (r *historyRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
