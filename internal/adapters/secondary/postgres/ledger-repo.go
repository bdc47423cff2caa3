package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// ledgerRepo stores one ledger document per model in Postgres, guarded by a
// per-row revision counter. Save is a compare-and-swap: a concurrent writer
// that bumped the revision first wins and the loser gets ErrLedgerConflict,
// so two processes can never silently overwrite each other's history.
type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) ports.LedgerRepository {
	return &ledgerRepo{pool: pool}
}

// EnsureSchema creates the ledger table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS model_ledgers (
			model_name TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			revision   BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create model_ledgers table: %w", err)
	}
	return nil
}

func (r *ledgerRepo) Load(ctx context.Context, modelName string) (*domain.VersionLedger, error) {
	query := `
		SELECT document, revision
		FROM model_ledgers
		WHERE model_name = $1
	`

	var (
		document []byte
		revision int64
	)
	err := r.pool.QueryRow(ctx, query, modelName).Scan(&document, &revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("load ledger for %s: %w", modelName, err)
	}

	ledger := domain.NewVersionLedger(modelName)
	if err := json.Unmarshal(document, ledger); err != nil {
		return nil, fmt.Errorf("parse ledger for %s: %w", modelName, domain.ErrLedgerCorrupted)
	}
	ledger.Revision = revision
	return ledger, nil
}

func (r *ledgerRepo) Save(ctx context.Context, ledger *domain.VersionLedger) error {
	document, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("marshal ledger for %s: %w", ledger.ModelName, err)
	}

	if ledger.Revision == 0 {
		query := `
			INSERT INTO model_ledgers (model_name, document)
			VALUES ($1, $2)
			ON CONFLICT (model_name) DO NOTHING
		`
		tag, err := r.pool.Exec(ctx, query, ledger.ModelName, document)
		if err != nil {
			return fmt.Errorf("insert ledger for %s: %w", ledger.ModelName, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("insert ledger for %s: %w", ledger.ModelName, domain.ErrLedgerConflict)
		}
		ledger.Revision = 1
		return nil
	}

	query := `
		UPDATE model_ledgers
		SET document = $2, revision = revision + 1, updated_at = now()
		WHERE model_name = $1 AND revision = $3
	`
	tag, err := r.pool.Exec(ctx, query, ledger.ModelName, document, ledger.Revision)
	if err != nil {
		return fmt.Errorf("update ledger for %s: %w", ledger.ModelName, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update ledger for %s: %w", ledger.ModelName, domain.ErrLedgerConflict)
	}
	ledger.Revision++
	return nil
}

func (r *ledgerRepo) ListModels(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT model_name FROM model_ledgers ORDER BY model_name`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	models := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan model name: %w", err)
		}
		models = append(models, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model names: %w", err)
	}
	return models, nil
}
