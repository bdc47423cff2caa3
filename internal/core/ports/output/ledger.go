package ports

import (
	"context"

	"model-training-service/internal/core/domain"
)

// LedgerRepository persists per-model version ledgers.
//
// Load returns domain.ErrModelNotFound when no ledger exists for the model.
// Save must be atomic per model; backends with optimistic concurrency compare
// the ledger's Revision and return domain.ErrLedgerConflict on a lost race.
type LedgerRepository interface {
	Load(ctx context.Context, modelName string) (*domain.VersionLedger, error)
	Save(ctx context.Context, ledger *domain.VersionLedger) error
	ListModels(ctx context.Context) ([]string, error)
}
