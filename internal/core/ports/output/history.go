package ports

import (
	"context"

	"github.com/google/uuid"

	"model-training-service/internal/core/domain"
)

// RunHistoryRepository archives completed training runs for later inspection.
type RunHistoryRepository interface {
	RecordRun(ctx context.Context, run *domain.RunResult) error
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.RunResult, error)
	Close() error
}
