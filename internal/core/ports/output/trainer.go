package ports

import (
	"context"

	"model-training-service/internal/core/domain"
)

type TrainRequest struct {
	ModelName  string
	DatasetRef string
	OutputPath string
}

// Trainer produces a new artifact for one model. Implementations must honor
// the context deadline and return the artifact path plus evaluation score.
// Returning an error means the attempt produced nothing usable.
type Trainer interface {
	Train(ctx context.Context, req TrainRequest) (*domain.TrainResult, error)
}
