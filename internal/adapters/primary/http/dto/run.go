package dto

import (
	"model-training-service/internal/core/domain"

	"github.com/google/uuid"
)

type StartRunRequest struct {
	DatasetRef string   `json:"datasetRef"`
	Models     []string `json:"models"`
}

type StartRunResponse struct {
	RunID  uuid.UUID `json:"runId"`
	Status string    `json:"status"`
}

// RunSummaryResponse is the list-view projection of a run; the full report
// (per-job results and notifications) is served by the detail endpoint.
type RunSummaryResponse struct {
	RunID        uuid.UUID `json:"runId"`
	DatasetRef   string    `json:"datasetRef,omitempty"`
	StartedAt    string    `json:"startedAt"`
	FinishedAt   string    `json:"finishedAt"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
	JobCount     int       `json:"jobCount"`
}

type ListRunsResponse struct {
	Items []RunSummaryResponse `json:"items"`
	Total int                  `json:"total"`
}

func ToRunSummary(r *domain.RunResult) RunSummaryResponse {
	return RunSummaryResponse{
		RunID:        r.RunID,
		DatasetRef:   r.DatasetRef,
		StartedAt:    r.StartedAt.Format(timeFormat),
		FinishedAt:   r.FinishedAt.Format(timeFormat),
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		JobCount:     len(r.PerJob),
	}
}
