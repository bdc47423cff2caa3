package dto

import (
	"time"

	"model-training-service/internal/core/domain"
)

const timeFormat = time.RFC3339

type VersionResponse struct {
	VersionID        string   `json:"versionId"`
	Score            *float64 `json:"score"`
	Status           string   `json:"status"`
	BackupPath       string   `json:"backupPath,omitempty"`
	LiveSnapshotPath string   `json:"liveSnapshotPath,omitempty"`
	CreatedAt        string   `json:"createdAt"`
}

type ModelSummaryResponse struct {
	Name           string           `json:"name"`
	VersionCount   int              `json:"versionCount"`
	CurrentVersion *VersionResponse `json:"currentVersion,omitempty"`
}

type ListModelsResponse struct {
	Items []ModelSummaryResponse `json:"items"`
	Total int                    `json:"total"`
}

type ListVersionsResponse struct {
	Model string            `json:"model"`
	Items []VersionResponse `json:"items"`
	Total int               `json:"total"`
}

type RollbackResponse struct {
	Model    string          `json:"model"`
	Restored VersionResponse `json:"restored"`
}

func ToVersionResponse(v *domain.Version) VersionResponse {
	return VersionResponse{
		VersionID:        v.VersionID,
		Score:            v.Score,
		Status:           string(v.Status),
		BackupPath:       v.BackupPath,
		LiveSnapshotPath: v.LiveSnapshotPath,
		CreatedAt:        v.CreatedAt.Format(timeFormat),
	}
}
