package handlers

import (
	"model-training-service/internal/artifactcache"
	"model-training-service/internal/core/ports/output"
	"model-training-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	storeSvc *services.ArtifactStoreService
	orchSvc  *services.OrchestratorService
	history  ports.RunHistoryRepository
	cache    *artifactcache.Cache
	catalog  []services.TrainingJob
}

// New wires the HTTP surface. history may be nil when the run archive is
// disabled; catalog is the static job table runs are started from.
func New(
	storeSvc *services.ArtifactStoreService,
	orchSvc *services.OrchestratorService,
	history ports.RunHistoryRepository,
	cache *artifactcache.Cache,
	catalog []services.TrainingJob,
) *Handler {
	return &Handler{
		storeSvc: storeSvc,
		orchSvc:  orchSvc,
		history:  history,
		cache:    cache,
		catalog:  catalog,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Models and versions
	r.GET("/models", h.ListModels)
	r.GET("/models/:name/versions", h.ListVersions)
	r.GET("/models/:name/current", h.GetCurrentVersion)
	r.GET("/models/:name/artifact", h.GetArtifact)
	r.POST("/models/:name/rollback", h.RollbackModel)

	// Training runs
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.POST("/runs", h.StartRun)
}
