package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"model-training-service/internal/adapters/primary/http/dto"
	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		mapDomainError(c, domain.ErrHistoryDisabled)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("list runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RunSummaryResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToRunSummary(run))
	}

	c.JSON(http.StatusOK, dto.ListRunsResponse{
		Items: items,
		Total: len(items),
	})
}

// GetRun returns the full archived report, per-job results and
// notifications included.
func (h *Handler) GetRun(c *gin.Context) {
	if h.history == nil {
		mapDomainError(c, domain.ErrHistoryDisabled)
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.history.GetRun(c.Request.Context(), runID)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) StartRun(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.selectJobs(req.Models)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.orchSvc.StartRun(jobs, req.DatasetRef)
	if err != nil {
		log.WithError(err).Error("start run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.StartRunResponse{
		RunID:  runID,
		Status: "accepted",
	})
}

// selectJobs narrows the configured catalog to the requested models. An
// empty request selects the whole catalog.
func (h *Handler) selectJobs(models []string) ([]services.TrainingJob, error) {
	if len(models) == 0 {
		return h.catalog, nil
	}

	byName := make(map[string]services.TrainingJob, len(h.catalog))
	for _, job := range h.catalog {
		byName[job.Name] = job
	}

	jobs := make([]services.TrainingJob, 0, len(models))
	for _, name := range models {
		job, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown model: %s", name)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
