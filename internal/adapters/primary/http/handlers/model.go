package handlers

import (
	"errors"
	"net/http"

	"model-training-service/internal/adapters/primary/http/dto"
	"model-training-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListModels(c *gin.Context) {
	names, err := h.storeSvc.ListModels(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("list models failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ModelSummaryResponse, 0, len(names))
	for _, name := range names {
		versions, err := h.storeSvc.ListVersions(c.Request.Context(), name)
		if err != nil {
			mapDomainError(c, err)
			return
		}

		summary := dto.ModelSummaryResponse{
			Name:         name,
			VersionCount: len(versions),
		}

		current, err := h.storeSvc.GetCurrentVersion(c.Request.Context(), name)
		switch {
		case err == nil:
			resp := dto.ToVersionResponse(current)
			summary.CurrentVersion = &resp
		case errors.Is(err, domain.ErrVersionNotFound):
			// no promoted version yet
		default:
			mapDomainError(c, err)
			return
		}

		items = append(items, summary)
	}

	c.JSON(http.StatusOK, dto.ListModelsResponse{
		Items: items,
		Total: len(items),
	})
}

func (h *Handler) ListVersions(c *gin.Context) {
	name := c.Param("name")

	versions, err := h.storeSvc.ListVersions(c.Request.Context(), name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.VersionResponse, 0, len(versions))
	for i := range versions {
		items = append(items, dto.ToVersionResponse(&versions[i]))
	}

	c.JSON(http.StatusOK, dto.ListVersionsResponse{
		Model: name,
		Items: items,
		Total: len(items),
	})
}

func (h *Handler) GetCurrentVersion(c *gin.Context) {
	name := c.Param("name")

	version, err := h.storeSvc.GetCurrentVersion(c.Request.Context(), name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVersionResponse(version))
}

// GetArtifact streams the bytes of the model's promoted artifact. Reads go
// through the version-keyed cache, so repeated fetches of an unchanged model
// do not touch disk.
func (h *Handler) GetArtifact(c *gin.Context) {
	name := c.Param("name")

	version, data, err := h.cache.Get(c.Request.Context(), name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.Header("X-Version-ID", version.VersionID)
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *Handler) RollbackModel(c *gin.Context) {
	name := c.Param("name")

	restored, err := h.storeSvc.Rollback(c.Request.Context(), name)
	if err != nil {
		log.WithError(err).WithField("model", name).Error("rollback failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RollbackResponse{
		Model:    name,
		Restored: dto.ToVersionResponse(restored),
	})
}
