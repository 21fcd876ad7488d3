package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/repositories"
	"github.com/campusworks/user-service/internal/utils"
)

type HealthHandler struct {
	BaseHandler
	repo repositories.Repository
}

func NewHealthHandler(repo repositories.Repository, logger utils.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: NewBaseHandler(logger),
		repo:        repo,
	}
}

// Health reports the service and database status. The endpoint answers
// 503 when the database is unreachable so orchestrators can act on it.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status: "healthy",
		Services: models.ServiceStatuses{
			API:      "healthy",
			Database: models.DatabaseStatus{Status: "healthy"},
		},
	}
	status := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		h.LogError(c, err, "Health check failed")
		response.Status = "unhealthy"
		response.Services.Database = models.DatabaseStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response)
}
