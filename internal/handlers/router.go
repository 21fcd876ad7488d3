package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/repositories"
	"github.com/campusworks/user-service/internal/services"
	"github.com/campusworks/user-service/internal/utils"
	"github.com/campusworks/user-service/internal/validator"
)

type HandlerManager struct {
	userHandler   *UserHandler
	healthHandler *HealthHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
	repo repositories.Repository,
) *HandlerManager {
	return &HandlerManager{
		userHandler:   NewUserHandler(serviceManager.User(), serviceManager.Export(), v, logger),
		healthHandler: NewHealthHandler(repo, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/export", hm.userHandler.ExportUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.POST("", hm.userHandler.CreateUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.userHandler.DeleteUser)
		}
	}

	// Unknown routes get the same envelope as every other error
	router.NoRoute(func(c *gin.Context) {
		writeErrorResponse(c, http.StatusNotFound, apperrors.CodeNotFound, "route not found", nil)
	})
}
