package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/services"
	"github.com/campusworks/user-service/internal/utils"
	"github.com/campusworks/user-service/internal/validator"
)

type UserHandler struct {
	BaseHandler
	userService   services.UserService
	exportService services.ExportService
	validator     *validator.Validator
}

func NewUserHandler(userService services.UserService, exportService services.ExportService, v *validator.Validator, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:   NewBaseHandler(logger),
		userService:   userService,
		exportService: exportService,
		validator:     v,
	}
}

// ListUsers lists users with optional filtering
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	filters := h.parseUserFilters(c)

	result, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.LogError(c, err, "Failed to list users")
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UserListResponse{
		Success: true,
		Data:    result.Users,
		Total:   result.Total,
	})
}

// GetUser returns a single user by id
func (h *UserHandler) GetUser(c *gin.Context) {
	h.LogRequest(c, "Getting user")

	id, err := h.validator.ValidateID(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.LogError(c, err, "Failed to get user")
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: user})
}

// CreateUser creates a new user
func (h *UserHandler) CreateUser(c *gin.Context) {
	h.LogRequest(c, "Creating user")

	var req services.CreateUserRequest
	if err := h.bindJSON(c, &req); err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		h.LogError(c, err, "Failed to create user")
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: user})
}

// UpdateUser patches an existing user. Unknown fields are rejected so a
// mistyped key cannot pass as a successful no-op.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	h.LogRequest(c, "Updating user")

	id, err := h.validator.ValidateID(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	var req services.UpdateUserRequest
	if err := h.bindStrictJSON(c, &req); err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.LogError(c, err, "Failed to update user")
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: user})
}

// DeleteUser removes a user and returns the deleted snapshot
func (h *UserHandler) DeleteUser(c *gin.Context) {
	h.LogRequest(c, "Deleting user")

	id, err := h.validator.ValidateID(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.userService.Delete(c.Request.Context(), id)
	if err != nil {
		h.LogError(c, err, "Failed to delete user")
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: user})
}

// ExportUsers streams an xlsx workbook of the user base
func (h *UserHandler) ExportUsers(c *gin.Context) {
	h.LogRequest(c, "Exporting users")

	filters := h.parseUserFilters(c)
	// Export is unpaginated unless the client asks otherwise
	if c.Query("size") == "" {
		filters.Limit = 0
		filters.Offset = 0
	}

	f, err := h.exportService.ExportUsers(c.Request.Context(), filters)
	if err != nil {
		h.LogError(c, err, "Failed to export users")
		h.Error(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("users-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		h.LogError(c, err, "Failed to write export")
	}
}

func (h *UserHandler) parseUserFilters(c *gin.Context) services.ListUsersFilters {
	filters := services.ListUsersFilters{
		Query: c.Query("q"),
	}

	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		if role.Valid() {
			filters.Role = &role
		}
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil || size < 0 {
		size = 0
	}
	if size > 100 {
		size = 100
	}

	filters.Limit = size
	if size > 0 {
		filters.Offset = (page - 1) * size
	}

	return filters
}
