package services

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/repositories"
	"github.com/campusworks/user-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator types
type CreateUserRequest = validator.UserCreateRequest
type UpdateUserRequest = validator.UserUpdateRequest

type UserListResult struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// ListUsersFilters narrows the user listing
type ListUsersFilters = repositories.UserFilters

// ===== SERVICE INTERFACES =====

// UserService owns the user lifecycle
type UserService interface {
	List(ctx context.Context, filters ListUsersFilters) (*UserListResult, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id uint, req *UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id uint) (*models.User, error)
}

// ExportService produces spreadsheet exports of the user base
type ExportService interface {
	ExportUsers(ctx context.Context, filters ListUsersFilters) (*excelize.File, error)
}

// ServiceManager wires and owns all service instances
type ServiceManager interface {
	User() UserService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
