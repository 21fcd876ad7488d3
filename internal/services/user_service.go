package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/events"
	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/repositories"
	"github.com/campusworks/user-service/internal/validator"
)

type userService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

// NewUserService creates the user lifecycle service
func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) UserService {
	return &userService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
	}
}

// ===== READ OPERATIONS =====

func (s *userService) List(ctx context.Context, filters ListUsersFilters) (*UserListResult, error) {
	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &UserListResult{Users: users, Total: total}, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, apperrors.NewValidation([]apperrors.FieldError{{
			Field:   "id",
			Message: "must be a positive integer",
			Code:    "id",
		}})
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}

// ===== WRITE OPERATIONS =====

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := s.validator.ValidateUserCreate(req); err != nil {
		return nil, err
	}

	// Pre-check is advisory only; the unique index is the source of truth
	// and a concurrent insert still surfaces as a driver conflict.
	exists, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflict("email")
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Photo:    req.Photo,
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	s.publishEvent(ctx, events.UserCreated, user)

	return user, nil
}

func (s *userService) Update(ctx context.Context, id uint, req *UpdateUserRequest) (*models.User, error) {
	if err := s.validator.ValidateUserUpdate(req); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		exists, err := s.repo.User().ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		if exists {
			return nil, apperrors.NewConflict("email")
		}
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		user.Password = *req.Password
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Photo.Present {
		user.Photo = req.Photo.Value
	}

	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User updated", "user_id", user.ID)
	s.publishEvent(ctx, events.UserUpdated, user)

	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.User().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}

	s.logger.Info("User deleted", "user_id", id)
	s.publishEvent(ctx, events.UserDeleted, user)

	return user, nil
}

// publishEvent emits a lifecycle event; delivery failures are logged and
// never fail the request.
func (s *userService) publishEvent(ctx context.Context, eventType string, user *models.User) {
	if s.eventPublisher == nil {
		return
	}

	event := events.NewEvent(eventType, map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "user_id", user.ID, "error", err)
	}
}
