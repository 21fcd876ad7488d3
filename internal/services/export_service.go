package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/campusworks/user-service/internal/repositories"
)

const exportSheet = "Users"

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

// NewExportService creates the spreadsheet export service
func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ExportUsers builds an xlsx workbook with one row per user. Passwords
// never leave the database layer.
func (s *exportService) ExportUsers(ctx context.Context, filters ListUsersFilters) (*excelize.File, error) {
	users, _, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"ID", "Name", "Email", "Role", "Photo", "Created At", "Updated At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, user := range users {
		photo := ""
		if user.Photo != nil {
			photo = *user.Photo
		}
		values := []interface{}{
			user.ID,
			user.Name,
			user.Email,
			string(user.Role),
			photo,
			user.CreatedAt.Format("2006-01-02 15:04:05"),
			user.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	s.logger.Info("Users exported", "count", len(users))
	return f, nil
}
