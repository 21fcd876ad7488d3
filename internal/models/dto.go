package models

import (
	"time"
)

// ===== RESPONSE ENVELOPES =====

// ErrorBody is the error object nested inside every error envelope.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the canonical error envelope produced by the error
// normalization middleware for every failed request.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type UserListResponse struct {
	Success bool    `json:"success"`
	Data    []*User `json:"data"`
	Total   int64   `json:"total"`
}

// ===== HEALTH CHECK =====

type DatabaseStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ServiceStatuses struct {
	API      string         `json:"api"`
	Database DatabaseStatus `json:"database"`
}

type HealthResponse struct {
	Status   string          `json:"status"`
	Services ServiceStatuses `json:"services"`
}
