package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/utils"
)

// BaseHandler provides common functionality shared by all handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of request processing.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string) {
	utils.GetLogger(c, h.logger).Info(msg,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)
}

// LogError logs a failure with request context attached.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.GetLogger(c, h.logger).Error(msg,
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)
}

// Error hands the error to the normalization middleware and stops the chain.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON decodes the request body, tolerating unknown fields.
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return malformedBodyError(err)
	}
	return nil
}

// bindStrictJSON decodes the request body and rejects unknown fields, so
// client typos never silently no-op.
func (h *BaseHandler) bindStrictJSON(c *gin.Context, dest interface{}) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		if field, ok := unknownFieldName(err); ok {
			return apperrors.NewValidation([]apperrors.FieldError{{
				Field:   field,
				Message: "unknown field",
				Code:    "unknown_field",
			}})
		}
		return malformedBodyError(err)
	}
	return nil
}

func malformedBodyError(err error) error {
	if errors.Is(err, io.EOF) {
		return apperrors.NewValidation([]apperrors.FieldError{{
			Field:   "body",
			Message: "request body is required",
			Code:    "required",
		}})
	}
	return apperrors.NewValidation([]apperrors.FieldError{{
		Field:   "body",
		Message: fmt.Sprintf("malformed JSON payload: %v", err),
		Code:    "json",
	}})
}

// unknownFieldName extracts the field name from the stdlib decoder error.
// The error has no typed form, only the documented message shape.
func unknownFieldName(err error) (string, bool) {
	const marker = `json: unknown field "`
	msg := err.Error()
	if !strings.HasPrefix(msg, marker) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(msg, marker), `"`), true
}
