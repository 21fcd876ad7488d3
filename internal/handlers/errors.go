package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	playgroundvalidator "github.com/go-playground/validator/v10"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/utils"
)

// DriverErrorClassifier maps a persistence error to a classification code.
// Injected so this package stays free of database driver imports.
type DriverErrorClassifier func(err error) (string, bool)

// DriverErrorMapping decides the HTTP rendering for one classification code.
type DriverErrorMapping struct {
	Status  int
	Code    string
	Message string
}

// DefaultDriverErrorMappings covers the codes the repositories can emit.
// Unlisted codes render as a generic database error.
func DefaultDriverErrorMappings() map[string]DriverErrorMapping {
	return map[string]DriverErrorMapping{
		"23505": {
			Status:  http.StatusConflict,
			Code:    apperrors.CodeConflict,
			Message: "data conflict",
		},
		"23503": {
			Status:  http.StatusBadRequest,
			Code:    "INVALID_REFERENCE",
			Message: "invalid reference",
		},
		"record_not_found": {
			Status:  http.StatusNotFound,
			Code:    apperrors.CodeNotFound,
			Message: "resource not found",
		},
	}
}

// ErrorMiddleware converts every error attached to the context into the
// canonical error envelope. Resolution order: classified application
// errors, then driver errors, then raw validation errors, then a 500.
func ErrorMiddleware(logger utils.Logger, environment string, classify DriverErrorClassifier, driverCodes map[string]DriverErrorMapping) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := apperrors.As(err); ok {
			logError(c, logger, appErr.Code, appErr.Message)
			writeErrorResponse(c, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
			return
		}

		if classify != nil {
			if code, ok := classify(err); ok {
				mapping, known := driverCodes[code]
				if !known {
					mapping = DriverErrorMapping{
						Status:  http.StatusInternalServerError,
						Code:    "DATABASE_ERROR",
						Message: "database error",
					}
				}
				logError(c, logger, mapping.Code, err.Error())
				writeErrorResponse(c, mapping.Status, mapping.Code, mapping.Message, nil)
				return
			}
		}

		var fieldErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			details := make([]apperrors.FieldError, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				details = append(details, apperrors.FieldError{
					Field:   fe.Field(),
					Message: fe.Error(),
					Code:    fe.Tag(),
				})
			}
			logError(c, logger, apperrors.CodeValidation, "invalid input data")
			writeErrorResponse(c, http.StatusBadRequest, apperrors.CodeValidation, "invalid input data", details)
			return
		}

		logError(c, logger, apperrors.CodeInternal, err.Error())

		var details interface{}
		if environment != "production" {
			stack := string(debug.Stack())
			logger.Error("Unhandled error stack", "stack", stack)
			details = map[string]string{
				"error": err.Error(),
				"stack": stack,
			}
		}
		writeErrorResponse(c, http.StatusInternalServerError, apperrors.CodeInternal, "internal server error", details)
	}
}

func logError(c *gin.Context, logger utils.Logger, code, message string) {
	logger.Error("Request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"code", code,
		"message", message,
	)
}

func writeErrorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}
