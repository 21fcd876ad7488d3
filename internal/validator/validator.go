package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/models"
)

var idPattern = regexp.MustCompile(`^[0-9]+$`)

// Validator handles request validation and input normalization.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	validate := validator.New()

	// Report violations under the wire field name, not the Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()

	return v
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})
}

// ValidateUserCreate normalizes the request in place and then checks every
// constraint, collecting all violations instead of stopping at the first.
func (v *Validator) ValidateUserCreate(req *UserCreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Photo != nil && *req.Photo == "" {
		req.Photo = nil
	}
	if req.Role == "" {
		req.Role = models.RoleProfessor
	}

	if err := v.validate.Struct(req); err != nil {
		return apperrors.NewValidation(v.toFieldErrors(err))
	}
	return nil
}

// ValidateUserUpdate normalizes the provided fields in place and checks
// their constraints. Field-level violations take precedence; the
// "at least one field" rule only fires when the payload defined nothing.
func (v *Validator) ValidateUserUpdate(req *UserUpdateRequest) error {
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		*req.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Photo.Present && req.Photo.Value != nil && *req.Photo.Value == "" {
		req.Photo.Value = nil
	}

	var details []apperrors.FieldError
	if err := v.validate.Struct(req); err != nil {
		details = v.toFieldErrors(err)
	}
	if req.Photo.Present && req.Photo.Value != nil {
		if err := v.validate.Var(*req.Photo.Value, "url"); err != nil {
			details = append(details, apperrors.FieldError{
				Field:   "foto",
				Message: "must be a valid URL",
				Code:    "url",
			})
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidation(details)
	}

	if !req.HasUpdates() {
		return apperrors.NewValidation([]apperrors.FieldError{{
			Field:   "body",
			Message: "at least one field must be provided",
			Code:    "required",
		}})
	}
	return nil
}

// ValidateID parses a path identifier. Anything that is not a positive
// decimal integer is rejected before touching the database.
func (v *Validator) ValidateID(raw string) (uint, error) {
	invalid := apperrors.NewValidation([]apperrors.FieldError{{
		Field:   "id",
		Message: "must be a positive integer",
		Code:    "id",
	}})

	if !idPattern.MatchString(raw) {
		return 0, invalid
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, invalid
	}
	return uint(id), nil
}

func (v *Validator) toFieldErrors(err error) []apperrors.FieldError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperrors.FieldError{{Field: "body", Message: err.Error()}}
	}

	details := make([]apperrors.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, apperrors.FieldError{
			Field:   fieldPath(fe),
			Message: messageFor(fe),
			Code:    fe.Tag(),
		})
	}
	return details
}

// fieldPath turns the validator namespace into a dot path of wire names,
// dropping the root struct segment.
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		return strings.Join(parts[1:], ".")
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "url":
		return "must be a valid URL"
	case "user_role":
		return fmt.Sprintf("must be one of %s, %s", models.RoleProfessor, models.RoleAdmin)
	default:
		return fmt.Sprintf("failed validation rule %s", fe.Tag())
	}
}
