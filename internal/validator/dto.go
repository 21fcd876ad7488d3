package validator

import (
	"encoding/json"

	"github.com/campusworks/user-service/internal/models"
)

// UserCreateRequest represents the request structure for creating users
type UserCreateRequest struct {
	Name     string          `json:"nome" validate:"required,min=3,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"senha" validate:"required,min=6,max=100"`
	Role     models.UserRole `json:"role" validate:"omitempty,user_role"`
	Photo    *string         `json:"foto" validate:"omitempty,url"`
}

// UserUpdateRequest represents the request structure for updating users.
// All fields are optional; absent fields leave the stored value untouched.
type UserUpdateRequest struct {
	Name     *string          `json:"nome" validate:"omitempty,min=3,max=100"`
	Email    *string          `json:"email" validate:"omitempty,email"`
	Password *string          `json:"senha" validate:"omitempty,min=6,max=100"`
	Role     *models.UserRole `json:"role" validate:"omitempty,user_role"`
	Photo    OptionalString   `json:"foto"`
}

// HasUpdates reports whether at least one field was provided.
func (r *UserUpdateRequest) HasUpdates() bool {
	return r.Name != nil || r.Email != nil || r.Password != nil ||
		r.Role != nil || r.Photo.Present
}

// OptionalString distinguishes between a field that was absent from the
// payload, explicitly null, and carrying a value. A plain *string cannot
// tell absent from null, which matters for clearing the photo.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only invoked when the key is present in the payload,
// so Present stays false for absent fields.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON keeps round-trips symmetric for logging and tests.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
