package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("user already exists")
	// ErrTaskNotFound is returned when the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden is returned when the caller is authenticated but not
	// allowed to touch the resource.
	ErrForbidden = errors.New("not authorized")
)

// ValidationError reports which input fields failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// validationError converts validator output into a per-field error map.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"_": "invalid input"}}
	}

	fields := make(map[string]string, len(verrs))
	for _, verr := range verrs {
		name := strings.ToLower(verr.Field())
		switch verr.Tag() {
		case "required":
			fields[name] = "is required"
		case "email":
			fields[name] = "must be a valid email address"
		case "min":
			fields[name] = fmt.Sprintf("must be at least %s characters", verr.Param())
		default:
			fields[name] = "is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}
