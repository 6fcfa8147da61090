// Package validation wraps validator/v10 with domain error conversion for
// credential forms and API request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
)

// Validator wraps go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// Violation is one failed rule on one field.
type Violation struct {
	Field   string // JSON name of the field
	Tag     string // validator tag that failed, e.g. "required" or "min"
	Message string
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Violations returns every failed rule, or nil when s is valid.
// A non-struct argument is reported as a single violation on "".
func (v *Validator) Violations(s any) []Violation {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []Violation{{Tag: "invalid", Message: err.Error()}}
	}

	out := make([]Violation, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, Violation{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: friendlyMessage(e),
		})
	}
	return out
}

// Validate returns a validation error carrying a field -> message map in its details.
func (v *Validator) Validate(s any) error {
	violations := v.Violations(s)
	if len(violations) == 0 {
		return nil
	}

	details := make(map[string]string, len(violations))
	for _, vi := range violations {
		details[vi.Field] = vi.Message
	}
	return domainerrors.Validation("validation failed").WithDetails(details)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
