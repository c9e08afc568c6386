// Package validation validates user input with go-playground/validator and
// converts failures into coded domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the journal's custom tags registered:
// "password" (letter and digit required) and "username" (no whitespace).
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // registration only fails on empty tag names
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordStrong(fl.Field().String())
	})
	//nolint:errcheck // registration only fails on empty tag names
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain validation error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// PasswordStrong reports whether pw has the minimum length and contains at
// least one letter and one digit.
func PasswordStrong(pw string) bool {
	if len([]rune(pw)) < MinPasswordLength {
		return false
	}
	return strings.ContainsFunc(pw, unicode.IsLetter) && strings.ContainsFunc(pw, unicode.IsDigit)
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	names := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
		names = append(names, e.Field()+" "+fieldErrors[e.Field()])
	}

	return domainerrors.ValidationWithDetails(strings.Join(names, "; "), fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "password":
		return fmt.Sprintf("must be at least %d characters and contain a letter and a digit", MinPasswordLength)
	case "username":
		return "must not contain whitespace"
	case "dive":
		return "has an invalid element"
	default:
		return "is invalid"
	}
}
