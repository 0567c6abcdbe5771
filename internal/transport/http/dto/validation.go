package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("password_strength", validatePasswordStrength)
	_ = v.RegisterValidation("role_name", validateRoleName)
	_ = v.RegisterValidation("max_bytes", validateMaxBytes)
	return v
}

// validatePasswordStrength wants an upper case letter, a lower case letter
// and a digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasNumber bool
	for _, c := range fl.Field().String() {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsNumber(c):
			hasNumber = true
		}
		if hasUpper && hasLower && hasNumber {
			return true
		}
	}
	return false
}

// validateMaxBytes bounds the UTF-8 length; max= counts runes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

func validateRoleName(fl validator.FieldLevel) bool {
	_, ok := domain.ParseRole(fl.Field().String())
	return ok
}

// Validate runs the struct tags of req and turns the first failure into a
// domain validation error.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.ErrInvalidJSON(err)
	}
	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(field)
	case "password_strength":
		return domain.ErrWeakPassword("must contain an upper case letter, a lower case letter and a digit")
	case "role_name":
		return domain.ErrInvalidRole(fmt.Sprint(fe.Value()))
	}

	reason := formatReason(fe)
	if field == "password" {
		return domain.ErrWeakPassword(reason)
	}
	return domain.ErrInvalidField(field, reason)
}

func formatReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "max_bytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	default:
		return "is invalid"
	}
}
