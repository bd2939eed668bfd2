package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return domain.IsClock(fl.Field().String())
	})
	return v
}

// ValidateStruct runs struct tag validation and converts failures into a
// validation AppError whose details map field names to the failed rule.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	messages := make([]string, 0, len(verrs))
	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		details[field] = fe.Tag()
		messages = append(messages, describe(field, fe))
	}
	return apperrors.NewValidationError(strings.Join(messages, ", "), details)
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	case "hhmm":
		return field + " must be in HH:mm format"
	default:
		return field + " is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
