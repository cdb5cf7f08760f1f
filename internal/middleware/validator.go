package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/scripture"
)

// RequestValidator implements echo.Validator with go-playground/validator. Besides the
// built-in tags it understands "translation" and "reference".
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator reporting fields by their wire names
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(wireName)
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("translation", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.Translations, strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("reference", func(fl validator.FieldLevel) bool {
		return scripture.IsReferenceShaped(fl.Field().String())
	})
	return &RequestValidator{validate: v}
}

// Validate returns an apperr validation error describing the first failing field
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Wrap(apperr.ErrValidation, describe(verrs[0]), err)
	}
	return apperr.Wrap(apperr.ErrValidation, "Invalid request parameters", err)
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "param"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "translation":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.Translations, ", "))
	case "reference":
		return fmt.Sprintf(`%s must look like "Book Chapter:Verse"`, field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
