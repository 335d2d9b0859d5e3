package utils

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct runs `validate` tags and reports failures as a ValidationError.
func ValidateStruct(input any) error {
	if err := getValidator().Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := ProcessValidationErrors(validationErrors)
			parts := make([]string, 0, len(fields))
			for field, tag := range fields {
				parts = append(parts, field+" failed "+tag)
			}
			return NewValidationError("invalid input: %s", strings.Join(parts, ", "))
		}
		return NewValidationError("invalid input: %v", err)
	}
	return nil
}

func ProcessValidationErrors(validationErrors validator.ValidationErrors) map[string]string {
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

type DecimalField struct {
	Name  string
	Value decimal.Decimal
}

// ValidateNonNegative rejects the first negative field.
func ValidateNonNegative(fields ...DecimalField) error {
	for _, f := range fields {
		if f.Value.IsNegative() {
			return NewValidationError("%s must not be negative", f.Name)
		}
	}
	return nil
}

// check if id exists inside tx, return NotFound error
func ValidateResourceId[T any](tx *gorm.DB, id int) error {
	if id <= 0 {
		return NewNotFoundError(GetTypeName[T](), id)
	}
	count, err := CountWhere[T](tx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFoundError(GetTypeName[T](), id)
	}
	return nil
}
