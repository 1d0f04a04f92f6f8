package utils

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/turtacn/astragrid/pkg/errors"
)

// sectorPattern is the physical inspection zone naming scheme, e.g. B4-SECTOR-01.
var sectorPattern = regexp.MustCompile(`^[A-Z]\d+-SECTOR-\d{2}$`)

// Validator holds the singleton instance of the validator.
var defaultValidator *validator.Validate

func init() {
	defaultValidator = validator.New()
	// Register custom validation functions
	_ = defaultValidator.RegisterValidation("sector", validateSector)
}

// ValidateStruct validates a struct using the default validator.
// It returns a malformed-input GridError listing every failing field.
func ValidateStruct(s interface{}) errors.GridError {
	if err := defaultValidator.Struct(s); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.ErrMalformedInput(err.Error())
		}
		details := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			details[toSnakeCase(fe.Field())] = formatValidationError(fe)
		}
		ge := errors.ErrMalformedInput(joinDetails(details))
		for field, msg := range details {
			ge.WithMetadata(field, msg)
		}
		return ge
	}
	return nil
}

// ValidateSectorFormat reports whether sector follows the sector naming scheme.
func ValidateSectorFormat(sector string) bool {
	return sectorPattern.MatchString(sector)
}

func validateSector(fl validator.FieldLevel) bool {
	return ValidateSectorFormat(fl.Field().String())
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "sector":
		return "must look like B4-SECTOR-01"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

func joinDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+details[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// toSnakeCase converts a string from CamelCase to snake_case.
// This is used to format field names in the validation error response.
func toSnakeCase(str string) string {
	var matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	var matchAllCap = regexp.MustCompile("([a-z0-9])([A-Z])")
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

//Personal.AI order the ending
