package exceptions

import (
	"fmt"
	"net/http"
)

type ValidationKind string

const (
	INVALID_SHAPE        ValidationKind = "InvalidShape"
	INVALID_FIELD        ValidationKind = "InvalidField"
	UNKNOWN_TAG          ValidationKind = "UnknownTag"
	UNKNOWN_INGREDIENT   ValidationKind = "UnknownIngredient"
	INVALID_COOKING_TIME ValidationKind = "InvalidCookingTime"
	INVALID_AMOUNT       ValidationKind = "InvalidAmount"
	DUPLICATE_INGREDIENT ValidationKind = "DuplicateIngredient"
)

// ValidationError names the first rule a recipe payload violated.
// Id carries the offending tag or ingredient id when the rule is about one.
type ValidationError struct {
	Kind    ValidationKind
	Id      string
	Message string
}

func (ve *ValidationError) Error() string {
	return ve.Message
}

func (ve *ValidationError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Cause:      ve,
	}
}

func InvalidShape(field string) *ValidationError {
	return &ValidationError{
		Kind:    INVALID_SHAPE,
		Message: fmt.Sprintf("Field %s must be a non-empty list", field),
	}
}

func InvalidField(field string, reason string) *ValidationError {
	return &ValidationError{
		Kind:    INVALID_FIELD,
		Message: fmt.Sprintf("Field %s is invalid: %s", field, reason),
	}
}

func UnknownTag(id string) *ValidationError {
	return &ValidationError{
		Kind:    UNKNOWN_TAG,
		Id:      id,
		Message: fmt.Sprintf("Unknown tag %s", id),
	}
}

func UnknownIngredient(id string) *ValidationError {
	return &ValidationError{
		Kind:    UNKNOWN_INGREDIENT,
		Id:      id,
		Message: fmt.Sprintf("Unknown ingredient %s", id),
	}
}

func InvalidCookingTime(minimum int, maximum int) *ValidationError {
	return &ValidationError{
		Kind:    INVALID_COOKING_TIME,
		Message: fmt.Sprintf("Cooking time must be a whole number between %d and %d", minimum, maximum),
	}
}

func InvalidAmount(name string, minimum int, maximum int) *ValidationError {
	return &ValidationError{
		Kind:    INVALID_AMOUNT,
		Message: fmt.Sprintf("Amount of %s must be a whole number between %d and %d", name, minimum, maximum),
	}
}

func DuplicateIngredient(id string, name string) *ValidationError {
	return &ValidationError{
		Kind:    DUPLICATE_INGREDIENT,
		Id:      id,
		Message: fmt.Sprintf("Ingredient %s is repeated in the recipe", name),
	}
}
