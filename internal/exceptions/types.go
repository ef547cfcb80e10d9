package exceptions

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	StatusCode int
	Cause      error
}

func (se *ServiceError) Error() string {
	return se.Cause.Error()
}

func (se *ServiceError) Unwrap() error {
	return se.Cause
}

type RequestError interface {
	ToServiceError() *ServiceError
	Error() string
}

// AsServiceError resolves any error into a ServiceError, defaulting to a 500.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	var re RequestError
	if errors.As(err, &re) {
		return re.ToServiceError()
	}
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Cause:      err,
	}
}

type ConflictError struct {
	Resource string
	Id       string
}

func (ce *ConflictError) Error() string {
	return fmt.Sprintf("Found conflicting %s with id: %s", ce.Resource, ce.Id)
}

func (ce *ConflictError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusConflict,
		Cause:      ce,
	}
}

func Conflict(resource string, id string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Id:       id,
	}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func (nfe *NotFoundError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusNotFound,
		Cause:      nfe,
	}
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func (ie *InvalidInputError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Cause:      ie,
	}
}

func InvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{
		Message: message,
	}
}

type UnauthenticatedError struct{}

func (ue *UnauthenticatedError) Error() string {
	return "Authentication credentials were not provided"
}

func (ue *UnauthenticatedError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusUnauthorized,
		Cause:      ue,
	}
}

func Unauthenticated() *UnauthenticatedError {
	return &UnauthenticatedError{}
}

type ForbiddenError struct {
	Resource string
	Id       string
}

func (fe *ForbiddenError) Error() string {
	return fmt.Sprintf("Not allowed to modify %s with id: %s", fe.Resource, fe.Id)
}

func (fe *ForbiddenError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusForbidden,
		Cause:      fe,
	}
}

func Forbidden(resource string, id string) *ForbiddenError {
	return &ForbiddenError{
		Resource: resource,
		Id:       id,
	}
}

func InternalServer(message string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Cause:      errors.New(message),
	}
}
