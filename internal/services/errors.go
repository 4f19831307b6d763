package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorGone         ErrorCode = "gone"
	ErrorBadGateway   ErrorCode = "bad_gateway"
)

// ServiceError carries a client-facing code. Err, when set, is the sentinel
// callers match with errors.Is.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewBadGatewayError(msg string) error { return &ServiceError{Code: ErrorBadGateway, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	ErrNameRequired          = &ServiceError{Code: ErrorInvalid, Message: "name required"}
	ErrInvalidEmail          = &ServiceError{Code: ErrorInvalid, Message: "invalid email"}
	ErrResourceNotFound      = &ServiceError{Code: ErrorNotFound, Message: "resource not found"}
	ErrQuestionnaireNotFound = &ServiceError{Code: ErrorNotFound, Message: "questionnaire not found"}
	ErrQuestionnaireInactive = &ServiceError{Code: ErrorNotFound, Message: "questionnaire not active"}
	ErrDispatchFailed        = &ServiceError{Code: ErrorBadGateway, Message: "could not send email, please try again"}

	// ErrDuplicateToken is returned by token stores when the hash already exists.
	ErrDuplicateToken = errors.New("duplicate unlock token")
)

// invalidf wraps a validation failure so errors.Is still finds the cause.
func invalidf(msg string, cause error) error {
	return &ServiceError{Code: ErrorInvalid, Message: msg, Err: cause}
}

func shortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(id) {
		return id
	}
	return id[:n]
}
