package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies domain failures so handlers can map them to HTTP statuses
// in one place instead of sprinkling status codes through the services.
type Kind int

const (
	KindValidation Kind = iota
	KindInvalidTransition
	KindPermission
	KindInsufficientStock
	KindInvalidState
	KindNotFound
)

// DomainError is a business-rule failure surfaced to the caller with a
// specific reason string. Services return these; handlers translate them.
type DomainError struct {
	Kind   Kind
	Detail string
}

func (e *DomainError) Error() string { return e.Detail }

func Validation(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInvalidTransition, Detail: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindPermission, Detail: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInsufficientStock, Detail: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInvalidState, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

// HTTPStatus maps a domain error to its HTTP status code.
// Unknown errors map to 500: the handler hides their detail from clients.
func HTTPStatus(err error) int {
	var de *DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindPermission:
		return http.StatusForbidden
	case KindInsufficientStock, KindInvalidState:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
