package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockedby/groupwatch/internal/telegram"
)

// ErrorKind categorizes fetch failures for the caller.
type ErrorKind string

// Error kind constants define the fetch error taxonomy.
const (
	ErrKindValidation  ErrorKind = "validation"
	ErrKindPermission  ErrorKind = "permission"
	ErrKindAuthExpired ErrorKind = "auth_expired"
	ErrKindTransient   ErrorKind = "transient"
	ErrKindPersistence ErrorKind = "persistence"
	ErrKindQuota       ErrorKind = "quota"
)

// FetchError carries an error kind alongside the message so the
// orchestrator and HTTP layer can branch on category.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the kind aborts a whole session.
// Transient and persistence failures are handled per item.
func (e *FetchError) IsFatal() bool {
	switch e.Kind {
	case ErrKindValidation, ErrKindPermission, ErrKindAuthExpired, ErrKindQuota:
		return true
	}
	return false
}

// newFetchError builds a FetchError of the given kind.
func newFetchError(kind ErrorKind, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: err}
}

// classifyRemoteError maps a telegram layer error to a FetchError.
func classifyRemoteError(err error) *FetchError {
	switch {
	case telegram.IsAuthError(err):
		return newFetchError(ErrKindAuthExpired, "telegram credential invalid or expired", err)
	case telegram.IsPermissionError(err):
		return newFetchError(ErrKindPermission, "account lacks access to the group", err)
	case telegram.IsTransientError(err) || errors.Is(err, context.DeadlineExceeded):
		return newFetchError(ErrKindTransient, "remote source temporarily unavailable", err)
	default:
		return newFetchError(ErrKindTransient, "remote source error", err)
	}
}

// AsFetchError extracts a FetchError from an error chain, or wraps
// unknown errors as transient.
func AsFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return classifyRemoteError(err)
}
