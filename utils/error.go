package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies failures so the HTTP layer can present a specific message.
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindConflict    ErrorKind = "CONFLICT"
	KindTransaction ErrorKind = "TRANSACTION_FAILURE"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string, id any) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", resource, id), Err: ErrorRecordNotFound}
}

func NewConflictError(format string, args ...any) error {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewTransactionFailure(err error) error {
	return &AppError{Kind: KindTransaction, Message: "transaction failed", Err: err}
}

func KindOf(err error) (ErrorKind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool { return isKind(err, KindValidation) }

func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

func IsConflict(err error) bool { return isKind(err, KindConflict) }

func IsTransactionFailure(err error) bool { return isKind(err, KindTransaction) }

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// AsTransactionFailure passes business errors through and wraps anything else
// (driver, commit, context cancellation) as a TransactionFailure.
func AsTransactionFailure(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	return NewTransactionFailure(err)
}

// IsRetryable reports whether the caller may safely retry the whole operation.
func IsRetryable(err error) bool {
	if !IsTransactionFailure(err) {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213 deadlock, 1205 lock wait timeout
		if mysqlErr.Number == 1213 || mysqlErr.Number == 1205 {
			return true
		}
		// 1062 on a sequence index: a concurrent writer drew the same number
		return mysqlErr.Number == 1062 && strings.Contains(mysqlErr.Message, "sequence_no")
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// HTTPStatus maps an error to the status code returned by the HTTP layer.
// Guard violations are reported as 400 alongside validation failures.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTransaction:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
