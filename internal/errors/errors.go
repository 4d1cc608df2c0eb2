// Package errors defines the typed error taxonomy returned by every service
// operation and its mapping onto HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error category.
type ErrorCode string

const (
	CodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeDuplicateName       ErrorCode = "DUPLICATE_NAME"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeEmptyCart           ErrorCode = "EMPTY_CART"
	CodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	CodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal            ErrorCode = "INTERNAL"
)

var statusByCode = map[ErrorCode]int{
	CodeInvalidCredentials:  http.StatusUnauthorized,
	CodeNotFound:            http.StatusNotFound,
	CodeDuplicateName:       http.StatusConflict,
	CodeInsufficientBalance: http.StatusConflict,
	CodeEmptyCart:           http.StatusBadRequest,
	CodeStorageUnavailable:  http.StatusServiceUnavailable,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeInvalidInput:        http.StatusBadRequest,
	CodeInvalidToken:        http.StatusUnauthorized,
	CodeRateLimitExceeded:   http.StatusTooManyRequests,
	CodeInternal:            http.StatusInternalServerError,
}

// ServiceError is the error type surfaced to callers of the service layer.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements error.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches any ServiceError carrying the same code, so sentinels such as
// ErrNotFound work with errors.Is regardless of message.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy with an extra detail entry.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New builds a ServiceError with the status implied by code.
func New(code ErrorCode, message string, cause error) *ServiceError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidCredentials  = New(CodeInvalidCredentials, "invalid credentials", nil)
	ErrNotFound            = New(CodeNotFound, "not found", nil)
	ErrDuplicateName       = New(CodeDuplicateName, "duplicate name", nil)
	ErrInsufficientBalance = New(CodeInsufficientBalance, "insufficient balance", nil)
	ErrEmptyCart           = New(CodeEmptyCart, "cart is empty", nil)
	ErrStorageUnavailable  = New(CodeStorageUnavailable, "storage unavailable", nil)
	ErrUnauthorized        = New(CodeUnauthorized, "unauthorized", nil)
	ErrForbidden           = New(CodeForbidden, "forbidden", nil)
	ErrInvalidInput        = New(CodeInvalidInput, "invalid input", nil)
)

func InvalidCredentials() *ServiceError {
	return New(CodeInvalidCredentials, "invalid credentials", nil)
}

func NotFound(resource string, id interface{}) *ServiceError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), nil).WithDetails("id", id)
}

func DuplicateName(resource, name string) *ServiceError {
	return New(CodeDuplicateName, fmt.Sprintf("%s %q already exists", resource, name), nil)
}

func InsufficientBalance(balance, required interface{}) *ServiceError {
	return New(CodeInsufficientBalance, "insufficient balance", nil).
		WithDetails("balance", balance).
		WithDetails("required", required)
}

func EmptyCart() *ServiceError {
	return New(CodeEmptyCart, "cart is empty", nil)
}

func StorageUnavailable(cause error) *ServiceError {
	return New(CodeStorageUnavailable, "storage unavailable", cause)
}

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, nil)
}

func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "access denied"
	}
	return New(CodeForbidden, message, nil)
}

func InvalidInput(message string) *ServiceError {
	return New(CodeInvalidInput, message, nil)
}

func InvalidToken(cause error) *ServiceError {
	return New(CodeInvalidToken, "invalid or expired session token", cause)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimitExceeded, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Internal(message string, cause error) *ServiceError {
	return New(CodeInternal, message, cause)
}

// GetServiceError extracts a ServiceError from the chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus returns the status to respond with for err.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
