package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")

	// Stock ledger error kinds
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrOrderingViolation    = errors.New("fifo ordering violation")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrRestoreInconsistency = errors.New("restore inconsistency")
	ErrAlreadyArchived      = errors.New("batch already archived")
	ErrAlreadyActive        = errors.New("batch already active")
	ErrAlreadyRetired       = errors.New("distribution record already retired")
	ErrDeleteForbidden      = errors.New("delete forbidden")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:        ErrInvalidCredentials,
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Stock ledger error constructors.
//
// Every ledger check is a precondition: the operation returns one of these
// before issuing any write, so a failed call commits nothing.

// InvalidQuantity reports a quantity outside the allowed range, or a
// non-positive quantity where a positive one is required.
func InvalidQuantity(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidQuantity,
		Code:       "INVALID_QUANTITY",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// OrderingViolation reports an attempt to distribute from a batch while an
// earlier-expiry batch of the same product still holds stock.
func OrderingViolation(selectedExpiry, blockingExpiry time.Time) *AppError {
	return &AppError{
		Err:  ErrOrderingViolation,
		Code: "ORDERING_VIOLATION",
		Message: fmt.Sprintf(
			"cannot distribute from this batch (exp: %s) while older batch (exp: %s) still has stock",
			selectedExpiry.Format("2006-01-02"), blockingExpiry.Format("2006-01-02"),
		),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"selected_expiry": selectedExpiry.Format("2006-01-02"),
			"blocking_expiry": blockingExpiry.Format("2006-01-02"),
		},
	}
}

// InsufficientStock reports a requested quantity exceeding the total active
// stock of the product across all batches.
func InsufficientStock(productName string, requested, available int) *AppError {
	return &AppError{
		Err:  ErrInsufficientStock,
		Code: "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf(
			"requested %d of %s exceeds total available stock (%d)",
			requested, productName, available,
		),
		StatusCode: http.StatusConflict,
	}
}

// RestoreInconsistency reports that returned stock could not be fully placed
// back into the product's batches. This signals a data-integrity problem
// needing operator intervention, not a retryable condition.
func RestoreInconsistency(productName string, unplaced int) *AppError {
	return &AppError{
		Err:  ErrRestoreInconsistency,
		Code: "RESTORE_INCONSISTENCY",
		Message: fmt.Sprintf(
			"failed to restore %d units of %s: no headroom left across batches, data may be inconsistent",
			unplaced, productName,
		),
		StatusCode: http.StatusConflict,
	}
}

// AlreadyArchived reports an archive call on a batch that is already archived.
func AlreadyArchived(batchID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyArchived,
		Code:       "ALREADY_ARCHIVED",
		Message:    fmt.Sprintf("batch %s is already archived", batchID),
		StatusCode: http.StatusConflict,
	}
}

// AlreadyActive reports a reactivate call on a batch that is not archived.
func AlreadyActive(batchID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyActive,
		Code:       "ALREADY_ACTIVE",
		Message:    fmt.Sprintf("batch %s is already active", batchID),
		StatusCode: http.StatusConflict,
	}
}

// AlreadyRetired reports a retire call on a distribution record that is
// already inactive.
func AlreadyRetired(recordID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyRetired,
		Code:       "ALREADY_RETIRED",
		Message:    fmt.Sprintf("distribution record %s is already retired", recordID),
		StatusCode: http.StatusConflict,
	}
}

// DeleteForbidden reports an attempt to physically remove an active
// distribution record.
func DeleteForbidden(message string) *AppError {
	return &AppError{
		Err:        ErrDeleteForbidden,
		Code:       "DELETE_FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
