// Package errors provides the structured error type shared by the local store,
// the sync coordinator and the local API. Every error surfaced to callers should
// be an *AppError so the UI can branch on Kind and show Message without ever
// seeing storage or transport internals.
package errors

import (
	"errors"
	"net/http"
)

// Kind groups error codes into the handful of categories callers react to.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindAuthRequired      Kind = "auth_required"
	KindNetwork           Kind = "network"
	KindServer            Kind = "server"
	KindCancelled         Kind = "cancelled"
	KindNotInitialized    Kind = "not_initialized"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// AppError represents a structured application error with a kind, an error code,
// a human-readable message, an HTTP status code for the local API and an
// optional internal error.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so wrapped
// copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same kind/code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// KindOf returns the kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is transient. Network and server failures
// leave dirty flags untouched.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Kind: KindValidation, Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Kind: KindNotFound, Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrUnsupported    = &AppError{Kind: KindValidation, Code: "UNSUPPORTED", Message: "Operation not supported", StatusCode: http.StatusBadRequest}
	ErrInternal       = &AppError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrNotInitialized = &AppError{Kind: KindNotInitialized, Code: "NOT_INITIALIZED", Message: "Application has not been initialized", StatusCode: http.StatusServiceUnavailable}
)

// Wallet errors.
var (
	ErrWalletNotFound    = &AppError{Kind: KindNotFound, Code: "WALLET_NOT_FOUND", Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrInsufficientFunds = &AppError{Kind: KindInsufficientFunds, Code: "INSUFFICIENT_FUNDS", Message: "Insufficient wallet balance", StatusCode: http.StatusUnprocessableEntity}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Kind: KindNotFound, Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Kind: KindValidation, Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrSameWalletTransfer     = &AppError{Kind: KindValidation, Code: "SAME_WALLET_TRANSFER", Message: "Cannot transfer to the same wallet", StatusCode: http.StatusBadRequest}
)

// Category and planning errors.
var (
	ErrCategoryNotFound = &AppError{Kind: KindNotFound, Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrBudgetNotFound   = &AppError{Kind: KindNotFound, Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrBillNotFound     = &AppError{Kind: KindNotFound, Code: "BILL_NOT_FOUND", Message: "Bill not found", StatusCode: http.StatusNotFound}
	ErrReminderNotFound = &AppError{Kind: KindNotFound, Code: "REMINDER_NOT_FOUND", Message: "Reminder not found", StatusCode: http.StatusNotFound}
	ErrGoalNotFound     = &AppError{Kind: KindNotFound, Code: "GOAL_NOT_FOUND", Message: "Goal not found", StatusCode: http.StatusNotFound}
)

// Sync errors.
var (
	ErrAuthRequired      = &AppError{Kind: KindAuthRequired, Code: "AUTH_REQUIRED", Message: "Sign in to sync with the cloud", StatusCode: http.StatusUnauthorized}
	ErrNetwork           = &AppError{Kind: KindNetwork, Code: "NETWORK_ERROR", Message: "Could not reach the sync server", StatusCode: http.StatusBadGateway}
	ErrServer            = &AppError{Kind: KindServer, Code: "SERVER_ERROR", Message: "The sync server returned an error", StatusCode: http.StatusBadGateway}
	ErrMalformedSnapshot = &AppError{Kind: KindValidation, Code: "MALFORMED_SNAPSHOT", Message: "Cloud backup data is malformed", StatusCode: http.StatusUnprocessableEntity}
	ErrCancelled         = &AppError{Kind: KindCancelled, Code: "SYNC_CANCELLED", Message: "Sync was cancelled", StatusCode: http.StatusConflict}
	ErrSyncInProgress    = &AppError{Kind: KindConflict, Code: "SYNC_IN_PROGRESS", Message: "A sync is already running", StatusCode: http.StatusConflict}
	ErrSyncDisabled      = &AppError{Kind: KindValidation, Code: "SYNC_DISABLED", Message: "Cloud sync is turned off", StatusCode: http.StatusConflict}
)
