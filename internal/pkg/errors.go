package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel application errors. NotFound is deliberately returned for
// resources the caller cannot see, so existence never leaks.
var (
	// Authentication
	ErrInvalidCredentials = NewAppError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrInvalidToken       = NewAppError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized)
	ErrTokenExpired       = NewAppError("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)

	// Authorization
	ErrForbidden = NewAppError("FORBIDDEN", "Access denied", http.StatusForbidden)

	// Users
	ErrUserNotFound      = NewAppError("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrEmailAlreadyTaken = NewAppError("EMAIL_ALREADY_TAKEN", "Email address already taken", http.StatusConflict)
	ErrWeakPassword      = NewAppError("WEAK_PASSWORD", "Password does not meet requirements", http.StatusBadRequest)

	// Files
	ErrFileNotFound = NewAppError("FILE_NOT_FOUND", "File not found", http.StatusNotFound)
	ErrFileTooLarge = NewAppError("FILE_TOO_LARGE", "File size exceeds limit", http.StatusRequestEntityTooLarge)
	ErrFileNotReady = NewAppError("FILE_NOT_READY", "File upload has not completed", http.StatusConflict)

	// Folders
	ErrFolderNotFound = NewAppError("FOLDER_NOT_FOUND", "Folder not found", http.StatusNotFound)
	ErrFolderCycle    = NewAppError("FOLDER_CYCLE", "Move would make a folder its own ancestor", http.StatusConflict)

	// Quota ledger
	ErrQuotaExceeded = NewAppError("STORAGE_QUOTA_EXCEEDED", "Storage quota exceeded", http.StatusPaymentRequired)

	// Share transactions
	ErrShareNotFound         = NewAppError("SHARE_NOT_FOUND", "Transaction not found", http.StatusNotFound)
	ErrDuplicateTransaction  = NewAppError("DUPLICATE_TRANSACTION", "Transaction ID already exists", http.StatusConflict)
	ErrShareExpired          = NewAppError("SHARE_EXPIRED", "Share link has expired", http.StatusGone)
	ErrSharePasswordRequired = NewAppError("SHARE_PASSWORD_REQUIRED", "Share password required", http.StatusUnauthorized)
	ErrInvalidSharePassword  = NewAppError("INVALID_SHARE_PASSWORD", "Invalid share password", http.StatusUnauthorized)
	ErrShareViewLimit        = NewAppError("SHARE_VIEW_LIMIT_EXCEEDED", "Share view limit exceeded", http.StatusForbidden)
	ErrShareRevoked          = NewAppError("SHARE_REVOKED", "Share has been revoked", http.StatusGone)
	ErrInvalidTransition     = NewAppError("INVALID_TRANSITION", "Transaction state transition not allowed", http.StatusConflict)
	ErrReceiptMismatch       = NewAppError("RECEIPT_VERIFICATION_FAILED", "Receipt signature does not match transaction", http.StatusConflict)

	// Validation
	ErrValidationFailed = NewAppError("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest)
	ErrInvalidInput     = NewAppError("INVALID_INPUT", "Invalid input data", http.StatusBadRequest)

	// Rate limiting
	ErrRateLimitExceeded = NewAppError("RATE_LIMIT_EXCEEDED", "Rate limit exceeded", http.StatusTooManyRequests)

	// System
	ErrInternalServer = NewAppError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrDatabaseError  = NewAppError("DATABASE_ERROR", "Database error", http.StatusInternalServerError)
)

// AppError represents an application-specific error
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error carrying extra details.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error wrapping an underlying cause.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// Is lets errors.Is match sentinel AppErrors by code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewAppError creates a new application error
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Message)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
