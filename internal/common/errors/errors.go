package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// Generic errors
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// Giveaway errors
	ErrCodeGiveawayNotFound         ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeInvalidState             ErrorCode = "INVALID_STATE"
	ErrCodeAlreadyJoined            ErrorCode = "ALREADY_JOINED"
	ErrCodeInsufficientParticipants ErrorCode = "INSUFFICIENT_PARTICIPANTS"
	ErrCodeCaptchaFailed            ErrorCode = "CAPTCHA_FAILED"

	// Chat errors
	ErrCodeSpamDetected ErrorCode = "SPAM_DETECTED"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"

	// User errors
	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	ErrCodeUserBanned   ErrorCode = "USER_BANNED"

	// Storage errors
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"

	// External collaborators
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API_ERROR"
)

// AppError is the typed application error carried across layers.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Stack     []string               `json:"stack,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error is any "not found" variant.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeUserNotFound ||
		e.Code == ErrCodeGiveawayNotFound
}

// IsValidation reports whether the error is a validation failure.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeBadRequest
}

// IsUnauthorized reports whether the error is an auth/permission failure.
func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden || e.Code == ErrCodeUserBanned
}

// IsInternal reports whether the error should be treated as a server fault.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeCacheError ||
		e.Code == ErrCodeExternalAPI
}

// WithContext attaches a request-scoped key/value to the error.
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID tags the error with the originating request id.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// WithUserID tags the error with the acting user.
func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps an existing error with an application code.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// Constructors for the errors the services raise.

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewNotFoundError creates a generic "not found" error.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewGiveawayNotFoundError creates a "giveaway not found" error.
func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

// NewUserNotFoundError creates a "user not found" error.
func NewUserNotFoundError(userID int64) *AppError {
	return New(ErrCodeUserNotFound, fmt.Sprintf("User not found: %d", userID)).
		WithDetail("user_id", userID)
}

// NewPermissionError creates an error for a denied capability.
func NewPermissionError(capability string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Permission denied: %s", capability)).
		WithDetail("capability", capability)
}

// NewUnauthorizedError creates an error for an unresolved caller.
func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

// NewInvalidStateError creates an error for an operation invalid in the
// giveaway's current lifecycle state.
func NewInvalidStateError(giveawayID, status string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("Giveaway %s is not active (status: %s)", giveawayID, status)).
		WithDetail("giveaway_id", giveawayID).
		WithDetail("status", status)
}

// NewCaptchaError creates an error for a failed captcha verification.
func NewCaptchaError(reason string) *AppError {
	return New(ErrCodeCaptchaFailed, "Captcha verification failed").
		WithDetail("reason", reason)
}

// NewInsufficientParticipantsError creates an error for a completion attempt
// with fewer eligible participants than winner slots.
func NewInsufficientParticipantsError(giveawayID string, eligible, required int) *AppError {
	return New(ErrCodeInsufficientParticipants,
		fmt.Sprintf("Giveaway %s has %d eligible participants, %d required", giveawayID, eligible, required)).
		WithDetail("giveaway_id", giveawayID).
		WithDetail("eligible_count", eligible).
		WithDetail("winners_count", required)
}

// NewRateLimitError creates an error for an exceeded action limit.
func NewRateLimitError(action string, retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimit, fmt.Sprintf("Rate limit exceeded for %s", action)).
		WithDetail("action", action).
		WithDetail("retry_after", retryAfter.String())
}

// NewSpamDetectedError creates an error for content rejected by heuristics.
func NewSpamDetectedError(reason string) *AppError {
	return New(ErrCodeSpamDetected, "Message rejected as spam").
		WithDetail("reason", reason)
}

// NewConflictError creates a conflict error.
func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

// NewDatabaseError wraps an opaque storage-layer failure.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewExternalAPIError wraps a failure talking to an external collaborator.
func NewExternalAPIError(service string, err error) *AppError {
	return Wrap(err, ErrCodeExternalAPI, fmt.Sprintf("External service failed: %s", service)).
		WithDetail("service", service)
}

// IsAppError reports whether err is an AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts err to an AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
