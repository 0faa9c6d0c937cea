package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrCodeNotReady    ErrorCode = "NOT_READY"
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeBadRequest  ErrorCode = "BAD_REQUEST"
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"

	// Giveaway state preconditions.
	ErrCodeGiveawayNotFound ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeAlreadyEnded     ErrorCode = "GIVEAWAY_ALREADY_ENDED"
	ErrCodeNotYetEnded      ErrorCode = "GIVEAWAY_NOT_YET_ENDED"

	// External platform resources.
	ErrCodeChannelUnavailable ErrorCode = "CHANNEL_UNAVAILABLE"
	ErrCodeMessageNotFound    ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodePlatformAPI        ErrorCode = "PLATFORM_API_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
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

// IsNotFound reports whether the error describes a missing resource.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeGiveawayNotFound ||
		e.Code == ErrCodeMessageNotFound
}

// IsStatePrecondition reports whether the error is a rejected lifecycle transition.
func (e *AppError) IsStatePrecondition() bool {
	return e.Code == ErrCodeAlreadyEnded || e.Code == ErrCodeNotYetEnded
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Constructors for the errors the engine raises.

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewNotReadyError() *AppError {
	return New(ErrCodeNotReady, "Manager has not finished loading persisted giveaways")
}

func NewGiveawayNotFoundError(messageID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", messageID)).
		WithDetail("message_id", messageID)
}

func NewAlreadyEndedError(messageID string) *AppError {
	return New(ErrCodeAlreadyEnded, fmt.Sprintf("Giveaway already ended: %s", messageID)).
		WithDetail("message_id", messageID)
}

func NewNotYetEndedError(messageID string) *AppError {
	return New(ErrCodeNotYetEnded, fmt.Sprintf("Giveaway has not ended yet: %s", messageID)).
		WithDetail("message_id", messageID)
}

func NewChannelUnavailableError(channelID string, err error) *AppError {
	return Wrap(err, ErrCodeChannelUnavailable, fmt.Sprintf("Channel unavailable: %s", channelID)).
		WithDetail("channel_id", channelID)
}

func NewMessageNotFoundError(messageID string) *AppError {
	return New(ErrCodeMessageNotFound, fmt.Sprintf("Announcement message not found: %s", messageID)).
		WithDetail("message_id", messageID)
}

func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("Persistence operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewPlatformAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePlatformAPI, fmt.Sprintf("Platform API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// AsAppError extracts an AppError from err.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
