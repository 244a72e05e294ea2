package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
	ErrorTypeUnsupported  ErrorType = "UNSUPPORTED"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidMessage   ErrorCode = "INVALID_MESSAGE"

	ErrCodeLoginFailed        ErrorCode = "LOGIN_FAILED"
	ErrCodeSessionBusy        ErrorCode = "SESSION_BUSY"
	ErrCodeLoginSuperseded    ErrorCode = "LOGIN_SUPERSEDED"
	ErrCodeRestoreMalformed   ErrorCode = "RESTORE_MALFORMED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeNotSignedIn        ErrorCode = "NOT_SIGNED_IN"
	ErrCodeForbiddenSurface   ErrorCode = "FORBIDDEN_SURFACE"
	ErrCodeSurfaceNotFound    ErrorCode = "SURFACE_NOT_FOUND"

	ErrCodeResponseGenerationFailed ErrorCode = "RESPONSE_GENERATION_FAILED"
	ErrCodeResponseCancelled        ErrorCode = "RESPONSE_CANCELLED"

	ErrCodeUnsupportedCapability ErrorCode = "UNSUPPORTED_CAPABILITY"
	ErrCodeSpeechRejected        ErrorCode = "SPEECH_REJECTED"

	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailTaken   ErrorCode = "EMAIL_TAKEN"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {

			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code so errors.Is works against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy carrying cause, leaving shared sentinels untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewUnsupportedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnsupported,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotImplemented,
	}
}

var (
	ErrLoginFailed      = NewUnauthorizedError("Login failed", ErrCodeLoginFailed)
	ErrSessionBusy      = NewConflictError("A login is already in progress", ErrCodeSessionBusy)
	ErrLoginSuperseded  = NewConflictError("Login was superseded by a logout", ErrCodeLoginSuperseded)
	ErrRestoreMalformed = NewValidationError("Persisted session record is malformed", ErrCodeRestoreMalformed)
	ErrNotSignedIn      = NewUnauthorizedError("No active session", ErrCodeNotSignedIn)
	ErrForbiddenSurface = NewForbiddenError("Surface is not available for this role", ErrCodeForbiddenSurface)
	ErrSurfaceNotFound  = NewNotFoundError("Surface not found", ErrCodeSurfaceNotFound)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrResponseGenerationFailed = NewExternalError("Failed to generate a response", ErrCodeResponseGenerationFailed)
	ErrResponseCancelled        = NewConflictError("Response generation was cancelled", ErrCodeResponseCancelled)

	ErrUnsupportedCapability = NewUnsupportedError("Speech capability is not supported", ErrCodeUnsupportedCapability)
	ErrSpeechRejected        = NewConflictError("Cannot speak while listening", ErrCodeSpeechRejected)

	ErrUserNotFound = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrEmailTaken   = NewConflictError("Email is already registered", ErrCodeEmailTaken)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
