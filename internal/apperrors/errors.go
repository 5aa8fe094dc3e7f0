package apperrors

import "errors"

// =============================================================================
// Error Codes
// =============================================================================

type ErrorCode string

const (
	ErrorCodeInternalError         ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	ErrorCodeDeviceNotFound        ErrorCode = "DEVICE_NOT_FOUND"
	ErrorCodeDeviceNotReady        ErrorCode = "DEVICE_NOT_READY"
	ErrorCodeMediaNotFound         ErrorCode = "MEDIA_NOT_FOUND"
	ErrorCodeBackendUnavailable    ErrorCode = "BACKEND_UNAVAILABLE"
	ErrorCodeBackendError          ErrorCode = "BACKEND_ERROR"
	ErrorCodeCapabilityUnsupported ErrorCode = "CAPABILITY_UNSUPPORTED"
	ErrorCodeUnknownAction         ErrorCode = "UNKNOWN_ACTION"
	ErrorCodeAuthTokenExpired      ErrorCode = "AUTH_TOKEN_EXPIRED"
	ErrorCodeAuthTokenInvalid      ErrorCode = "AUTH_TOKEN_INVALID"
	ErrorCodeSettingsStoreError    ErrorCode = "SETTINGS_STORE_ERROR"
)

// ErrorBody is the serialized error payload.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AppError is the base error type for both the HTTP surface and the
// dispatcher boundary, where errors are logged and dropped.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (err *AppError) Error() string {
	return err.Message
}

func (err *AppError) ErrorBody() ErrorBody {
	body := ErrorBody{
		Code:    err.Code,
		Message: err.Message,
	}
	if err.Details != nil {
		body.Details = err.Details
	}
	return body
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400, details)
}

func NewUnauthorizedError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeUnauthorized
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 401, nil)
}

func NewDeviceNotFoundError(room string) *AppError {
	return NewAppError(ErrorCodeDeviceNotFound, "No device found matching room: "+room, 404, map[string]any{
		"room": room,
	})
}

func NewMediaNotFoundError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeMediaNotFound, message, 404, details)
}

func NewBackendUnavailableError(backend string) *AppError {
	return NewAppError(ErrorCodeBackendUnavailable, "Backend is not configured: "+backend, 503, map[string]any{
		"backend": backend,
	})
}

func NewBackendError(message string) *AppError {
	return NewAppError(ErrorCodeBackendError, message, 502, nil)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500, nil)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err.Error())
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
