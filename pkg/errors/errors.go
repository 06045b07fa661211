package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a typed error code.
type ErrorCode string

const (
	// ErrorCodeInternal represents an internal server error.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeNotFound represents a resource not found error.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeBadRequest represents a bad request error.
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrorCodeUnauthorized represents an unauthorized error.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeValidation represents a validation error: an empty or invalid
	// page selection, deleting every page, bad tool parameters.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeLoad means the document library could not parse the input bytes.
	ErrorCodeLoad ErrorCode = "LOAD_ERROR"
	// ErrorCodeDocumentProcessing wraps any other document library failure.
	ErrorCodeDocumentProcessing ErrorCode = "DOCUMENT_PROCESSING_ERROR"
	// ErrorCodeNotImplemented is returned by tools that only exist as stubs.
	ErrorCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// ErrorCodePayloadTooLarge represents an upload over the configured limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrorCodeTimeout represents a timeout error.
	ErrorCodeTimeout ErrorCode = "TIMEOUT"
	// ErrorCodeServiceUnavailable represents a service unavailable error.
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error with code, message, and HTTP status.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Err        error
	Details    map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewAppErrorWithErr creates a new application error with an underlying error.
func NewAppErrorWithErr(code ErrorCode, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Code    ErrorCode              `json:"code"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Error:   e.Message,
		Details: e.Details,
	}
}

// ToHTTPStatus maps an error code to HTTP status code.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrorCodeBadRequest, ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeLoad:
		return http.StatusUnprocessableEntity
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeNotImplemented:
		return http.StatusNotImplemented
	case ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a standard error to an AppError.
// An AppError anywhere in the chain is returned as-is; anything else is
// wrapped as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewAppErrorWithErr(
		ErrorCodeInternal,
		"An internal error occurred",
		http.StatusInternalServerError,
		err,
	)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err carries ErrorCodeValidation.
func IsValidation(err error) bool { return CodeOf(err) == ErrorCodeValidation }

// IsLoad reports whether err carries ErrorCodeLoad.
func IsLoad(err error) bool { return CodeOf(err) == ErrorCodeLoad }

// IsDocumentProcessing reports whether err carries ErrorCodeDocumentProcessing.
func IsDocumentProcessing(err error) bool { return CodeOf(err) == ErrorCodeDocumentProcessing }

// IsNotImplemented reports whether err carries ErrorCodeNotImplemented.
func IsNotImplemented(err error) bool { return CodeOf(err) == ErrorCodeNotImplemented }

// Common error constructors

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *AppError {
	return NewAppError(ErrorCodeBadRequest, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, http.StatusNotFound)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrorCodeUnauthorized, message, http.StatusUnauthorized)
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternal, message, http.StatusInternalServerError)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidation, message, http.StatusBadRequest)
}

// NewLoadError creates a load error. The underlying parse failure is kept as
// the wrapped error and surfaced verbatim in the message.
func NewLoadError(message string, err error) *AppError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return NewAppErrorWithErr(ErrorCodeLoad, message, http.StatusUnprocessableEntity, err)
}

// NewDocumentProcessingError wraps a document library failure in operation op.
func NewDocumentProcessingError(op string, err error) *AppError {
	msg := fmt.Sprintf("%s failed", op)
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return NewAppErrorWithErr(ErrorCodeDocumentProcessing, msg, http.StatusInternalServerError, err).
		WithDetails(map[string]interface{}{"operation": op})
}

// NewNotImplementedError creates an error for a tool that is not available.
func NewNotImplementedError(message string) *AppError {
	return NewAppError(ErrorCodeNotImplemented, message, http.StatusNotImplemented)
}

// NewPayloadTooLargeError creates a payload too large error.
func NewPayloadTooLargeError(message string) *AppError {
	return NewAppError(ErrorCodePayloadTooLarge, message, http.StatusRequestEntityTooLarge)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *AppError {
	return NewAppError(ErrorCodeTimeout, message, http.StatusRequestTimeout)
}

// NewServiceUnavailableError reports a storage or queue dependency failure.
// err is kept for logs and never shown to the caller.
func NewServiceUnavailableError(message string, err error) *AppError {
	return NewAppErrorWithErr(ErrorCodeServiceUnavailable, message, http.StatusServiceUnavailable, err)
}
