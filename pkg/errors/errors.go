// Package errors defines the service error taxonomy. Every failure that can
// reach a client wraps one of the sentinels below so that transports can map
// it to a stable HTTP status and machine-readable code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransport        = errors.New("method not allowed")
	ErrMissingInput     = errors.New("missing input")
	ErrMalformedRequest = errors.New("malformed request")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrExtraction       = errors.New("extraction failed")
	ErrEmptyContent     = errors.New("no text found")
	ErrEmptyIndex       = errors.New("empty index")
	ErrInternal         = errors.New("internal error")
)

// Stable codes returned to clients alongside the human-readable message.
const (
	CodeTransport        = "method_not_allowed"
	CodeMissingInput     = "missing_input"
	CodeMalformedRequest = "malformed_request"
	CodePayloadTooLarge  = "payload_too_large"
	CodeExtraction       = "extraction_failed"
	CodeEmptyContent     = "no_text_found"
	CodeEmptyIndex       = "empty_index"
	CodeInternal         = "internal_error"
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap attaches a sentinel to an underlying cause. The cause stays reachable
// through errors.Is/As on the returned error.
func Wrap(sentinel error, cause error, message string) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", sentinel, cause),
		Message:    message,
		StatusCode: statusFor(sentinel),
	}
}

// Convenience constructors carrying the user-facing messages.

func MissingFile() *AppError {
	return New(ErrMissingInput, http.StatusBadRequest, "No file uploaded (field name must be `file`)")
}

func MissingMessage() *AppError {
	return New(ErrMissingInput, http.StatusBadRequest, "No message provided")
}

func EmptyContent() *AppError {
	return New(ErrEmptyContent, http.StatusBadRequest, "No text found in file")
}

func EmptyIndex() *AppError {
	return New(ErrEmptyIndex, http.StatusBadRequest, "No documents indexed yet. Upload a document first.")
}

func MethodNotAllowed(method string) *AppError {
	return Newf(ErrTransport, http.StatusMethodNotAllowed, "Method %s not allowed", method)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return statusFor(err)
}

// Code returns the stable client-facing code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return CodeTransport
	case errors.Is(err, ErrMissingInput):
		return CodeMissingInput
	case errors.Is(err, ErrMalformedRequest):
		return CodeMalformedRequest
	case errors.Is(err, ErrPayloadTooLarge):
		return CodePayloadTooLarge
	case errors.Is(err, ErrExtraction):
		return CodeExtraction
	case errors.Is(err, ErrEmptyContent):
		return CodeEmptyContent
	case errors.Is(err, ErrEmptyIndex):
		return CodeEmptyIndex
	default:
		return CodeInternal
	}
}

// Message returns the client-facing message for err. Errors that do not
// carry an AppError are reported generically so internals do not leak.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if errors.Is(err, ErrInternal) || Code(err) == CodeInternal {
		return "internal error"
	}
	return err.Error()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrTransport):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrMalformedRequest),
		errors.Is(err, ErrEmptyContent), errors.Is(err, ErrEmptyIndex):
		return http.StatusBadRequest
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
