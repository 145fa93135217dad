package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies why a validation could not be attempted.
type ErrorCode string

const (
	ErrCodeDecode   ErrorCode = "DECODE_FAILED"
	ErrCodeOCR      ErrorCode = "OCR_FAILED"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Error is returned whenever a validation aborts. A failed validation never
// yields a Result; a reject decision is a successful outcome, not an Error.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewDecodeError reports input bytes that are not a usable image.
func NewDecodeError(cause error) *Error {
	return &Error{Code: ErrCodeDecode, Message: "input could not be decoded as an image", Cause: cause}
}

// NewOCRError reports a failure of the text extraction step.
func NewOCRError(cause error) *Error {
	return &Error{Code: ErrCodeOCR, Message: "text extraction failed", Cause: cause}
}

// NewTimeoutError reports that the caller's deadline expired.
func NewTimeoutError(cause error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "validation deadline exceeded", Cause: cause}
}

// fromContext maps a context error to a pipeline error.
func fromContext(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return &Error{Code: ErrCodeCanceled, Message: "validation canceled", Cause: err}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not a pipeline error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
