package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by AppError.
const (
	CodeEmptyPool          = "EMPTY_POOL"
	CodeExtraction         = "EXTRACTION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeConversionFailure  = "CONVERSION_FAILURE"
	CodeSerialization      = "SERIALIZATION_ERROR"
	CodeConfig             = "CONFIG_ERROR"
	CodeUnsupportedContent = "UNSUPPORTED_CONTENT"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrEmptyPool     = errors.New("no credentials configured")
	ErrExtraction    = errors.New("extraction failed")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrConversion    = errors.New("conversion failed")
	ErrSerialization = errors.New("serialization failed")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("resource not found")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ExtractionError marks a file-scoped failure to read its content.
func ExtractionError(message string, cause error) error {
	return NewAppError(CodeExtraction, message, joinCause(ErrExtraction, cause))
}

// ConversionFailure marks an exhausted retry budget for a file.
func ConversionFailure(message string, cause error) error {
	return NewAppError(CodeConversionFailure, message, joinCause(ErrConversion, cause))
}

// SerializationError marks a failure writing the output file.
func SerializationError(message string, cause error) error {
	return NewAppError(CodeSerialization, message, joinCause(ErrSerialization, cause))
}

// EmptyPoolError is returned when no credentials are configured.
func EmptyPoolError() error {
	return NewAppError(CodeEmptyPool, "credential pool is empty", ErrEmptyPool)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// joinCause keeps the sentinel reachable through errors.Is while preserving
// the underlying cause in the message.
func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	if errors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

var sentinels = []error{ErrEmptyPool, ErrExtraction, ErrRateLimited, ErrConversion, ErrSerialization, ErrInvalidInput, ErrNotFound}

// UserMessage renders err for a result record: the AppError message plus the
// underlying cause, without the error code or sentinel text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if ae.Cause == nil {
		return ae.Message
	}
	detail := ae.Cause.Error()
	for _, s := range sentinels {
		if detail == s.Error() {
			return ae.Message
		}
		detail = strings.TrimPrefix(detail, s.Error()+": ")
	}
	if strings.Contains(ae.Message, detail) {
		return ae.Message
	}
	return ae.Message + ": " + detail
}
