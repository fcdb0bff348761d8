// Package apperror defines the typed failures shared by every layer.
//
// Callers never compare error strings. They ask errors.Is(err, apperror.ErrX):
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// An AppError carries a sentinel (what KIND of failure) and, optionally, the
// underlying cause (the driver or codec error). Both stay reachable through
// Unwrap, so errors.Is works for the sentinel and errors.As for the cause.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrStorage           = errors.New("storage error")
	ErrIngestion         = errors.New("ingestion error")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

type AppError struct {
	Err     error  // sentinel
	Cause   error  // optional underlying error
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause.
// errors.Is and errors.As walk every element of the returned slice.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Storage wraps a storage engine failure. op names the operation, e.g.
// "sqlite: creating project".
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Cause:   cause,
		Message: fmt.Sprintf("%s: %v", op, cause),
	}
}

// Ingestion reports a source image that could not be read or a stored image
// that could not be written.
func Ingestion(path string, cause error) *AppError {
	return &AppError{
		Err:     ErrIngestion,
		Cause:   cause,
		Message: fmt.Sprintf("ingesting %s: %v", path, cause),
	}
}

// UnsupportedFormat reports a source file that is not a decodable image.
// It also matches ErrIngestion, since every format failure is an ingestion failure.
func UnsupportedFormat(path string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnsupportedFormat,
		Cause:   errors.Join(ErrIngestion, cause),
		Message: fmt.Sprintf("unsupported image %s: %v", path, cause),
	}
}
