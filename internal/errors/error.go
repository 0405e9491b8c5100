package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryRuntime     Category = "runtime"
	CategoryProtocol    Category = "protocol"
	CategoryPersistence Category = "persistence"
	CategoryConfig      Category = "config"
)

// Error is a structured error with a stable code and category.
type Error struct {
	// Code is a unique error identifier (e.g., "E002").
	Code string

	// Category is the error type (runtime, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
// The output always starts with the "[REFLOW <code>]" prefix.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[REFLOW %s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[REFLOW %s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Code:     "E000",
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
// If err is already an *Error it is returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	return New(code).Wrap(err)
}
