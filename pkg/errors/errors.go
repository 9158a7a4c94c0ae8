package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies the known failure classes in the system.
type ErrorCode int

const (
	Unknown ErrorCode = iota
	InvalidInput
	ValidationFailed
	ResourceNotFound
	Canceled

	// Catalog and cache loading errors.
	CatalogParseFailed
	CatalogInvalid
	CacheNotFound
	CacheParseFailed

	// Rendering errors.
	MissingTemplate
	EmptyData
	TemplateFailed
)

// Error is a structured error carrying a code, an optional wrapped
// cause, and structured context fields.
type Error struct {
	code     ErrorCode
	message  string
	original error
	fields   Fields
}

// Fields carries structured data about the error.
type Fields map[string]interface{}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)

	if e.original != nil {
		b.WriteString(": ")
		b.WriteString(e.original.Error())
	}

	if len(e.fields) > 0 {
		b.WriteString(" [")
		for k, v := range e.fields {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
		b.WriteString("]")
	}

	return strings.TrimSpace(b.String())
}

func (e *Error) Unwrap() error {
	return e.original
}

func (e *Error) Code() ErrorCode {
	return e.code
}

// Fields returns the structured context attached to the error.
func (e *Error) Fields() Fields {
	return e.fields
}

// New creates a new error with a code and message.
func New(code ErrorCode, message string) error {
	return &Error{
		code:    code,
		message: message,
	}
}

// Wrap wraps an existing error with a code and additional context.
// Returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		code:     code,
		message:  message,
		original: err,
	}
}

// WithFields attaches structured context to an error. If the error is
// already an *Error the fields are merged, newer keys winning.
func WithFields(err error, fields Fields) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		merged := make(Fields, len(e.fields)+len(fields))
		for k, v := range e.fields {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
		return &Error{
			code:     e.code,
			message:  e.message,
			original: e.original,
			fields:   merged,
		}
	}

	return &Error{
		code:     Unknown,
		message:  err.Error(),
		original: err,
		fields:   fields,
	}
}

// Code extracts the ErrorCode from an error chain, returning Unknown
// for errors that did not originate from this package.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return Unknown
}

// Is reports whether the error chain contains an *Error with the code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}
