// Package fault holds the structured failure record shared by the pagination
// and mutation layers, and the sentinel errors classifying request failures.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied marks a denial raised by a permission provider.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound marks a lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected by a validator.
	ErrValidation = errors.New("validation failed")
	// ErrTypeMismatch marks a collaborator returning a value of the wrong shape.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNotImplemented marks a missing extension hook.
	ErrNotImplemented = errors.New("not implemented")
)

// Error is a field-level failure. A nil Field means the failure is not
// attached to any input field.
type Error struct {
	Field    *string  `json:"field"`
	Messages []string `json:"messages"`
}

// New returns an Error for field. An empty field name yields a field-less error.
func New(field string, messages ...string) Error {
	e := Error{Messages: append([]string(nil), messages...)}
	if field != "" {
		e.Field = &field
	}
	return e
}

// Generic returns a field-less Error carrying messages.
func Generic(messages ...string) Error {
	return Error{Messages: append([]string(nil), messages...)}
}

// FieldName returns the field name or "" when the error is field-less.
func (e Error) FieldName() string {
	if e.Field == nil {
		return ""
	}
	return *e.Field
}

func (e Error) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Field == nil {
		return msg
	}
	return *e.Field + ": " + msg
}

// List is an ordered sequence of field-level failures.
type List []Error

// Add appends one error.
func (l *List) Add(field string, messages ...string) {
	*l = append(*l, New(field, messages...))
}

// Fields returns the field names in order, with "" for field-less entries.
func (l List) Fields() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.FieldName()
	}
	return out
}

// ForField returns the first error attached to field.
func (l List) ForField(field string) (Error, bool) {
	for _, e := range l {
		if e.FieldName() == field {
			return e, true
		}
	}
	return Error{}, false
}

// ValidationError carries a non-empty failure list through an error return.
type ValidationError struct {
	Errors List
}

// Validation wraps errs as an error. An empty list returns nil.
func Validation(errs List) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AsList extracts the failure list from err when it is a validation error.
func AsList(err error) (List, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors, true
	}
	return nil, false
}

// NotFound returns the lookup-miss failure reported on "id".
func NotFound(typeName string, value any) List {
	return List{New("id", fmt.Sprintf("%s with id %v does not exist", typeName, value))}
}

// TypeMismatchError reports a value that does not have the expected shape.
type TypeMismatchError struct {
	Expected string
	Received any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("resolved value from the connection field has to be iterable or instance of %s, received %#v", e.Expected, e.Received)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
