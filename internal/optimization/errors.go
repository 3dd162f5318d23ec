package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes of the acquisition layer. They are
// wrapped in *Error values and should be tested with errors.Is.
var (
	// ErrTargetNotSet reports use of a policy that measures distance to a
	// target before the target was set.
	ErrTargetNotSet = errors.New("target not set")

	// ErrYbestNotSet reports use of an improvement-based policy before the
	// best observed value was set.
	ErrYbestNotSet = errors.New("ybest not set")

	// ErrWeightNotSet reports a performance evaluation before its scoring
	// weight was set.
	ErrWeightNotSet = errors.New("weight not set")

	// ErrBatchSize reports an acquisition call whose input batch does not
	// match what the policy supports.
	ErrBatchSize = errors.New("invalid batch size")

	// ErrOptimizationFailed reports that no restart of the bounded global
	// optimizer produced a finite minimum. Not recoverable at this layer.
	ErrOptimizationFailed = errors.New("optimization unsuccessful")
)

// Error is an optimization error carrying operation and component context.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	case e.Component != "":
		prefix = e.Component
	case e.Op != "":
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorf creates a new optimization error with a formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context. If err is nil,
// WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps an existing error with additional formatted context. If
// err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsOptimizationError checks if an error is of type *Error. If so it returns
// the error and true, otherwise nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
