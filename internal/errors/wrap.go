package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper tags errors of one operation with a message safe to show to
// API clients. Build one per operation:
//
//	wrapper := errors.NewWrapper("planner", "plan_periods")
//	return wrapper.Wrap(err, "Impossible de générer les périodes")
type ErrorWrapper struct {
	module    string
	operation string
}

func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{module: module, operation: operation}
}

// Wrap returns nil for a nil err.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Module:      w.module,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf is Wrap with a formatted user message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	return w.Wrap(err, fmt.Sprintf(format, args...))
}

// WrappedError keeps the cause for logs and errors.Is, and the user message
// for the response body.
type WrappedError struct {
	Module      string // e.g. "planner"
	Operation   string // e.g. "materialize_school_year"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message of the outermost WrappedError in the chain
// that has one.
func UserMessage(err error) (string, bool) {
	var wrapped *WrappedError
	if errors.As(err, &wrapped) && wrapped.UserMessage != "" {
		return wrapped.UserMessage, true
	}
	return "", false
}

// GetUserMessage falls back to err.Error() when no user message is attached.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := UserMessage(err); ok {
		return msg
	}
	return err.Error()
}
