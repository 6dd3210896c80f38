package errors

import (
	"errors"
	"fmt"
)

// Scope attaches the failing module and operation to errors that reach a
// user-facing surface.
type Scope struct {
	module    string
	operation string
}

// NewScope returns a Scope for operation within module.
func NewScope(module, operation string) Scope {
	return Scope{module: module, operation: operation}
}

// Wrap returns err annotated with the scope and the notice shown to the user,
// or nil when err is nil.
func (s Scope) Wrap(err error, notice string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Module:      s.module,
		Operation:   s.operation,
		Cause:       err,
		UserMessage: notice,
	}
}

// WrappedError pairs an internal cause with the notice shown to the user.
type WrappedError struct {
	Module      string
	Operation   string // e.g. "export_pdf"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Module, e.Operation, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns the notice of the outermost WrappedError in err's
// chain, or err's own text when there is none.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var wrapped *WrappedError
	if errors.As(err, &wrapped) {
		return wrapped.UserMessage
	}
	return err.Error()
}
