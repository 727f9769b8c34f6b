package systemd

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the control core. Callers branch on the kind,
// never on message text.
type Kind string

// Error kinds.
const (
	KindInvalidLevel              Kind = "InvalidLevel"
	KindInvalidOperation          Kind = "InvalidOperation"
	KindInvalidArgument           Kind = "InvalidArgument"
	KindInvalidUnitName           Kind = "InvalidUnitName"
	KindInvalidServiceFileContent Kind = "InvalidServiceFileContent"
	KindPathTraversal             Kind = "PathTraversal"
	KindFileAlreadyExists         Kind = "FileAlreadyExists"
	KindExecutionFailure          Kind = "ExecutionFailure"
	KindSessionPrecondition       Kind = "SessionPrecondition"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInvalidLevel              = &Error{Kind: KindInvalidLevel}
	ErrInvalidOperation          = &Error{Kind: KindInvalidOperation}
	ErrInvalidArgument           = &Error{Kind: KindInvalidArgument}
	ErrInvalidUnitName           = &Error{Kind: KindInvalidUnitName}
	ErrInvalidServiceFileContent = &Error{Kind: KindInvalidServiceFileContent}
	ErrPathTraversal             = &Error{Kind: KindPathTraversal}
	ErrFileAlreadyExists         = &Error{Kind: KindFileAlreadyExists}
	ErrExecutionFailure          = &Error{Kind: KindExecutionFailure}
	ErrSessionPrecondition       = &Error{Kind: KindSessionPrecondition}
)

// Error represents a rejected or failed control operation.
type Error struct {
	Kind    Kind   // Failure class
	Subject string // What was rejected: a level, an operation, a unit name, a path
	Detail  string // Which rule failed
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Subject != "" {
		msg += fmt.Sprintf(" %q", e.Subject)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates a new Error with the given details.
func NewError(kind Kind, subject, detail string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Detail:  detail,
		Cause:   cause,
	}
}

// NewInvalidLevelError creates an InvalidLevel error.
func NewInvalidLevelError(level string) *Error {
	return NewError(KindInvalidLevel, level, `level must be "system" or "user"`, nil)
}

// NewInvalidOperationError creates an InvalidOperation error.
func NewInvalidOperationError(op string) *Error {
	return NewError(KindInvalidOperation, op, "operation is not permitted", nil)
}

// NewExecutionError creates an ExecutionFailure error for a command.
func NewExecutionError(command, detail string, cause error) *Error {
	return NewError(KindExecutionFailure, command, detail, cause)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsError checks if an error is a systemd Error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsSecurityError reports whether err is a security-class rejection
// (InvalidUnitName or PathTraversal) that callers should flag distinctly.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrInvalidUnitName) || errors.Is(err, ErrPathTraversal)
}

// ConnectionError represents an error connecting to systemd.
type ConnectionError struct {
	UserMode bool  // Whether this was a user or system connection attempt
	Cause    error // The underlying error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	mode := "system"
	if e.UserMode {
		mode = "user"
	}
	return fmt.Sprintf("failed to connect to systemd %s bus: %v", mode, e.Cause)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(userMode bool, cause error) *ConnectionError {
	return &ConnectionError{
		UserMode: userMode,
		Cause:    cause,
	}
}

// IsConnectionError checks if an error is a ConnectionError.
func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}
