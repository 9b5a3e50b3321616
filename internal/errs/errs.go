// Package errs implements the error taxonomy used across the sandbox,
// pipeline, analyzer, and execution-service packages: fmt.Errorf-style
// wrapping with a typed Kind attached, so the execution service can map
// any failure to the correct ExecutionResult.Status without string
// matching.
package errs

import (
	"errors"
	"fmt"

	"codesandbox/internal/types"
)

// Kind is the taxonomy from the error handling design.
type Kind string

const (
	KindUnsupportedLanguage Kind = "unsupported_language"
	KindCompilationError    Kind = "compilation_error"
	KindExecutionError      Kind = "execution_error"
	KindTimeout             Kind = "timeout"
	KindSystem              Kind = "system"
	KindInvalidDependency   Kind = "invalid_dependency"
	KindResourceExceeded    Kind = "resource_exceeded"
	KindSandbox             Kind = "sandbox"
	KindValidation          Kind = "validation"
)

// Error is the concrete error type raised by this repository's core
// packages. It is never retried by any caller; the Supervisor never
// retries a child and the Service never retries a request.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that carries a wrapped cause and a Kind.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindSystem for errors
// that did not originate in this package (e.g. raw os/exec failures).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// Status maps a Kind to the terminal ExecutionResult status per the
// failure-mapping table.
func (k Kind) Status() types.Status {
	switch k {
	case KindCompilationError:
		return types.StatusCompilationError
	case KindTimeout:
		return types.StatusTimeout
	case KindSystem, KindSandbox:
		return types.StatusSystemError
	case KindUnsupportedLanguage, KindExecutionError, KindInvalidDependency,
		KindResourceExceeded, KindValidation:
		return types.StatusError
	default:
		return types.StatusError
	}
}

// StatusFor maps any error to the result status it should surface as.
func StatusFor(err error) types.Status {
	if err == nil {
		return types.StatusSuccess
	}
	return KindOf(err).Status()
}
