package error

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory classifies errors by their nature and appropriate handling
// strategy (spec.md §7).
type ErrorCategory int

const (
	// CategoryTimeout represents a timed acquisition that did not succeed
	// before its deadline. Expected, retriable, not a programmer error.
	CategoryTimeout ErrorCategory = iota

	// CategoryMisuse represents a violation of the package's calling
	// contract by its caller — releasing a lock the calling thread does
	// not own, for instance. Not retriable; the caller has a bug.
	CategoryMisuse

	// CategoryDeadlock represents a deadlock that was detected but could
	// not be resolved because no candidate victim was suspendable (every
	// thread in the cycle holds at least one non-lock SchedulingRule).
	CategoryDeadlock

	// CategoryHook represents a LockHook implementation that panicked.
	// The panic is recovered and logged; this category marks the
	// resulting error if one is surfaced to a caller.
	CategoryHook

	// CategoryInternal represents a violated invariant inside the
	// package itself. Once raised, the LockManager that raised it
	// considers its own bookkeeping untrustworthy and disables deadlock
	// detection for its remaining lifetime (spec.md §9's "log, then stop
	// trusting the graph" resolution).
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryTimeout:
		return "timeout"
	case CategoryMisuse:
		return "misuse"
	case CategoryDeadlock:
		return "deadlock"
	case CategoryHook:
		return "hook"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// LockError is a structured error with rich context information, carried
// over from the teacher's DBError (pkg/error originally named its errors
// after the database they came from; this package now names them after
// the coordinator).
type LockError struct {
	// Code is a unique identifier for this error type, e.g. "LOCK_NOT_OWNED".
	Code string

	// Category classifies the error for appropriate handling strategy.
	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides additional context about the specific error instance.
	Detail string

	// Operation identifies the operation being performed when the error
	// occurred, e.g. "Acquire", "Release".
	Operation string

	// Component identifies the system component where the error
	// originated, e.g. "OrderedLock", "LockManager".
	Component string

	// Cause is the underlying error that triggered this one, if any.
	Cause error

	// Stack contains the call stack captured when this error was created.
	Stack []uintptr
}

// New creates a new LockError with the specified category, code, and message.
func New(category ErrorCategory, code, message string) *LockError {
	return &LockError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Wrap wraps an existing error with coordinator-specific context. If err is
// already a *LockError, it is enriched in place (only filling fields that
// are still unset) rather than double-wrapped.
func Wrap(err error, code, operation, component string) *LockError {
	if err == nil {
		return nil
	}

	if lockErr, ok := err.(*LockError); ok {
		if lockErr.Operation == "" {
			lockErr.Operation = operation
		}
		if lockErr.Component == "" {
			lockErr.Component = component
		}
		return lockErr
	}

	return &LockError{
		Code:      code,
		Category:  CategoryInternal,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// captureStack captures the current call stack, skipping the frames for
// captureStack itself and its immediate caller (New/Wrap).
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the standard Go error interface.
//
// The format follows the pattern:
// [CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *LockError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As.
func (e *LockError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for debugging.
func (e *LockError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("  %s\n    %s:%d\n", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}

	return b.String()
}
