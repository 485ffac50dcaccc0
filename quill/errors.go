package quill

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a runtime failure. The set is open: hosts may
// introduce their own kinds, but the runtime only ever produces the
// constants below.
type ErrorKind string

const (
	ErrRuntime            ErrorKind = "runtime"
	ErrStackOverflow      ErrorKind = "stack_overflow"
	ErrUndefinedVariable  ErrorKind = "undefined_variable"
	ErrTypeError          ErrorKind = "type_error"
	ErrSyntax             ErrorKind = "syntax"
	ErrReference          ErrorKind = "reference"
	ErrFunctionClause     ErrorKind = "function_clause"
	ErrBinding            ErrorKind = "binding"
	ErrMatch              ErrorKind = "match"
	ErrInvalidDeclaration ErrorKind = "invalid_declaration"
)

// Error is the structured failure value used throughout the runtime.
// Constructing one never fails and never mutates a Context; severity
// is decided by whoever records it (Context.AddError escalates the
// whole execution, validation paths just return it).
type Error struct {
	Kind       ErrorKind
	Message    string
	FrameRef   string
	ContextRef string
	File       string
	Line       int
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.File != "" && e.Line > 0 {
		fmt.Fprintf(&b, " at %s:%d", e.File, e.Line)
	} else if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	return b.String()
}

// NewError builds a bare structured error with no provenance.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var errSessionTerminated = errors.New("debug session terminated")

// IsSessionTerminated reports whether err is the debugger's quit
// signal. It unwinds past ordinary error handling: evaluators must
// propagate it untouched rather than converting or recovering it.
func IsSessionTerminated(err error) bool {
	return errors.Is(err, errSessionTerminated)
}

// Convert normalizes an arbitrary failure into a structured *Error.
// Rules are ordered; the final case is a guaranteed fallback so no
// unrecognized failure passes through under another identity.
func Convert(err error) *Error {
	if err == nil {
		return nil
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	msg := err.Error()
	switch {
	case errors.Is(err, errSessionTerminated):
		return &Error{Kind: ErrRuntime, Message: msg}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: ErrRuntime, Message: "execution canceled: " + msg}
	case strings.Contains(msg, "stack overflow"):
		return &Error{Kind: ErrStackOverflow, Message: msg}
	case strings.Contains(msg, "undefined variable"), strings.Contains(msg, "not defined"):
		return &Error{Kind: ErrUndefinedVariable, Message: msg}
	case strings.Contains(msg, "type error"), strings.Contains(msg, "expects"):
		return &Error{Kind: ErrTypeError, Message: msg}
	case strings.Contains(msg, "syntax"):
		return &Error{Kind: ErrSyntax, Message: msg}
	case strings.Contains(msg, "no function clause"), strings.Contains(msg, "unsupported operation"):
		return &Error{Kind: ErrFunctionClause, Message: msg}
	default:
		return &Error{Kind: ErrRuntime, Message: "unknown runtime error: " + msg}
	}
}
