package quill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorRendering(t *testing.T) {
	err := &Error{Kind: ErrTypeError, Message: "bad argument", File: "main.ql", Line: 7}
	if got := err.Error(); got != "type_error: bad argument at main.ql:7" {
		t.Fatalf("rendered error: %q", got)
	}
	bare := NewError(ErrRuntime, "boom %d", 2)
	if got := bare.Error(); got != "runtime: boom 2" {
		t.Fatalf("rendered bare error: %q", got)
	}
}

func TestConvertPassesStructuredErrorsThrough(t *testing.T) {
	original := NewError(ErrBinding, "cannot bind")
	wrapped := fmt.Errorf("while evaluating: %w", original)
	if got := Convert(wrapped); got != original {
		t.Fatalf("structured error not preserved: %v", got)
	}
}

func TestConvertClassification(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{errors.New("stack overflow at depth 300"), ErrStackOverflow},
		{errors.New(`undefined variable "x"`), ErrUndefinedVariable},
		{errors.New("type error: not a list"), ErrTypeError},
		{errors.New("syntax problem near token"), ErrSyntax},
		{errors.New("no function clause matching"), ErrFunctionClause},
		{context.Canceled, ErrRuntime},
	}
	for _, tc := range cases {
		if got := Convert(tc.err); got.Kind != tc.want {
			t.Fatalf("Convert(%v): got kind %s want %s", tc.err, got.Kind, tc.want)
		}
	}
}

func TestConvertFallbackNeverPassesThrough(t *testing.T) {
	got := Convert(errors.New("some totally novel failure"))
	if got.Kind != ErrRuntime {
		t.Fatalf("fallback kind: %s", got.Kind)
	}
	if !strings.Contains(got.Message, "unknown runtime error") {
		t.Fatalf("fallback message: %q", got.Message)
	}
	if Convert(nil) != nil {
		t.Fatalf("Convert(nil) should be nil")
	}
}

func TestSessionTerminatedDetection(t *testing.T) {
	if !IsSessionTerminated(errSessionTerminated) {
		t.Fatalf("sentinel not detected")
	}
	wrapped := fmt.Errorf("unwinding: %w", errSessionTerminated)
	if !IsSessionTerminated(wrapped) {
		t.Fatalf("wrapped sentinel not detected")
	}
	if IsSessionTerminated(errors.New("unrelated")) {
		t.Fatalf("false positive")
	}
}
