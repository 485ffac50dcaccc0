package main

import (
	"strings"
	"testing"

	"github.com/quill-lang/quill/quill"
)

func newTestRunner(t *testing.T, cfg quill.SessionConfig) (*runner, *quill.Context) {
	t.Helper()
	ctx, dbg, err := cfg.Apply()
	if err != nil {
		t.Fatalf("apply session: %v", err)
	}
	r, err := newRunner(ctx, dbg, "test")
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r, ctx
}

func TestRunnerExecutesOps(t *testing.T) {
	r, ctx := newTestRunner(t, quill.SessionConfig{})
	err := r.Run(`
# greet the world
frame call main
let greeting string_concat "hello, " "world"
let items list 1 2 3
let first head items
const tag symbol :release
pop
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ctx.Status() != quill.StatusHalted {
		t.Fatalf("status after run: %v", ctx.Status())
	}
}

func TestRunnerVariableFlow(t *testing.T) {
	r, ctx := newTestRunner(t, quill.SessionConfig{})
	err := r.Run(`
frame call main
let flag bool true
set flag not flag
let check nil? flag
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Frames are retained until pop; inspect the live binding.
	got, lookupErr := ctx.LookupVariable("flag")
	if lookupErr != nil || !got.Equal(quill.NewBool(false)) {
		t.Fatalf("flag after set: %v (%v)", got, lookupErr)
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	r, ctx := newTestRunner(t, quill.SessionConfig{})
	err := r.Run(`
frame call main
let x head missing_list
`)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if ctx.Status() != quill.StatusError {
		t.Fatalf("status after failure: %v", ctx.Status())
	}
	events := ctx.GetEvents(quill.MaskOf(quill.EventError), 0)
	if len(events) != 1 {
		t.Fatalf("error events: %d", len(events))
	}
}

func TestRunnerStackOverflow(t *testing.T) {
	r, ctx := newTestRunner(t, quill.SessionConfig{MaxStackDepth: 2})
	err := r.Run(`
frame call a
frame call b
frame call c
`)
	if err == nil || !strings.Contains(err.Error(), "stack") {
		t.Fatalf("overflow error: %v", err)
	}
	if ctx.Status() != quill.StatusError {
		t.Fatalf("status: %v", ctx.Status())
	}
	if ctx.StackDepth() != 3 {
		t.Fatalf("frames not retained for diagnostics: %d", ctx.StackDepth())
	}
}

func TestRunnerRejectsUnknownStatement(t *testing.T) {
	r, _ := newTestRunner(t, quill.SessionConfig{})
	err := r.Run("jump high")
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	structured := quill.Convert(err)
	if structured.Kind != quill.ErrSyntax {
		t.Fatalf("kind: %s", structured.Kind)
	}
}

func TestTokenize(t *testing.T) {
	tokens, err := tokenize(`let s string_concat "two words" other`)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []string{"let", "s", "string_concat", `"two words"`, "other"}
	if len(tokens) != len(want) {
		t.Fatalf("token count: %v", tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], want[i])
		}
	}
	if _, err := tokenize(`let s string "unterminated`); err == nil {
		t.Fatalf("unterminated string accepted")
	}
}
