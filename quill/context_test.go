package quill

import (
	"strings"
	"testing"
)

func newTestContext(t *testing.T, cfg Config) *Context {
	t.Helper()
	ctx, err := NewContext(cfg)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return ctx
}

func mustDeclare(t *testing.T, ctx *Context, name string, val Value) {
	t.Helper()
	if err := ctx.DeclareVariable(name, val); err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
}

func TestPushPopBalance(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()

	for i := 0; i < 5; i++ {
		ctx.PushFrame(FrameCall, FrameOptions{Name: "fn"})
	}
	if got := ctx.StackDepth(); got != 5 {
		t.Fatalf("depth after pushes: got %d want 5", got)
	}
	for i := 0; i < 5; i++ {
		ctx.PopFrame()
	}
	if ctx.StackDepth() != 0 {
		t.Fatalf("expected empty stack, depth %d", ctx.StackDepth())
	}
	if ctx.CurrentFrame() != nil {
		t.Fatalf("expected nil current frame after draining the stack")
	}
}

func TestStackOverflowInstallsFrameAndFailsContext(t *testing.T) {
	ctx := newTestContext(t, Config{MaxStackDepth: 2})
	ctx.Start()

	ctx.PushFrame(FrameCall, FrameOptions{Name: "a", File: "main.ql", Line: 1})
	ctx.PushFrame(FrameCall, FrameOptions{Name: "b", File: "main.ql", Line: 2})
	if ctx.Status() != StatusRunning {
		t.Fatalf("status before overflow: %v", ctx.Status())
	}

	c := ctx.PushFrame(FrameCall, FrameOptions{Name: "c", File: "main.ql", Line: 3})
	if ctx.Status() != StatusError {
		t.Fatalf("status after overflow: got %v want error", ctx.Status())
	}
	if ctx.StackDepth() != 3 {
		t.Fatalf("over-limit frame not installed, depth %d", ctx.StackDepth())
	}
	if ctx.CurrentFrame() != c {
		t.Fatalf("current frame is not the overflowing frame")
	}

	events := ctx.GetEvents(0, 1)
	if len(events) != 1 || events[0].Kind != EventStackOverflow {
		t.Fatalf("latest event: %+v, want stack_overflow", events)
	}

	trace := ctx.StackTrace()
	if len(trace) != 3 {
		t.Fatalf("trace length: got %d want 3", len(trace))
	}
	for i, want := range []string{"a", "b", "c"} {
		if !strings.Contains(trace[i], want) {
			t.Fatalf("trace[%d] = %q, want frame %q", i, trace[i], want)
		}
	}
}

func TestDeclareRejectsRebinding(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	ctx.PushFrame(FrameCall, FrameOptions{})

	mustDeclare(t, ctx, "x", NewInt(1))
	err := ctx.DeclareVariable("x", NewInt(2))
	if err == nil || err.Kind != ErrInvalidDeclaration {
		t.Fatalf("redeclare: got %v, want invalid_declaration", err)
	}
	if !strings.Contains(err.Message, "already exists") {
		t.Fatalf("redeclare message: %q", err.Message)
	}

	got, lookupErr := ctx.LookupVariable("x")
	if lookupErr != nil {
		t.Fatalf("lookup after failed redeclare: %v", lookupErr)
	}
	if !got.Equal(NewInt(1)) {
		t.Fatalf("original binding lost: got %v", got)
	}
}

func TestDeclareWithoutFrame(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	if err := ctx.DeclareVariable("x", NewInt(1)); err == nil {
		t.Fatalf("expected no-active-frame error")
	}
}

func TestLookupWalksFrameChain(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()

	ctx.PushFrame(FrameCall, FrameOptions{Name: "outer"})
	mustDeclare(t, ctx, "x", NewInt(1))
	ctx.PushFrame(FrameBlock, FrameOptions{Name: "inner"})

	got, err := ctx.LookupVariable("x")
	if err != nil {
		t.Fatalf("lookup through parent: %v", err)
	}
	if !got.Equal(NewInt(1)) {
		t.Fatalf("lookup value: %v", got)
	}
}

func TestPoppedParentSeversChain(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()

	a := ctx.PushFrame(FrameCall, FrameOptions{Name: "a"})
	mustDeclare(t, ctx, "x", NewInt(1))
	ctx.PopFrame()

	// b captures a as its lexical parent even though a is gone.
	ctx.PushFrame(FrameCall, FrameOptions{Name: "b", ParentRef: a.Ref()})
	_, err := ctx.LookupVariable("x")
	if err == nil || err.Kind != ErrUndefinedVariable {
		t.Fatalf("lookup through dead parent: got %v, want undefined_variable", err)
	}
}

func TestUpdateMutatesOwningFrameOnly(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()

	ctx.PushFrame(FrameCall, FrameOptions{Name: "a"})
	mustDeclare(t, ctx, "x", NewInt(1))
	b := ctx.PushFrame(FrameBlock, FrameOptions{Name: "b"})
	ctx.PushFrame(FrameBlock, FrameOptions{Name: "c"})

	if err := ctx.UpdateVariable("x", NewInt(42)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := b.lookup("x"); ok {
		t.Fatalf("intermediate frame gained a binding")
	}

	got, err := ctx.LookupVariable("x")
	if err != nil || !got.Equal(NewInt(42)) {
		t.Fatalf("updated value: %v (%v)", got, err)
	}

	if err := ctx.UpdateVariable("missing", NewInt(0)); err == nil || err.Kind != ErrUndefinedVariable {
		t.Fatalf("update of unknown name: got %v", err)
	}
}

func TestConstantsResolveLikeBindings(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	ctx.PushFrame(FrameCall, FrameOptions{})

	if err := ctx.DeclareConstant("limit", NewInt(10)); err != nil {
		t.Fatalf("declare constant: %v", err)
	}
	got, err := ctx.LookupVariable("limit")
	if err != nil || !got.Equal(NewInt(10)) {
		t.Fatalf("constant lookup: %v (%v)", got, err)
	}
	if err := ctx.DeclareConstant("limit", NewInt(11)); err == nil {
		t.Fatalf("constant redeclare should fail")
	}
}

func TestStatusMachine(t *testing.T) {
	ctx := newTestContext(t, Config{})
	if ctx.Status() != StatusReady {
		t.Fatalf("initial status: %v", ctx.Status())
	}
	ctx.Start()
	if ctx.Status() != StatusRunning {
		t.Fatalf("status after start: %v", ctx.Status())
	}
	ctx.Halt()
	if ctx.Status() != StatusHalted {
		t.Fatalf("status after halt: %v", ctx.Status())
	}
	if ctx.ExecutionTime() < 0 {
		t.Fatalf("execution time not recorded")
	}
}

func TestErrorStatusIsSticky(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	ctx.AddError(NewError(ErrRuntime, "boom"))
	if ctx.Status() != StatusError {
		t.Fatalf("status after AddError: %v", ctx.Status())
	}
	ctx.Halt()
	if ctx.Status() != StatusError {
		t.Fatalf("halt overwrote error status: %v", ctx.Status())
	}

	events := ctx.GetEvents(MaskOf(EventError), 0)
	if len(events) != 1 {
		t.Fatalf("error event count: %d", len(events))
	}
	recorded, ok := events[0].Data.(*Error)
	if !ok || recorded.Message != "boom" {
		t.Fatalf("recorded error: %+v", events[0].Data)
	}
	if recorded.ContextRef != ctx.Ref() {
		t.Fatalf("error missing context provenance")
	}
}

func TestTerminalContextRejectsMutation(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	ctx.PushFrame(FrameCall, FrameOptions{Name: "a"})
	mustDeclare(t, ctx, "x", NewInt(1))
	ctx.AddError(NewError(ErrRuntime, "boom"))

	defer func() {
		if recover() == nil {
			t.Fatalf("push on error context should panic")
		}
	}()

	// Reads stay legal post-mortem.
	if len(ctx.StackTrace()) != 1 {
		t.Fatalf("frames discarded after error")
	}
	if _, err := ctx.LookupVariable("x"); err != nil {
		t.Fatalf("post-mortem lookup: %v", err)
	}

	ctx.PushFrame(FrameCall, FrameOptions{})
}

func TestPopEmptyStackPanics(t *testing.T) {
	ctx := newTestContext(t, Config{})
	ctx.Start()
	defer func() {
		if recover() == nil {
			t.Fatalf("pop on empty stack should panic")
		}
	}()
	ctx.PopFrame()
}

func TestUniqueRefs(t *testing.T) {
	ctx := newTestContext(t, Config{})
	other := newTestContext(t, Config{})
	if ctx.Ref() == other.Ref() {
		t.Fatalf("context refs collide: %s", ctx.Ref())
	}
	ctx.Start()
	a := ctx.PushFrame(FrameCall, FrameOptions{})
	b := ctx.PushFrame(FrameCall, FrameOptions{})
	if a.Ref() == b.Ref() {
		t.Fatalf("frame refs collide: %s", a.Ref())
	}
	if b.ParentRef() != a.Ref() {
		t.Fatalf("default parent: got %s want %s", b.ParentRef(), a.Ref())
	}
}
