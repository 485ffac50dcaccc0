package quill

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Status is the context lifecycle state. A context is single-use:
// there is no path back to StatusReady, and StatusError is sticky.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusHalted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Config controls context limits and instrumentation defaults.
type Config struct {
	// MaxStackDepth bounds the call stack. Pushing past it records a
	// stack overflow and moves the context to StatusError.
	MaxStackDepth int
	// MaxEvents bounds the event history; the oldest entries are
	// trimmed first. Negative means unbounded.
	MaxEvents int
	// RandomReader feeds ref generation. Defaults to crypto/rand.
	RandomReader io.Reader
}

// Context owns the full execution state for one evaluation: call
// stack, scoping, status and timing, and all debug/instrumentation
// state. It is single-writer; hosts wanting parallelism run one
// context per evaluation.
type Context struct {
	ref           string
	status        Status
	startTime     time.Time
	endTime       time.Time
	executionTime time.Duration

	callStack     []*Frame
	maxStackDepth int
	frameSeq      int
	random        io.Reader

	debugMode    bool
	stepMode     bool
	breakpoints  map[breakpointKey]struct{}
	subscribers  []Subscriber
	eventMask    EventMask
	eventHistory []Event
	maxEvents    int
	stepCount    int
}

type breakpointKey struct {
	module string
	line   int
}

// NewContext builds a fresh context in StatusReady with a generated
// ref and empty collections.
func NewContext(cfg Config) (*Context, error) {
	if cfg.MaxStackDepth <= 0 {
		cfg.MaxStackDepth = 256
	}
	if cfg.MaxEvents == 0 {
		cfg.MaxEvents = 4096
	}
	if cfg.RandomReader == nil {
		cfg.RandomReader = cryptorand.Reader
	}
	ref, err := randomRef(cfg.RandomReader, "ctx")
	if err != nil {
		return nil, fmt.Errorf("quill: generate context ref: %w", err)
	}
	return &Context{
		ref:           ref,
		status:        StatusReady,
		maxStackDepth: cfg.MaxStackDepth,
		maxEvents:     cfg.MaxEvents,
		random:        cfg.RandomReader,
		breakpoints:   make(map[breakpointKey]struct{}),
		eventMask:     MaskAll,
	}, nil
}

// MustNewContext is NewContext for tests and init paths where ref
// generation cannot reasonably fail.
func MustNewContext(cfg Config) *Context {
	ctx, err := NewContext(cfg)
	if err != nil {
		panic(err)
	}
	return ctx
}

func randomRef(r io.Reader, prefix string) (string, error) {
	raw := make([]byte, 6)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return prefix + "-" + hex.EncodeToString(raw), nil
}

func (c *Context) Ref() string          { return c.ref }
func (c *Context) Status() Status       { return c.status }
func (c *Context) StackDepth() int      { return len(c.callStack) }
func (c *Context) MaxStackDepth() int   { return c.maxStackDepth }
func (c *Context) StepCount() int       { return c.stepCount }
func (c *Context) EventMask() EventMask { return c.eventMask }

// SetEventMask replaces the event mask; kinds outside the mask are
// neither recorded nor dispatched.
func (c *Context) SetEventMask(m EventMask) { c.eventMask = m }

// ExecutionTime is populated by Halt (or stays zero until then).
func (c *Context) ExecutionTime() time.Duration { return c.executionTime }

// Start moves the context to StatusRunning and records the start
// time. Callers are expected to invoke it exactly once on a ready
// context; it is not internally validated.
func (c *Context) Start() {
	c.status = StatusRunning
	c.startTime = time.Now()
}

// Halt ends the execution: StatusHalted on a running context,
// preserved StatusError on a failed one. Execution time is computed
// either way.
func (c *Context) Halt() {
	if c.status != StatusError {
		c.status = StatusHalted
	}
	c.endTime = time.Now()
	if !c.startTime.IsZero() {
		c.executionTime = c.endTime.Sub(c.startTime)
	}
	c.AddEvent(EventHalt, map[string]Value{
		"status": NewString(c.status.String()),
	})
}

// terminal reports whether the context no longer accepts mutation.
func (c *Context) terminal() bool {
	return c.status == StatusHalted || c.status == StatusError
}

func (c *Context) mutationGuard(op string) {
	if c.terminal() {
		panic(fmt.Sprintf("quill: %s on %s context %s", op, c.status, c.ref))
	}
}

// CurrentFrame returns the tail of the call stack, or nil when empty.
func (c *Context) CurrentFrame() *Frame {
	if len(c.callStack) == 0 {
		return nil
	}
	return c.callStack[len(c.callStack)-1]
}

// PushFrame creates a frame whose parent defaults to the current
// frame and appends it to the call stack. Exceeding the depth limit
// moves the context to StatusError and records a stack overflow, but
// the over-limit frame is still installed so diagnostics can show
// what overflowed.
func (c *Context) PushFrame(kind FrameKind, opts FrameOptions) *Frame {
	c.mutationGuard("push frame")
	if opts.ParentRef == "" {
		if parent := c.CurrentFrame(); parent != nil {
			opts.ParentRef = parent.Ref()
		}
	}
	c.frameSeq++
	ref, err := randomRef(c.random, "frame")
	if err != nil {
		ref = fmt.Sprintf("frame-%s-%d", c.ref, c.frameSeq)
	}
	frame := newFrame(ref, kind, opts)
	overflow := len(c.callStack)+1 > c.maxStackDepth
	c.callStack = append(c.callStack, frame)
	if overflow {
		overflowErr := &Error{
			Kind:       ErrStackOverflow,
			Message:    fmt.Sprintf("stack overflow: depth %d exceeds limit %d", len(c.callStack), c.maxStackDepth),
			FrameRef:   frame.Ref(),
			ContextRef: c.ref,
			File:       opts.File,
			Line:       opts.Line,
		}
		c.status = StatusError
		c.AddEvent(EventStackOverflow, overflowErr)
		return frame
	}
	c.AddEvent(EventFramePush, map[string]Value{
		"kind": NewString(string(kind)),
		"name": NewString(opts.Name),
	})
	return frame
}

// PopFrame removes the tail frame. Popping an empty stack is a
// programmer error, not a recoverable outcome.
func (c *Context) PopFrame() {
	c.mutationGuard("pop frame")
	if len(c.callStack) == 0 {
		panic("quill: pop on empty call stack")
	}
	popped := c.callStack[len(c.callStack)-1]
	c.callStack = c.callStack[:len(c.callStack)-1]
	c.AddEvent(EventFramePop, map[string]Value{
		"kind": NewString(string(popped.Kind())),
		"name": NewString(popped.Name()),
	})
}

// frameByRef searches the live call stack for a frame with the given
// ref. Popped frames are by definition unreachable, which is what
// severs stale parent chains.
func (c *Context) frameByRef(ref string) *Frame {
	for i := len(c.callStack) - 1; i >= 0; i-- {
		if c.callStack[i].Ref() == ref {
			return c.callStack[i]
		}
	}
	return nil
}

// DeclareVariable binds name in the current frame. A name binds at
// most once per frame lifetime.
func (c *Context) DeclareVariable(name string, val Value) *Error {
	return c.declare(name, val, false)
}

// DeclareConstant is DeclareVariable with an immutable tag.
func (c *Context) DeclareConstant(name string, val Value) *Error {
	return c.declare(name, val, true)
}

func (c *Context) declare(name string, val Value, constant bool) *Error {
	c.mutationGuard("declare " + name)
	frame := c.CurrentFrame()
	if frame == nil {
		return &Error{Kind: ErrRuntime, Message: "no active frame", ContextRef: c.ref}
	}
	if !frame.declare(name, val, constant) {
		return &Error{
			Kind:       ErrInvalidDeclaration,
			Message:    fmt.Sprintf("variable %q already exists", name),
			FrameRef:   frame.Ref(),
			ContextRef: c.ref,
		}
	}
	c.AddEvent(EventVariable, map[string]Value{
		"name":     NewString(name),
		"value":    val,
		"constant": NewBool(constant),
	})
	return nil
}

// LookupVariable resolves name by walking the lexical frame chain:
// the current frame, then successive parents located by ref within
// the live call stack. A parent that is no longer resident ends the
// chain.
func (c *Context) LookupVariable(name string) (Value, *Error) {
	for frame := c.CurrentFrame(); frame != nil; frame = c.frameByRef(frame.ParentRef()) {
		if b, ok := frame.lookup(name); ok {
			return b.value, nil
		}
		if frame.ParentRef() == "" {
			break
		}
	}
	return NewNil(), &Error{
		Kind:       ErrUndefinedVariable,
		Message:    fmt.Sprintf("undefined variable %q", name),
		ContextRef: c.ref,
	}
}

// UpdateVariable walks the same chain as LookupVariable and replaces
// the binding in the first frame that contains the name, in place.
// Frames without the name are untouched.
//
// TODO: decide whether writes to constant bindings should be
// rejected; they are currently allowed.
func (c *Context) UpdateVariable(name string, val Value) *Error {
	c.mutationGuard("update " + name)
	for frame := c.CurrentFrame(); frame != nil; frame = c.frameByRef(frame.ParentRef()) {
		if frame.set(name, val) {
			return nil
		}
		if frame.ParentRef() == "" {
			break
		}
	}
	return &Error{
		Kind:       ErrUndefinedVariable,
		Message:    fmt.Sprintf("undefined variable %q", name),
		ContextRef: c.ref,
	}
}

// Variables snapshots the current frame's bindings, or nil with an
// empty stack. Legal on terminal contexts for post-mortem inspection.
func (c *Context) Variables() map[string]Value {
	frame := c.CurrentFrame()
	if frame == nil {
		return nil
	}
	return frame.Variables()
}

// AddError records err as an error event and moves the context to the
// terminal StatusError state.
func (c *Context) AddError(err *Error) {
	if err == nil {
		return
	}
	if err.ContextRef == "" {
		err.ContextRef = c.ref
	}
	if err.FrameRef == "" {
		if frame := c.CurrentFrame(); frame != nil {
			err.FrameRef = frame.Ref()
		}
	}
	c.status = StatusError
	c.AddEvent(EventError, err)
}

// StackTrace renders one line per frame in push order (outermost
// first), "kind name at file:line" with best-effort location data.
func (c *Context) StackTrace() []string {
	lines := make([]string, 0, len(c.callStack))
	for _, frame := range c.callStack {
		name := frame.name
		if name == "" {
			name = "<anonymous>"
		}
		file := frame.file
		if file == "" {
			file = "<unknown>"
		}
		lines = append(lines, fmt.Sprintf("%s %s at %s:%d", frame.kind, name, file, frame.line))
	}
	return lines
}

// FormatStackTrace joins StackTrace for display.
func (c *Context) FormatStackTrace() string {
	return strings.Join(c.StackTrace(), "\n")
}
