package quill

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	debugAccentColor = lipgloss.Color("#3B82F6")
	debugErrorColor  = lipgloss.Color("#EF4444")
	debugMutedColor  = lipgloss.Color("#6B7280")
	debugValueColor  = lipgloss.Color("#10B981")

	debugHeaderStyle = lipgloss.NewStyle().
				Foreground(debugAccentColor).
				Bold(true)

	debugMutedStyle = lipgloss.NewStyle().
			Foreground(debugMutedColor)

	debugValueStyle = lipgloss.NewStyle().
			Foreground(debugValueColor)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(debugErrorColor)
)

// Debugger is a thin façade over a Context's instrumentation state:
// mode toggles, breakpoints, subscriptions, and the cooperative pause
// protocol. All state lives on the Context; the Debugger adds only
// the I/O used by the pause loop.
type Debugger struct {
	ctx  *Context
	in   io.Reader
	out  io.Writer
	keys *bufio.Reader
}

// NewDebugger attaches a debugger to ctx, reading commands from stdin
// and writing to stdout.
func NewDebugger(ctx *Context) *Debugger {
	return &Debugger{ctx: ctx, in: os.Stdin, out: os.Stdout}
}

// SetIO redirects the pause loop's command input and display output.
func (d *Debugger) SetIO(in io.Reader, out io.Writer) {
	d.in = in
	d.out = out
	d.keys = nil
}

func (d *Debugger) Enable()          { d.ctx.debugMode = true }
func (d *Debugger) Disable()         { d.ctx.debugMode = false }
func (d *Debugger) Enabled() bool    { return d.ctx.debugMode }
func (d *Debugger) EnableStepping()  { d.ctx.stepMode = true }
func (d *Debugger) DisableStepping() { d.ctx.stepMode = false }
func (d *Debugger) Stepping() bool   { return d.ctx.stepMode }

func (d *Debugger) AddBreakpoint(module string, line int) {
	d.ctx.breakpoints[breakpointKey{module: module, line: line}] = struct{}{}
}

func (d *Debugger) RemoveBreakpoint(module string, line int) {
	delete(d.ctx.breakpoints, breakpointKey{module: module, line: line})
}

func (d *Debugger) HasBreakpoint(module string, line int) bool {
	_, ok := d.ctx.breakpoints[breakpointKey{module: module, line: line}]
	return ok
}

// Breakpoints returns the registered breakpoints as "module:line"
// strings in sorted order.
func (d *Debugger) Breakpoints() []string {
	out := make([]string, 0, len(d.ctx.breakpoints))
	for key := range d.ctx.breakpoints {
		out = append(out, fmt.Sprintf("%s:%d", key.module, key.line))
	}
	sort.Strings(out)
	return out
}

func (d *Debugger) Subscribe(sub Subscriber) {
	for _, existing := range d.ctx.subscribers {
		if existing == sub {
			return
		}
	}
	d.ctx.subscribers = append(d.ctx.subscribers, sub)
}

func (d *Debugger) Unsubscribe(sub Subscriber) {
	alive := d.ctx.subscribers[:0:0]
	for _, existing := range d.ctx.subscribers {
		if existing != sub {
			alive = append(alive, existing)
		}
	}
	d.ctx.subscribers = alive
}

// MaybeStep is the evaluator's instrumentation hook. Without debug
// mode it does nothing. With debug mode it records a step event and,
// when stepping or on a matching breakpoint, blocks in the
// interactive pause loop until the operator resumes. The only non-nil
// return is the session-terminated error from the quit command.
func (d *Debugger) MaybeStep(message string, meta Meta) error {
	if !d.ctx.debugMode {
		return nil
	}
	d.ctx.AddEvent(EventStepComplete, map[string]Value{
		"message": NewString(message),
		"module":  NewString(meta.Module),
		"line":    NewInt(int64(meta.Line)),
	})
	if !d.ctx.stepMode && !d.HasBreakpoint(meta.Module, meta.Line) {
		return nil
	}
	d.ctx.stepCount++
	return d.pause(message, meta)
}

// pause freezes the evaluating goroutine on operator input. This is
// deliberately synchronous: its whole purpose is to halt exactly one
// execution for a human.
func (d *Debugger) pause(message string, meta Meta) error {
	fmt.Fprintln(d.out, debugHeaderStyle.Render(fmt.Sprintf("paused at %s:%d", meta.Module, meta.Line)))
	if message != "" {
		fmt.Fprintln(d.out, message)
	}
	d.printVariables()
	d.printTrace()
	for {
		fmt.Fprint(d.out, debugMutedStyle.Render("(c)ontinue (s)tep (v)ariables (t)race (h)elp (q)uit > "))
		key, err := d.readKey()
		if err != nil {
			return fmt.Errorf("quill: read debug command: %w", err)
		}
		fmt.Fprintln(d.out)
		switch key {
		case 'c', 's':
			// Step mode stays armed while enabled; both keys resume.
			return nil
		case 'v':
			d.printVariables()
		case 't':
			d.printTrace()
		case 'h':
			d.printHelp()
		case '\n', '\r', ' ':
		case 'q':
			fmt.Fprintln(d.out, debugErrorStyle.Render("session terminated"))
			return errSessionTerminated
		default:
			fmt.Fprintln(d.out, debugMutedStyle.Render(fmt.Sprintf("unknown command %q", key)))
		}
	}
}

// readKey reads a single command character, switching the terminal to
// raw mode when one is attached so no return key is needed.
func (d *Debugger) readKey() (byte, error) {
	if file, ok := d.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		state, err := term.MakeRaw(int(file.Fd()))
		if err != nil {
			return 0, err
		}
		defer term.Restore(int(file.Fd()), state)
		buf := make([]byte, 1)
		if _, err := file.Read(buf); err != nil {
			return 0, err
		}
		return buf[0], nil
	}
	if d.keys == nil {
		d.keys = bufio.NewReader(d.in)
	}
	return d.keys.ReadByte()
}

func (d *Debugger) printVariables() {
	vars := d.ctx.Variables()
	if len(vars) == 0 {
		fmt.Fprintln(d.out, debugMutedStyle.Render("no variables in scope"))
		return
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(d.out, "  %s = %s\n", name, debugValueStyle.Render(vars[name].String()))
	}
}

func (d *Debugger) printTrace() {
	trace := d.ctx.StackTrace()
	if len(trace) == 0 {
		fmt.Fprintln(d.out, debugMutedStyle.Render("call stack empty"))
		return
	}
	for _, line := range trace {
		fmt.Fprintf(d.out, "  %s\n", line)
	}
}

func (d *Debugger) printHelp() {
	fmt.Fprintln(d.out, "  c  continue execution")
	fmt.Fprintln(d.out, "  s  step (stepping stays armed while step mode is on)")
	fmt.Fprintln(d.out, "  v  show variables in the current frame")
	fmt.Fprintln(d.out, "  t  show the call stack")
	fmt.Fprintln(d.out, "  q  terminate the debug session")
}
