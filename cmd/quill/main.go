package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-lang/quill/quill"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "trace":
		return traceCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "YAML session config")
	debug := fs.Bool("debug", false, "enable debug mode")
	step := fs.Bool("step", false, "enable step mode (implies -debug)")
	depth := fs.Int("depth", 0, "max call stack depth (0 = default)")
	var breaks breakList
	fs.Var(&breaks, "break", "add a module:line breakpoint (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return errors.New("quill run: ops file required")
	}

	ctx, dbg, err := buildSession(*configPath, *debug, *step, *depth, breaks)
	if err != nil {
		return err
	}
	r, err := newRunner(ctx, dbg, moduleName(remaining[0]))
	if err != nil {
		return err
	}
	source, err := os.ReadFile(remaining[0])
	if err != nil {
		return fmt.Errorf("read ops file: %w", err)
	}

	runErr := r.Run(string(source))
	printSummary(os.Stdout, ctx)
	if runErr != nil {
		if quill.IsSessionTerminated(runErr) {
			return nil
		}
		return fmt.Errorf("execution failed: %w", runErr)
	}
	return nil
}

func traceCommand(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "YAML session config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return errors.New("quill trace: ops file required")
	}

	ctx, dbg, err := buildSession(*configPath, false, false, 0, nil)
	if err != nil {
		return err
	}
	dbg.Disable()
	r, err := newRunner(ctx, dbg, moduleName(remaining[0]))
	if err != nil {
		return err
	}
	source, err := os.ReadFile(remaining[0])
	if err != nil {
		return fmt.Errorf("read ops file: %w", err)
	}
	// An errored run still leaves an inspectable trace.
	_ = r.Run(string(source))

	program := tea.NewProgram(newInspectModel(ctx), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func buildSession(configPath string, debug, step bool, depth int, breaks breakList) (*quill.Context, *quill.Debugger, error) {
	cfg := quill.SessionConfig{}
	if configPath != "" {
		loaded, err := quill.LoadSessionConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if depth > 0 {
		cfg.MaxStackDepth = depth
	}
	if debug {
		cfg.Debug = true
	}
	if step {
		cfg.Debug = true
		cfg.Step = true
	}
	cfg.Breakpoints = append(cfg.Breakpoints, breaks...)
	return cfg.Apply()
}

func printSummary(out *os.File, ctx *quill.Context) {
	fmt.Fprintf(out, "status: %s\n", ctx.Status())
	if ctx.ExecutionTime() > 0 {
		fmt.Fprintf(out, "execution time: %s\n", ctx.ExecutionTime())
	}
	fmt.Fprintf(out, "events recorded: %d\n", len(ctx.GetEvents(0, 0)))
	if ctx.Status() == quill.StatusError {
		for _, ev := range ctx.GetEvents(quill.MaskOf(quill.EventError, quill.EventStackOverflow), 0) {
			if structured, ok := ev.Data.(*quill.Error); ok {
				fmt.Fprintf(out, "error: %s\n", structured)
			}
		}
		fmt.Fprintln(out, "stack trace:")
		for _, line := range ctx.StackTrace() {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] <opsfile>\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run    execute an ops file against a fresh context")
	fmt.Fprintln(os.Stderr, "  trace  execute, then browse the event history")
	fmt.Fprintln(os.Stderr, "  help   show this message")
	fmt.Fprintln(os.Stderr, "Run flags:")
	fmt.Fprintln(os.Stderr, "  -config <file>   YAML session config")
	fmt.Fprintln(os.Stderr, "  -debug           enable debug mode")
	fmt.Fprintln(os.Stderr, "  -step            enable step mode (implies -debug)")
	fmt.Fprintln(os.Stderr, "  -depth <n>       max call stack depth")
	fmt.Fprintln(os.Stderr, "  -break <m:l>     add a breakpoint (repeatable)")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

type breakList []string

func (l *breakList) String() string {
	return strings.Join(*l, ",")
}

func (l *breakList) Set(value string) error {
	if _, err := quill.ParseBreakpoint(value); err != nil {
		return err
	}
	*l = append(*l, value)
	return nil
}
