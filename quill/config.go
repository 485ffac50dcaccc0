package quill

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SessionConfig is the on-disk form of a debugging/run session:
// context limits, event selection, debug modes, and breakpoints.
type SessionConfig struct {
	MaxStackDepth int      `yaml:"max_stack_depth"`
	MaxEvents     int      `yaml:"max_events"`
	Events        []string `yaml:"events"`
	Debug         bool     `yaml:"debug"`
	Step          bool     `yaml:"step"`
	Breakpoints   []string `yaml:"breakpoints"`
}

// LoadSessionConfig parses a YAML session file.
func LoadSessionConfig(path string) (SessionConfig, error) {
	var cfg SessionConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("quill: read session config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("quill: parse session config: %w", err)
	}
	if _, err := cfg.Mask(); err != nil {
		return cfg, err
	}
	if _, err := cfg.ParsedBreakpoints(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Mask resolves the configured event kind names. An empty list means
// everything enabled.
func (c SessionConfig) Mask() (EventMask, error) {
	if len(c.Events) == 0 {
		return MaskAll, nil
	}
	byName := make(map[string]EventKind, len(eventKindNames))
	for kind, name := range eventKindNames {
		byName[name] = kind
	}
	mask := EventMask(0)
	for _, name := range c.Events {
		kind, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("quill: unknown event kind %q", name)
		}
		mask = mask.With(kind)
	}
	return mask, nil
}

// Breakpoint is a parsed module:line pair.
type Breakpoint struct {
	Module string
	Line   int
}

// ParsedBreakpoints parses the "module:line" breakpoint entries.
func (c SessionConfig) ParsedBreakpoints() ([]Breakpoint, error) {
	out := make([]Breakpoint, 0, len(c.Breakpoints))
	for _, entry := range c.Breakpoints {
		bp, err := ParseBreakpoint(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}

// ParseBreakpoint parses one "module:line" spec.
func ParseBreakpoint(spec string) (Breakpoint, error) {
	idx := strings.LastIndex(spec, ":")
	if idx <= 0 || idx == len(spec)-1 {
		return Breakpoint{}, fmt.Errorf("quill: breakpoint %q must be module:line", spec)
	}
	line, err := strconv.Atoi(spec[idx+1:])
	if err != nil || line <= 0 {
		return Breakpoint{}, fmt.Errorf("quill: breakpoint %q has invalid line", spec)
	}
	return Breakpoint{Module: spec[:idx], Line: line}, nil
}

// Apply builds a context and debugger configured per the session.
func (c SessionConfig) Apply() (*Context, *Debugger, error) {
	ctx, err := NewContext(Config{
		MaxStackDepth: c.MaxStackDepth,
		MaxEvents:     c.MaxEvents,
	})
	if err != nil {
		return nil, nil, err
	}
	mask, err := c.Mask()
	if err != nil {
		return nil, nil, err
	}
	ctx.SetEventMask(mask)
	dbg := NewDebugger(ctx)
	if c.Debug {
		dbg.Enable()
	}
	if c.Step {
		dbg.EnableStepping()
	}
	bps, err := c.ParsedBreakpoints()
	if err != nil {
		return nil, nil, err
	}
	for _, bp := range bps {
		dbg.AddBreakpoint(bp.Module, bp.Line)
	}
	return ctx, dbg, nil
}
