package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/quill-lang/quill/quill"
)

// runner drives a line-oriented ops file through the runtime. It is
// the embedding host: one frame push/pop bracket per `frame`/`pop`
// pair, a MaybeStep call per statement, handler dispatch for the rest.
type runner struct {
	ctx    *quill.Context
	dbg    *quill.Debugger
	reg    *quill.Registry
	module string
}

func newRunner(ctx *quill.Context, dbg *quill.Debugger, module string) (*runner, error) {
	reg := quill.NewRegistry()
	if err := reg.Register(quill.CoreHandler{}); err != nil {
		return nil, err
	}
	return &runner{ctx: ctx, dbg: dbg, reg: reg, module: module}, nil
}

// Run executes the whole ops file. Failures are converted to
// structured errors and recorded on the context; the debugger's quit
// signal is returned untouched.
func (r *runner) Run(source string) error {
	r.ctx.Start()
	if err := r.execLines(source); err != nil {
		if quill.IsSessionTerminated(err) {
			return err
		}
		structured := quill.Convert(err)
		r.ctx.AddError(structured)
		r.ctx.Halt()
		return structured
	}
	r.ctx.Halt()
	return nil
}

func (r *runner) execLines(source string) error {
	scanner := bufio.NewScanner(strings.NewReader(source))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		meta := quill.Meta{Module: r.module, Line: lineNo}
		if err := r.dbg.MaybeStep(line, meta); err != nil {
			return err
		}
		if err := r.execStatement(line, meta); err != nil {
			return fmt.Errorf("%s:%d: %w", r.module, lineNo, err)
		}
	}
	return scanner.Err()
}

func (r *runner) execStatement(line string, meta quill.Meta) error {
	tokens, err := tokenize(line)
	if err != nil {
		return err
	}
	switch tokens[0] {
	case "frame":
		if len(tokens) != 3 {
			return fmt.Errorf("frame expects kind and name")
		}
		r.ctx.PushFrame(quill.FrameKind(tokens[1]), quill.FrameOptions{
			Name: tokens[2],
			File: r.module,
			Line: meta.Line,
		})
		if r.ctx.Status() == quill.StatusError {
			return quill.NewError(quill.ErrStackOverflow, "call stack exceeded pushing %q", tokens[2])
		}
		return nil
	case "pop":
		if r.ctx.CurrentFrame() == nil {
			return quill.NewError(quill.ErrRuntime, "pop with no frame")
		}
		r.ctx.PopFrame()
		return nil
	case "let", "const", "set":
		if len(tokens) < 3 {
			return fmt.Errorf("%s expects a name and an op", tokens[0])
		}
		result, err := r.eval(tokens[2], tokens[3:], meta)
		if err != nil {
			return err
		}
		name := tokens[1]
		switch tokens[0] {
		case "let":
			if declErr := r.ctx.DeclareVariable(name, result); declErr != nil {
				return declErr
			}
		case "const":
			if declErr := r.ctx.DeclareConstant(name, result); declErr != nil {
				return declErr
			}
		case "set":
			if updErr := r.ctx.UpdateVariable(name, result); updErr != nil {
				return updErr
			}
		}
		return nil
	case "do":
		if len(tokens) < 2 {
			return fmt.Errorf("do expects an op")
		}
		_, err := r.eval(tokens[1], tokens[2:], meta)
		return err
	case "emit":
		r.ctx.AddEvent(quill.EventCustom, quill.NewString(strings.Join(tokens[1:], " ")))
		return nil
	default:
		return quill.NewError(quill.ErrSyntax, "unknown statement %q", tokens[0])
	}
}

func (r *runner) eval(op string, rawArgs []string, meta quill.Meta) (quill.Value, error) {
	args := make([]quill.Value, len(rawArgs))
	for i, raw := range rawArgs {
		val, err := r.resolve(raw)
		if err != nil {
			return quill.NewNil(), err
		}
		args[i] = val
	}
	return r.reg.Dispatch(quill.Op(op), meta, args, r.ctx)
}

// resolve turns one token into a value: quoted strings, :symbols,
// numeric literals, the true/false/nil keywords, or a variable lookup.
func (r *runner) resolve(token string) (quill.Value, error) {
	switch {
	case strings.HasPrefix(token, `"`):
		return quill.NewString(strings.Trim(token, `"`)), nil
	case strings.HasPrefix(token, ":"):
		return quill.NewSymbol(token[1:]), nil
	case token == "true" || token == "false":
		return quill.NewBool(token == "true"), nil
	case token == "nil":
		return quill.NewNil(), nil
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return quill.NewInt(i), nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return quill.NewFloat(f), nil
	}
	val, lookupErr := r.ctx.LookupVariable(token)
	if lookupErr != nil {
		return quill.NewNil(), lookupErr
	}
	return val, nil
}

// tokenize splits on whitespace, keeping double-quoted strings whole.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inString := false
	for _, r := range line {
		switch {
		case r == '"':
			inString = !inString
			current.WriteRune(r)
		case (r == ' ' || r == '\t') && !inString:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if inString {
		return nil, quill.NewError(quill.ErrSyntax, "unterminated string in %q", line)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 {
		return nil, quill.NewError(quill.ErrSyntax, "empty statement")
	}
	return tokens, nil
}
