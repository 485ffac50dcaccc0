package quill

import "fmt"

// Op names one primitive operation a handler can evaluate.
type Op string

// Meta carries best-effort source location for an operation node.
type Meta struct {
	Module string
	Line   int
	Column int
}

// Handler evaluates a family of primitive operations against a
// context. Handle must be total over Ops(); dispatching an op outside
// that set is the registry's error, not the handler's. Results flow
// back through the return value, mutations through the context.
type Handler interface {
	Ops() []Op
	Handle(op Op, meta Meta, args []Value, ctx *Context) (Value, error)
}

// Validator lets a handler reject malformed calls before evaluation,
// avoiding partial side effects. Handlers opt in by implementing it;
// the registry treats absence as always-ok.
type Validator interface {
	Validate(op Op, args []Value) error
}

// Registry routes ops to the handler that declared them.
type Registry struct {
	handlers map[Op]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Op]Handler)}
}

// Register claims every op the handler declares. A collision with a
// previously registered op is rejected.
func (r *Registry) Register(h Handler) error {
	ops := h.Ops()
	for _, op := range ops {
		if _, taken := r.handlers[op]; taken {
			return fmt.Errorf("quill: op %q already registered", op)
		}
	}
	for _, op := range ops {
		r.handlers[op] = h
	}
	return nil
}

// Handles reports whether any registered handler declared op.
func (r *Registry) Handles(op Op) bool {
	_, ok := r.handlers[op]
	return ok
}

// Dispatch validates and evaluates one operation. An op no handler
// declared yields a function clause error.
func (r *Registry) Dispatch(op Op, meta Meta, args []Value, ctx *Context) (Value, error) {
	h, ok := r.handlers[op]
	if !ok {
		return NewNil(), &Error{
			Kind:       ErrFunctionClause,
			Message:    fmt.Sprintf("no handler for op %q", op),
			ContextRef: ctx.Ref(),
			File:       meta.Module,
			Line:       meta.Line,
		}
	}
	if v, ok := h.(Validator); ok {
		if err := v.Validate(op, args); err != nil {
			return NewNil(), err
		}
	}
	return h.Handle(op, meta, args, ctx)
}
