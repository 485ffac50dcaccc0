package quill

// FrameKind tags why a frame exists. It is diagnostic only; scoping
// never consults it.
type FrameKind string

const (
	FrameCall   FrameKind = "call"
	FrameBlock  FrameKind = "block"
	FrameLoop   FrameKind = "loop"
	FrameModule FrameKind = "module"
)

// FrameOptions carries optional metadata for PushFrame. ParentRef
// overrides the default lexical parent (the current frame) so callers
// can model captured scopes that are not the physical caller.
type FrameOptions struct {
	Name      string
	File      string
	Line      int
	ParentRef string
}

type binding struct {
	value    Value
	constant bool
}

// Frame is a single lexical activation record. A frame's parent is
// identified by ref, not stack position; resolution searches the live
// call stack, so a popped parent severs the chain.
type Frame struct {
	ref       string
	kind      FrameKind
	parentRef string
	name      string
	file      string
	line      int
	bindings  map[string]binding
}

func newFrame(ref string, kind FrameKind, opts FrameOptions) *Frame {
	parent := opts.ParentRef
	return &Frame{
		ref:       ref,
		kind:      kind,
		parentRef: parent,
		name:      opts.Name,
		file:      opts.File,
		line:      opts.Line,
		bindings:  make(map[string]binding),
	}
}

func (f *Frame) Ref() string       { return f.ref }
func (f *Frame) Kind() FrameKind   { return f.kind }
func (f *Frame) ParentRef() string { return f.parentRef }
func (f *Frame) Name() string      { return f.name }

// Variables returns a copy of the frame's bindings by name.
func (f *Frame) Variables() map[string]Value {
	out := make(map[string]Value, len(f.bindings))
	for name, b := range f.bindings {
		out[name] = b.value
	}
	return out
}

func (f *Frame) lookup(name string) (binding, bool) {
	b, ok := f.bindings[name]
	return b, ok
}

func (f *Frame) declare(name string, val Value, constant bool) bool {
	if _, exists := f.bindings[name]; exists {
		return false
	}
	f.bindings[name] = binding{value: val, constant: constant}
	return true
}

// set replaces an existing binding's value in place, preserving the
// constant tag.
func (f *Frame) set(name string, val Value) bool {
	b, ok := f.bindings[name]
	if !ok {
		return false
	}
	b.value = val
	f.bindings[name] = b
	return true
}
