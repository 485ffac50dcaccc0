package quill

import "fmt"

// Core value operations.
const (
	OpString         Op = "string"
	OpStringConcat   Op = "string_concat"
	OpSymbol         Op = "symbol"
	OpSymbolToString Op = "symbol_to_string"
	OpList           Op = "list"
	OpCons           Op = "cons"
	OpHead           Op = "head"
	OpTail           Op = "tail"
	OpEmptyCheck     Op = "empty?"
	OpMap            Op = "map"
	OpMapPut         Op = "map_put"
	OpMapGet         Op = "map_get"
	OpMapDelete      Op = "map_delete"
	OpBool           Op = "bool"
	OpAnd            Op = "and"
	OpOr             Op = "or"
	OpNot            Op = "not"
	OpTuple          Op = "tuple"
	OpTupleGet       Op = "tuple_get"
	OpTuplePut       Op = "tuple_put"
	OpTypeOf         Op = "type_of"
	OpNilCheck       Op = "nil?"
)

// CoreHandler implements the typed-value operation families: string,
// symbol, list, mapping, boolean, tuple, type_of, and nil?. It is the
// reference implementation of the Handler contract, with full
// up-front validation.
//
// One known asymmetry is preserved deliberately: tuple_get and
// tuple_put panic on an out-of-range index instead of returning a
// structured error like every other family. Callers relying on
// structured errors must range-check indices themselves.
type CoreHandler struct{}

func (CoreHandler) Ops() []Op {
	return []Op{
		OpString, OpStringConcat,
		OpSymbol, OpSymbolToString,
		OpList, OpCons, OpHead, OpTail, OpEmptyCheck,
		OpMap, OpMapPut, OpMapGet, OpMapDelete,
		OpBool, OpAnd, OpOr, OpNot,
		OpTuple, OpTupleGet, OpTuplePut,
		OpTypeOf, OpNilCheck,
	}
}

func coreArity(op Op, args []Value, want int) error {
	if len(args) != want {
		return NewError(ErrTypeError, "%s expects %d argument(s), got %d", op, want, len(args))
	}
	return nil
}

func coreWantKind(op Op, pos int, arg Value, want ValueKind) error {
	if arg.Kind() != want {
		return NewError(ErrTypeError, "%s argument %d must be a %s, got %s", op, pos+1, want, arg.Kind())
	}
	return nil
}

func isBooleanValue(v Value) bool {
	if v.Kind() == KindBool {
		return true
	}
	// Booleans may arrive represented as symbols.
	return v.Kind() == KindSymbol && (v.Symbol() == "true" || v.Symbol() == "false")
}

func (CoreHandler) Validate(op Op, args []Value) error {
	switch op {
	case OpString:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		return coreWantKind(op, 0, args[0], KindString)
	case OpStringConcat:
		if err := coreArity(op, args, 2); err != nil {
			return err
		}
		for i, arg := range args {
			if err := coreWantKind(op, i, arg, KindString); err != nil {
				return err
			}
		}
		return nil
	case OpSymbol, OpSymbolToString:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		return coreWantKind(op, 0, args[0], KindSymbol)
	case OpList, OpTuple, OpMap:
		if op == OpMap && len(args) != 0 {
			return NewError(ErrTypeError, "map constructs an empty mapping, got %d argument(s)", len(args))
		}
		return nil
	case OpCons:
		if err := coreArity(op, args, 2); err != nil {
			return err
		}
		return coreWantKind(op, 1, args[1], KindList)
	case OpHead, OpTail:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		if err := coreWantKind(op, 0, args[0], KindList); err != nil {
			return err
		}
		// Distinct from the generic type error so callers can match
		// on it.
		if len(args[0].List()) == 0 {
			return NewError(ErrMatch, "%s: empty list", op)
		}
		return nil
	case OpEmptyCheck:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		return coreWantKind(op, 0, args[0], KindList)
	case OpMapPut:
		if err := coreArity(op, args, 3); err != nil {
			return err
		}
		return coreWantKind(op, 0, args[0], KindMap)
	case OpMapGet, OpMapDelete:
		if err := coreArity(op, args, 2); err != nil {
			return err
		}
		return coreWantKind(op, 0, args[0], KindMap)
	case OpBool:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		if !isBooleanValue(args[0]) {
			return NewError(ErrTypeError, "%s argument must be a boolean, got %s", op, args[0].Kind())
		}
		return nil
	case OpAnd, OpOr:
		if err := coreArity(op, args, 2); err != nil {
			return err
		}
		for i, arg := range args {
			if !isBooleanValue(arg) {
				return NewError(ErrTypeError, "%s argument %d must be a boolean, got %s", op, i+1, arg.Kind())
			}
		}
		return nil
	case OpNot:
		if err := coreArity(op, args, 1); err != nil {
			return err
		}
		if !isBooleanValue(args[0]) {
			return NewError(ErrTypeError, "%s argument must be a boolean, got %s", op, args[0].Kind())
		}
		return nil
	case OpTupleGet:
		if err := coreArity(op, args, 2); err != nil {
			return err
		}
		if err := coreWantKind(op, 0, args[0], KindTuple); err != nil {
			return err
		}
		return coreWantKind(op, 1, args[1], KindInt)
	case OpTuplePut:
		if err := coreArity(op, args, 3); err != nil {
			return err
		}
		if err := coreWantKind(op, 0, args[0], KindTuple); err != nil {
			return err
		}
		return coreWantKind(op, 1, args[1], KindInt)
	case OpTypeOf, OpNilCheck:
		return coreArity(op, args, 1)
	default:
		return nil
	}
}

func (h CoreHandler) Handle(op Op, meta Meta, args []Value, ctx *Context) (Value, error) {
	switch op {
	case OpString, OpSymbol, OpBool:
		if op == OpBool {
			return normalizeBoolean(args[0]), nil
		}
		return args[0], nil
	case OpStringConcat:
		return NewString(args[0].String() + args[1].String()), nil
	case OpSymbolToString:
		return NewString(args[0].Symbol()), nil
	case OpList:
		return NewList(append([]Value(nil), args...)), nil
	case OpCons:
		tail := args[1].List()
		elems := make([]Value, 0, len(tail)+1)
		elems = append(elems, args[0])
		elems = append(elems, tail...)
		return NewList(elems), nil
	case OpHead:
		return args[0].List()[0], nil
	case OpTail:
		return NewList(append([]Value(nil), args[0].List()[1:]...)), nil
	case OpEmptyCheck:
		return NewBool(len(args[0].List()) == 0), nil
	case OpMap:
		return NewMap(map[string]Value{}), nil
	case OpMapPut:
		out := cloneEntries(args[0].Map())
		out[mapKey(args[1])] = args[2]
		return NewMap(out), nil
	case OpMapGet:
		if v, ok := args[0].Map()[mapKey(args[1])]; ok {
			return v, nil
		}
		return NewNil(), nil
	case OpMapDelete:
		out := cloneEntries(args[0].Map())
		delete(out, mapKey(args[1]))
		return NewMap(out), nil
	case OpAnd:
		return NewBool(normalizeBoolean(args[0]).Bool() && normalizeBoolean(args[1]).Bool()), nil
	case OpOr:
		return NewBool(normalizeBoolean(args[0]).Bool() || normalizeBoolean(args[1]).Bool()), nil
	case OpNot:
		return NewBool(!normalizeBoolean(args[0]).Bool()), nil
	case OpTuple:
		return NewTuple(append([]Value(nil), args...)), nil
	case OpTupleGet:
		elems := args[0].Tuple()
		idx := args[1].Int()
		checkTupleIndex(op, idx, len(elems))
		return elems[idx], nil
	case OpTuplePut:
		elems := args[0].Tuple()
		idx := args[1].Int()
		checkTupleIndex(op, idx, len(elems))
		out := append([]Value(nil), elems...)
		out[idx] = args[2]
		return NewTuple(out), nil
	case OpTypeOf:
		return typeOf(args[0]), nil
	case OpNilCheck:
		return NewBool(args[0].IsNil()), nil
	default:
		// Total over Ops(); anything else is a dispatch bug.
		panic(fmt.Sprintf("quill: CoreHandler has no clause for op %q", op))
	}
}

// checkTupleIndex panics on a bad index before any element is
// touched. See the CoreHandler doc for why this is not a structured
// error.
func checkTupleIndex(op Op, idx int64, size int) {
	if idx < 0 || idx >= int64(size) {
		panic(fmt.Sprintf("quill: %s index %d out of range [0, %d)", op, idx, size))
	}
}

func normalizeBoolean(v Value) Value {
	if v.Kind() == KindBool {
		return v
	}
	return NewBool(v.Symbol() == "true")
}

func cloneEntries(entries map[string]Value) map[string]Value {
	out := make(map[string]Value, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out
}

// mapKey folds string and symbol keys to their text. Other kinds fall
// back to their rendering, keeping lookups total.
func mapKey(v Value) string {
	switch v.Kind() {
	case KindString:
		return v.String()
	case KindSymbol:
		return v.Symbol()
	default:
		return v.String()
	}
}

// typeOf classifies a value by fixed precedence. Boolean-shaped
// symbols are matched before the generic symbol case, so a boolean is
// never reported as a symbol.
func typeOf(v Value) Value {
	switch {
	case v.Kind() == KindString:
		return NewSymbol("string")
	case v.IsNil():
		return NewSymbol("nil")
	case v.Kind() == KindInt, v.Kind() == KindFloat:
		return NewSymbol("number")
	case isBooleanValue(v):
		return NewSymbol("boolean")
	case v.Kind() == KindSymbol:
		return NewSymbol("symbol")
	case v.Kind() == KindList:
		return NewSymbol("list")
	case v.Kind() == KindMap:
		return NewSymbol("mapping")
	default:
		return NewSymbol("unknown")
	}
}
