package quill

func NewNil() Value            { return Value{kind: KindNil} }
func NewBool(b bool) Value     { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value     { return Value{kind: KindInt, data: i} }
func NewFloat(f float64) Value { return Value{kind: KindFloat, data: f} }
func NewString(s string) Value { return Value{kind: KindString, data: s} }
func NewSymbol(name string) Value {
	return Value{kind: KindSymbol, data: name}
}
func NewList(elems []Value) Value  { return Value{kind: KindList, data: elems} }
func NewTuple(elems []Value) Value { return Value{kind: KindTuple, data: elems} }
func NewMap(entries map[string]Value) Value {
	return Value{kind: KindMap, data: entries}
}
