package quill

type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindList
	KindMap
	KindTuple
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Value is the runtime representation of every Quill datum. The zero
// value is nil.
type Value struct {
	kind ValueKind
	data any
}
