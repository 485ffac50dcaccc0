package quill

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.data.(int64)
	case KindFloat:
		return int64(v.data.(float64))
	default:
		return 0
	}
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.data.(float64)
	case KindInt:
		return float64(v.data.(int64))
	default:
		return 0
	}
}

func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.data.([]Value)
}

func (v Value) Tuple() []Value {
	if v.kind != KindTuple {
		return nil
	}
	return v.data.([]Value)
}

func (v Value) Map() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.data.(map[string]Value)
}

// Symbol returns the interned name of a symbol value.
func (v Value) Symbol() string {
	if v.kind != KindSymbol {
		return ""
	}
	return v.data.(string)
}
