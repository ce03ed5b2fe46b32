// Package canon implements the canonical JSON encoding used to digest
// observed payloads: recursively sorted object keys, no insignificant
// whitespace, ASCII-only escaping, integer-only numerics. Floats, NaN,
// Infinity, and non-string object keys are rejected rather than encoded.
package canon

// Kind identifies the concrete shape held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindArray
	KindObject
)

// Value is a tagged variant representing a JSON-safe payload tree: null,
// bool, 64-bit integer, string, array, or object with string keys. There is
// deliberately no float case — floats are rejected at construction time
// (see Marshal), matching the data model's "numeric leaves are integers"
// constraint.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
	arr  []Value
	obj  []Member
}

// Member is a single object key/value pair. Object keys must be unique;
// Marshal and the constructors below do not silently dedupe, they keep
// insertion order until Encode sorts by codepoint.
type Member struct {
	Key   string
	Value Value
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value   { return Value{kind: KindArray, arr: vs} }
func Object(ms ...Member) Value { return Value{kind: KindObject, obj: ms} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) String() string { return v.s }

// Elements returns the array elements. The returned slice is shared with v;
// callers must not mutate it.
func (v Value) Elements() []Value { return v.arr }

// Members returns the object's key/value pairs in whatever order they were
// constructed in (not necessarily sorted). The returned slice is shared
// with v; callers must not mutate it.
func (v Value) Members() []Member { return v.obj }

// Get returns the value for key in an object Value, and whether it was
// found. Get on a non-object Value always returns (Value{}, false).
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.obj {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}
