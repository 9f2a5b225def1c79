// Package value implements the universal runtime datum: a tagged sum
// type with interned symbols/keywords and persistent, structurally
// shared Vec/Map/Set collections. Every variant satisfies strict
// equality, hash-consistent-with-equality, and a partial ordering
// contract so it can live on the VM's value stack, inside world
// components, and as compiled constants.
package value

import (
	"fmt"
	"math"
)

// Kind tags the variant carried by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindKeyword
	KindEntityRef
	KindVec
	KindSet
	KindMap
	KindFn
)

func (k Kind) String() string {
	names := [...]string{"nil", "bool", "int", "float", "string", "symbol", "keyword", "entity-ref", "vec", "set", "map", "fn"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// EntityRef is the value-level handle to a world entity: a dense slot
// index plus the generation the holder last observed it at.
type EntityRef struct {
	Index      uint64
	Generation uint32
}

func (e EntityRef) String() string {
	return fmt.Sprintf("#entity[%d:%d]", e.Index, e.Generation)
}

// Fn is the callable payload of a KindFn value: either a native Go
// function or a compiled-function index with an optional captured
// environment (a closure).
type Fn struct {
	Name    string
	Native  NativeFunc
	FnIndex int
	Captures []Value
}

// NativeFunc is the signature of a built-in callable. It receives only
// its evaluated arguments; no world handle or other context is passed.
type NativeFunc func(args []Value) (Value, error)

// Value is the universal runtime datum. The zero Value is Nil.
type Value struct {
	kind Kind

	b bool
	i int64
	f float64
	s string // String payload, or the interned text for Symbol/Keyword debug printing
	sym uint32
	ent EntityRef
	vec *Vec
	set *Set
	mp  *Map
	fn  *Fn
}

var Nil = Value{kind: KindNil}

func Bool(b bool) Value   { return Value{kind: KindBool, b: b} }
func Int(i int64) Value   { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Str(s string) Value  { return Value{kind: KindString, s: s} }

// Symbol and Keyword wrap an interned id. The string is retained purely
// for cheap Go-side printing/debugging; equality and hashing use the id.
func Symbol(id uint32, name string) Value  { return Value{kind: KindSymbol, sym: id, s: name} }
func Keyword(id uint32, name string) Value { return Value{kind: KindKeyword, sym: id, s: name} }

func Entity(ref EntityRef) Value { return Value{kind: KindEntityRef, ent: ref} }

func VecVal(v *Vec) Value { return Value{kind: KindVec, vec: v} }
func SetVal(s *Set) Value { return Value{kind: KindSet, set: s} }
func MapVal(m *Map) Value { return Value{kind: KindMap, mp: m} }

func NativeFn(name string, fn NativeFunc) Value {
	return Value{kind: KindFn, fn: &Fn{Name: name, Native: fn}}
}

func ClosureFn(fnIndex int, captures []Value) Value {
	return Value{kind: KindFn, fn: &Fn{FnIndex: fnIndex, Captures: captures}}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) AsBool() bool        { return v.b }
func (v Value) AsInt() int64        { return v.i }
func (v Value) AsFloat() float64    { return v.f }
func (v Value) AsString() string    { return v.s }
func (v Value) SymbolID() uint32    { return v.sym }
func (v Value) SymbolName() string  { return v.s }
func (v Value) AsEntity() EntityRef { return v.ent }
func (v Value) AsVec() *Vec         { return v.vec }
func (v Value) AsSet() *Set         { return v.set }
func (v Value) AsMap() *Map         { return v.mp }
func (v Value) AsFn() *Fn           { return v.fn }

// Truthy implements the language's truthiness rule: only Nil and
// Bool(false) are false; everything else, including 0, "", and empty
// collections, is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal implements strict, reflexive, cross-tag-false equality. NaN
// floats compare equal to themselves because comparison is by bit
// pattern, not IEEE semantics.
func (a Value) Equal(b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Float64bits(a.f) == math.Float64bits(b.f)
	case KindString:
		return a.s == b.s
	case KindSymbol, KindKeyword:
		return a.sym == b.sym
	case KindEntityRef:
		return a.ent == b.ent
	case KindVec:
		return a.vec.Equal(b.vec)
	case KindSet:
		return a.set.Equal(b.set)
	case KindMap:
		return a.mp.Equal(b.mp)
	case KindFn:
		return a.fn == b.fn
	default:
		return false
	}
}

// Compare implements the partial ordering over {Int, Float, String,
// EntityRef} plus numeric Int<->Float comparison. ok is false when the
// two values have no defined ordering.
func (a Value) Compare(b Value) (result int, ok bool) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpInt64(a.i, b.i), true
	case a.kind == KindFloat && b.kind == KindFloat:
		return cmpFloat64(a.f, b.f), true
	case a.kind == KindInt && b.kind == KindFloat:
		return cmpFloat64(float64(a.i), b.f), true
	case a.kind == KindFloat && b.kind == KindInt:
		return cmpFloat64(a.f, float64(b.i)), true
	case a.kind == KindString && b.kind == KindString:
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	case a.kind == KindEntityRef && b.kind == KindEntityRef:
		if a.ent.Index != b.ent.Index {
			return cmpUint64(a.ent.Index, b.ent.Index), true
		}
		return cmpUint32(a.ent.Generation, b.ent.Generation), true
	default:
		return 0, false
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// TypeName returns the lowercase type name used in error messages.
func (v Value) TypeName() string { return v.kind.String() }

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindSymbol:
		return v.s
	case KindKeyword:
		return ":" + v.s
	case KindEntityRef:
		return v.ent.String()
	case KindVec:
		return v.vec.String()
	case KindSet:
		return v.set.String()
	case KindMap:
		return v.mp.String()
	case KindFn:
		if v.fn.Native != nil {
			return fmt.Sprintf("#native[%s]", v.fn.Name)
		}
		return fmt.Sprintf("#fn[%d]", v.fn.FnIndex)
	default:
		return "#unknown"
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'i' { // n/i catch NaN/Inf
			return s
		}
	}
	return s + ".0"
}
