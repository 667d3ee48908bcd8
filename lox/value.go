package lox

import (
	"math"
	"strconv"
)

type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindFunction
	KindNative
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunction, KindNative:
		return "function"
	default:
		return "unknown"
	}
}

type Value struct {
	kind ValueKind
	data any
}

// Callable is implemented by user functions and host natives.
type Callable interface {
	Arity() int
	Name() string
}

// NativeFunc is the host routine behind a native. The argument count has
// already been checked against the declared arity.
type NativeFunc func(exec *Execution, args []Value) (Value, error)

type Native struct {
	name  string
	arity int
	fn    NativeFunc
}

func (n *Native) Arity() int   { return n.arity }
func (n *Native) Name() string { return n.name }

// Function is a user-declared function together with the environment it
// closed over at declaration time.
type Function struct {
	decl    *FunctionStmt
	closure *Env
}

func (f *Function) Arity() int   { return len(f.decl.Params) }
func (f *Function) Name() string { return f.decl.Name }

func NewNil() Value                { return Value{kind: KindNil} }
func NewBool(b bool) Value         { return Value{kind: KindBool, data: b} }
func NewNumber(n float64) Value    { return Value{kind: KindNumber, data: n} }
func NewString(s string) Value     { return Value{kind: KindString, data: s} }
func newFunction(f *Function) Value { return Value{kind: KindFunction, data: f} }

// NewNative wraps a host routine as a callable value.
func NewNative(name string, arity int, fn NativeFunc) Value {
	return Value{kind: KindNative, data: &Native{name: name, arity: arity, fn: fn}}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

func (v Value) Number() float64 {
	n, _ := v.data.(float64)
	return n
}

func (v Value) Str() string {
	s, _ := v.data.(string)
	return s
}

// Callable returns the callable behind a function or native value.
func (v Value) Callable() (Callable, bool) {
	switch v.kind {
	case KindFunction:
		return v.data.(*Function), true
	case KindNative:
		return v.data.(*Native), true
	default:
		return nil, false
	}
}

// Truthy treats nil and false as falsy and everything else as truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool()
	default:
		return true
	}
}

// Equal never coerces: values of different kinds are unequal and callables
// are equal only to themselves.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindNumber:
		return v.Number() == other.Number()
	case KindString:
		return v.Str() == other.Str()
	case KindFunction:
		return v.data.(*Function) == other.data.(*Function)
	case KindNative:
		return v.data.(*Native) == other.data.(*Native)
	default:
		return false
	}
}

// String renders the value the way print shows it.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Number())
	case KindString:
		return v.Str()
	case KindFunction:
		return "<fn " + v.data.(*Function).Name() + ">"
	case KindNative:
		return "<native fn>"
	default:
		return "<unknown>"
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	abs := math.Abs(n)
	if n == math.Trunc(n) {
		if abs >= 1e21 {
			return strconv.FormatFloat(n, 'e', -1, 64)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if abs < 1e-6 {
		return strconv.FormatFloat(n, 'e', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
