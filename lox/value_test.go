package lox

import (
	"math"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{7, "7"},
		{-3, "-3"},
		{100, "100"},
		{2.5, "2.5"},
		{0.1 + 0.2, "0.30000000000000004"},
		{123456789012, "123456789012"},
		{math.Copysign(0, -1), "-0"},
		{1e21, "1e+21"},
		{1e-7, "1e-07"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tc := range cases {
		if got := NewNumber(tc.in).String(); got != tc.want {
			t.Fatalf("format %v: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestValueStrings(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{NewNil(), "nil"},
		{NewBool(true), "true"},
		{NewBool(false), "false"},
		{NewString("hello"), "hello"},
		{NewNative("clock", 0, builtinClock), "<native fn>"},
		{newFunction(&Function{decl: &FunctionStmt{Name: "greet"}}), "<fn greet>"},
	}
	for _, tc := range cases {
		if got := tc.value.String(); got != tc.want {
			t.Fatalf("got %q want %q", got, tc.want)
		}
	}
}

func TestValueTruthiness(t *testing.T) {
	falsy := []Value{NewNil(), NewBool(false)}
	truthy := []Value{NewBool(true), NewNumber(0), NewString(""), NewNative("f", 0, builtinClock)}
	for _, v := range falsy {
		if v.Truthy() {
			t.Fatalf("%s should be falsy", v)
		}
	}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Fatalf("%q should be truthy", v.String())
		}
	}
}

func TestValueEqualityNeverCoerces(t *testing.T) {
	fn := newFunction(&Function{decl: &FunctionStmt{Name: "f"}})
	other := newFunction(&Function{decl: &FunctionStmt{Name: "f"}})

	cases := []struct {
		a, b Value
		want bool
	}{
		{NewNil(), NewNil(), true},
		{NewNil(), NewBool(false), false},
		{NewNumber(1), NewString("1"), false},
		{NewNumber(0), NewBool(false), false},
		{NewNumber(2), NewNumber(2), true},
		{NewNumber(math.NaN()), NewNumber(math.NaN()), false},
		{NewString("a"), NewString("a"), true},
		{fn, fn, true},
		{fn, other, false},
	}
	for i, tc := range cases {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Fatalf("case %d: %s == %s got %v want %v", i, tc.a, tc.b, got, tc.want)
		}
	}
}
