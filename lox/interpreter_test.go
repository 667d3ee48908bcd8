package lox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func runSource(t *testing.T, source string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	script, err := engine.Compile(source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = script.Execute(context.Background(), nil)
	return out.String(), err
}

func mustRun(t *testing.T, source string) string {
	t.Helper()
	out, err := runSource(t, source)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return out
}

func expectRuntimeError(t *testing.T, source string, kind string) *RuntimeError {
	t.Helper()
	_, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected %s runtime error", kind)
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %T: %v", err, err)
	}
	if re.Type != kind {
		t.Fatalf("expected %s, got %s: %v", kind, re.Type, err)
	}
	return re
}

func TestArithmeticAndPrecedence(t *testing.T) {
	out := mustRun(t, `
print 1 + 2 * 3;
print (1 + 2) * 3;
print 10 - 4 - 3;
print 10 / 4;
print 6 / 3;
print -2 * -3;
print 1 / 0;
print -1 / 0;
print 0 / 0;
`)
	want := "7\n9\n3\n2.5\n2\n6\nInfinity\n-Infinity\nNaN\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestStringConcatenation(t *testing.T) {
	if out := mustRun(t, `print "a" + "b";`); out != "ab\n" {
		t.Fatalf("unexpected output %q", out)
	}

	re := expectRuntimeError(t, "\nprint \"a\" + 1;", ErrTypeError)
	if re.Pos.Line != 2 {
		t.Fatalf("error line: got %d want 2", re.Pos.Line)
	}
	if !strings.Contains(re.Message, "two numbers or two strings") {
		t.Fatalf("unexpected message %q", re.Message)
	}
}

func TestOperandTypeErrors(t *testing.T) {
	sources := []string{
		`print -"x";`,
		`print 1 - "x";`,
		`print nil * 2;`,
		`print true / 1;`,
		`print "a" < "b";`,
		`print 1 >= nil;`,
	}
	for _, source := range sources {
		expectRuntimeError(t, source, ErrTypeError)
	}
}

func TestComparisonAndEquality(t *testing.T) {
	out := mustRun(t, `
print 1 < 2;
print 2 <= 2;
print 3 > 4;
print 4 >= 4;
print 1 == 1;
print "a" == "a";
print nil == nil;
print 1 == "1";
print nil == false;
print 0 == false;
print "a" != "b";
`)
	want := "true\ntrue\nfalse\ntrue\ntrue\ntrue\ntrue\nfalse\nfalse\nfalse\ntrue\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestCallablesCompareByIdentity(t *testing.T) {
	out := mustRun(t, `
fun f() {}
fun h() {}
var g = f;
print f == g;
print f == h;
print clock == clock;
`)
	if out != "true\nfalse\ntrue\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	out := mustRun(t, `
print false and (1/0 == 1);
print true or (1/0 == 1);
print false and undefinedName;
print true or undefinedName();
print nil or "fallback";
print 1 and 2;
print nil and 1;
print 0 or 1;
`)
	want := "false\ntrue\nfalse\ntrue\nfallback\n2\nnil\n0\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestTruthiness(t *testing.T) {
	out := mustRun(t, `
if (0) print "zero"; else print "no";
if ("") print "empty"; else print "no";
if (nil) print "nil"; else print "falsy nil";
if (false) print "false"; else print "falsy false";
print !nil;
print !0;
`)
	want := "zero\nempty\nfalsy nil\nfalsy false\ntrue\nfalse\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestBlockScopingAndShadowing(t *testing.T) {
	out := mustRun(t, `
var a = "global";
{
  var a = "outer";
  {
    var a = "inner";
    print a;
  }
  print a;
}
print a;
var b = 1;
{ b = 2; }
print b;
`)
	want := "inner\nouter\nglobal\n2\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestClosuresKeepTheirOwnState(t *testing.T) {
	out := mustRun(t, `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    return i;
  }
  return count;
}
var c = makeCounter();
print c();
print c();
var d = makeCounter();
print d();
print c();
`)
	if out != "1\n2\n1\n3\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFunctionsUseClosureNotCallerEnvironment(t *testing.T) {
	out := mustRun(t, `
fun outer() {
  var x = "closure";
  fun inner() { return x; }
  return inner;
}
fun caller(f) {
  var x = "caller";
  return f();
}
print caller(outer());
`)
	if out != "closure\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestChainedCalls(t *testing.T) {
	out := mustRun(t, `
fun adder(a) {
  fun add(b) { return a + b; }
  return add;
}
print adder(1)(2);
`)
	if out != "3\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestForLoopScopesItsVariable(t *testing.T) {
	out := mustRun(t, `
for (var i = 0; i < 3; i = i + 1) print i;
var sum = 0;
var j = 0;
for (; j < 4; j = j + 1) sum = sum + j;
print sum;
`)
	if out != "0\n1\n2\n6\n" {
		t.Fatalf("unexpected output %q", out)
	}

	expectRuntimeError(t, "for (var i = 0; i < 1; i = i + 1) {}\nprint i;", ErrUndefinedVariable)
}

func TestForLoopClosuresShareTheLoopVariable(t *testing.T) {
	out := mustRun(t, `
var saved;
for (var i = 0; i < 3; i = i + 1) {
  fun show() { print i; }
  if (i == 0) saved = show;
}
saved();
`)
	if out != "3\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out := mustRun(t, `
var n = 3;
while (n > 0) {
  print n;
  n = n - 1;
}
`)
	if out != "3\n2\n1\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReturnUnwindsNestedStatements(t *testing.T) {
	out := mustRun(t, `
fun find() {
  var i = 0;
  while (true) {
    {
      if (i == 5) {
        return "found " + "five";
      }
    }
    i = i + 1;
  }
  print "unreachable";
}
print find();
fun bare() { return; }
fun none() {}
print bare();
print none();
fun outer() {
  fun inner() { return 1; }
  inner();
  return 2;
}
print outer();
`)
	want := "found five\nnil\nnil\n2\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestRecursion(t *testing.T) {
	out := mustRun(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(15);
`)
	if out != "610\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPrintFunctions(t *testing.T) {
	out := mustRun(t, "fun foo() {}\nprint foo;\nprint clock;")
	if out != "<fn foo>\n<native fn>\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestArityMismatch(t *testing.T) {
	re := expectRuntimeError(t, "fun f(a) { return a; }\nf(1, 2);", ErrArity)
	if re.Message != "expected 1 arguments but got 2" {
		t.Fatalf("unexpected message %q", re.Message)
	}
	if re.Pos.Line != 2 {
		t.Fatalf("error line: got %d", re.Pos.Line)
	}

	expectRuntimeError(t, "clock(1);", ErrArity)
}

func TestCallingNonCallable(t *testing.T) {
	cases := []string{`"text"();`, `var x = 1; x();`, `nil();`, `fun f() { return 1; } f()();`}
	for _, source := range cases {
		re := expectRuntimeError(t, source, ErrNotCallable)
		if !strings.Contains(re.Message, "not callable") {
			t.Fatalf("unexpected message %q", re.Message)
		}
	}
}

func TestUndefinedVariable(t *testing.T) {
	re := expectRuntimeError(t, "print 1;\nprint missing;", ErrUndefinedVariable)
	if re.Message != "undefined variable 'missing'" || re.Pos.Line != 2 {
		t.Fatalf("unexpected error %+v", re)
	}

	re = expectRuntimeError(t, "missing = 1;", ErrUndefinedVariable)
	if re.Pos.Line != 1 {
		t.Fatalf("unexpected line %d", re.Pos.Line)
	}
}

func TestRuntimeErrorAbortsTheRun(t *testing.T) {
	out, err := runSource(t, "print 1;\nprint \"a\" - 1;\nprint 2;")
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if out != "1\n" {
		t.Fatalf("statements after the error must not run, got %q", out)
	}
	d, ok := DiagnosticOf(err)
	if !ok || d.Phase != PhaseRuntime || d.Line != 2 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestRuntimeErrorStackTrace(t *testing.T) {
	_, err := runSource(t, `fun inner() {
  return nil + 1;
}
fun outer() {
  return inner();
}
outer();`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	msg := err.Error()
	for _, want := range []string{
		"TypeError:",
		"  --> line 2, column 14",
		"at inner (2:14)",
		"at inner (5:16)",
		"at outer (7:7)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestOutputIsDeterministic(t *testing.T) {
	source := `
fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
for (var i = 0; i < 12; i = i + 1) print fib(i);
`
	first := mustRun(t, source)
	second := mustRun(t, source)
	if first != second {
		t.Fatalf("repeated runs differ:\n%s\n---\n%s", first, second)
	}
}

func TestExecuteReturnsLastExpressionValue(t *testing.T) {
	engine := MustNewEngine(Config{Stdout: &bytes.Buffer{}})

	val, err := engine.Execute(context.Background(), "1 + 2;")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if val.Kind() != KindNumber || val.Number() != 3 {
		t.Fatalf("unexpected value %v", val)
	}

	val, err = engine.Execute(context.Background(), "1; var a = 1;")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !val.IsNil() {
		t.Fatalf("expected nil after a declaration, got %v", val)
	}
}

func TestGlobalsPersistAcrossScripts(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	globals := engine.Globals()

	for _, source := range []string{"var a = 1;", "fun inc() { a = a + 1; }", "inc(); inc();", "print a;"} {
		script, err := engine.Compile(source)
		if err != nil {
			t.Fatalf("compile %q: %v", source, err)
		}
		if _, err := script.Execute(context.Background(), globals); err != nil {
			t.Fatalf("execute %q: %v", source, err)
		}
	}
	if out.String() != "3\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRegisterNative(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	engine.RegisterNative("double", 1, func(exec *Execution, args []Value) (Value, error) {
		if args[0].Kind() != KindNumber {
			return NewNil(), fmt.Errorf("double expects a number")
		}
		return NewNumber(args[0].Number() * 2), nil
	})

	if _, err := engine.Execute(context.Background(), "print double(21);"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	_, err := engine.Execute(context.Background(), `double("x");`)
	var re *RuntimeError
	if !errors.As(err, &re) || re.Type != ErrNative || re.Message != "double expects a number" {
		t.Fatalf("expected native error, got %v", err)
	}
}

func TestNativeSeesExecutionState(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	engine.RegisterNative("trace", 1, func(exec *Execution, args []Value) (Value, error) {
		fmt.Fprintf(exec.Stdout(), "depth %d: %s\n", exec.CallDepth(), args[0])
		return NewNumber(float64(exec.CallDepth())), nil
	})

	_, err := engine.Execute(context.Background(), `
trace("top");
fun outer() { inner(); }
fun inner() { trace("inner"); }
outer();
print trace("again");
`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "depth 0: top\ndepth 2: inner\ndepth 0: again\n0\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestClockReturnsElapsedSeconds(t *testing.T) {
	out := mustRun(t, "var t = clock();\nprint t >= 0;\nprint clock() >= t;")
	if out != "true\ntrue\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecuteHonorsCancellation(t *testing.T) {
	engine := MustNewEngine(Config{Stdout: &bytes.Buffer{}})
	script, err := engine.Compile("while (true) {}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = script.Execute(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestCompileErrorsByPhase(t *testing.T) {
	engine := MustNewEngine(Config{})

	_, err := engine.Compile("var s = \"open\nprint 1;")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %T", err)
	}
	if !ce.HasPhase(PhaseScan) || ce.HasPhase(PhaseParse) {
		t.Fatalf("expected scan-only diagnostics, got %+v", ce.Diagnostics())
	}

	_, err = engine.Compile("var = 1;\nprint ;")
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %T", err)
	}
	diags := ce.Diagnostics()
	if len(diags) != 2 || diags[0].Phase != PhaseParse || diags[0].Line != 1 || diags[1].Line != 2 {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	if !strings.Contains(err.Error(), " 2 | print ;") {
		t.Fatalf("expected code frame in %q", err.Error())
	}
}

func TestNewEngineRejectsNegativeDepth(t *testing.T) {
	if _, err := NewEngine(Config{MaxCallDepth: -1}); err == nil {
		t.Fatalf("expected config error")
	}
	engine := MustNewEngine(Config{})
	if got := engine.ConfigSummary(); got != "max_call_depth=2048 natives=1" {
		t.Fatalf("unexpected summary %q", got)
	}
}
