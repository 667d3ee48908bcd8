package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgomes/loxscript/lox"
)

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"lox", "help"}); err != nil {
		t.Fatalf("runCLI help failed: %v", err)
	}
}

func TestRunCLIInvalidCommand(t *testing.T) {
	err := runCLI([]string{"lox", "unknown"})
	if err == nil {
		t.Fatalf("expected invalid command error")
	}
	if !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestRunCLIWithoutCommand(t *testing.T) {
	err := runCLI([]string{"lox"})
	if err == nil {
		t.Fatalf("expected invalid command error")
	}
	if !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCommandPrintsOutput(t *testing.T) {
	scriptPath := writeScript(t, `
fun greet(name) {
  return "hello " + name;
}
print greet("lox");
print 1 + 2;
`)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "hello lox\n3" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestRunCommandCheckOnly(t *testing.T) {
	scriptPath := writeScript(t, `print "side effect";`)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-check", scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand check failed: %v", err)
	}
	if out != "" {
		t.Fatalf("check mode should not execute, got %q", out)
	}
}

func TestRunCommandRequiresScriptPath(t *testing.T) {
	err := runCommand(nil)
	if err == nil {
		t.Fatalf("expected script path error")
	}
	if !strings.Contains(err.Error(), "script path required") {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestRunCommandUnknownFlagIsUsageError(t *testing.T) {
	err := runCommand([]string{"-bogus", "x.lox"})
	if err == nil {
		t.Fatalf("expected flag error")
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestRunCommandMissingFileIsIOError(t *testing.T) {
	err := runCommand([]string{filepath.Join(t.TempDir(), "missing.lox")})
	if err == nil {
		t.Fatalf("expected read error")
	}
	if code := exitCode(err); code != exitIO {
		t.Fatalf("expected exit code %d, got %d", exitIO, code)
	}
}

func TestRunCommandCompileErrorExitCode(t *testing.T) {
	scriptPath := writeScript(t, "print 1 +;\nvar = 2;\n")

	_, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err == nil {
		t.Fatalf("expected compile error")
	}
	var compileErr *lox.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected CompileError, got %T", err)
	}
	if len(compileErr.Errors) != 2 {
		t.Fatalf("expected both syntax errors reported, got %d: %v", len(compileErr.Errors), err)
	}
	if code := exitCode(err); code != exitStatic {
		t.Fatalf("expected exit code %d, got %d", exitStatic, code)
	}
}

func TestRunCommandRuntimeErrorKeepsEarlierOutput(t *testing.T) {
	scriptPath := writeScript(t, "print \"before\";\nprint -\"x\";\nprint \"after\";\n")

	out, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if got := strings.TrimSpace(out); got != "before" {
		t.Fatalf("unexpected stdout: %q", got)
	}
	var runtimeErr *lox.RuntimeError
	if !errors.As(err, &runtimeErr) {
		t.Fatalf("expected RuntimeError, got %T", err)
	}
	if runtimeErr.Type != lox.ErrTypeError || runtimeErr.Pos.Line != 2 {
		t.Fatalf("unexpected runtime error: %v", runtimeErr)
	}
	if code := exitCode(err); code != exitRuntime {
		t.Fatalf("expected exit code %d, got %d", exitRuntime, code)
	}
}

func TestRunCommandMaxDepthFlag(t *testing.T) {
	scriptPath := writeScript(t, `
fun down(n) {
  if (n == 0) return 0;
  return down(n - 1);
}
print down(50);
`)

	_, err := captureStdout(t, func() error {
		return runCommand([]string{"-max-depth", "10", scriptPath})
	})
	var runtimeErr *lox.RuntimeError
	if !errors.As(err, &runtimeErr) || runtimeErr.Type != lox.ErrStackOverflow {
		t.Fatalf("expected stack overflow, got %v", err)
	}

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-max-depth", "100", scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "0" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestRunCommandUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, configFileName)
	if err := os.WriteFile(configPath, []byte("[interpreter]\nmax_call_depth = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	scriptPath := writeScript(t, `
fun loop(n) { return loop(n + 1); }
loop(0);
`)

	_, err := captureStdout(t, func() error {
		return runCommand([]string{"-config", configPath, scriptPath})
	})
	var runtimeErr *lox.RuntimeError
	if !errors.As(err, &runtimeErr) || runtimeErr.Type != lox.ErrStackOverflow {
		t.Fatalf("expected stack overflow, got %v", err)
	}
	if !strings.Contains(runtimeErr.Message, "limit 5") {
		t.Fatalf("expected configured limit in message, got %q", runtimeErr.Message)
	}
}

func TestAnalyzeCommandNoIssues(t *testing.T) {
	scriptPath := writeScript(t, `
fun add(a, b) {
  var sum = a + b;
  return sum;
}
print add(1, 2);
`)

	out, err := captureStdout(t, func() error {
		return analyzeCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "No issues found") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestAnalyzeCommandReportsIssues(t *testing.T) {
	scriptPath := writeScript(t, `
fun f() {
  return 1;
  print "dead";
}
`)

	out, err := captureStdout(t, func() error {
		return analyzeCommand([]string{scriptPath})
	})
	if err == nil {
		t.Fatalf("expected analysis error")
	}
	if !strings.Contains(err.Error(), "analysis found 1 issue(s)") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, ":4:3: unreachable statement (f)") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTokensCommandDumpsYAML(t *testing.T) {
	scriptPath := writeScript(t, `var x = 1;`)

	out, err := captureStdout(t, func() error {
		return tokensCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("tokens failed: %v", err)
	}
	for _, want := range []string{"type: VAR", "type: IDENTIFIER", "lexeme: x", "type: EOF"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTokensCommandReportsScanErrors(t *testing.T) {
	scriptPath := writeScript(t, "var x = @;")

	out, err := captureStdout(t, func() error {
		return tokensCommand([]string{scriptPath})
	})
	if err == nil {
		t.Fatalf("expected scan error")
	}
	if code := exitCode(err); code != exitStatic {
		t.Fatalf("expected exit code %d, got %d", exitStatic, code)
	}
	if !strings.Contains(out, "type: SEMICOLON") && !strings.Contains(out, "type: ;") {
		t.Fatalf("tokens after the bad character should still be dumped:\n%s", out)
	}
}

func TestParseCommandDumpsYAML(t *testing.T) {
	scriptPath := writeScript(t, `print 1 + 2;`)

	out, err := captureStdout(t, func() error {
		return parseCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, want := range []string{"node: print", "node: binary"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderErrorKeepsTrailingLines(t *testing.T) {
	got := renderError(errors.New("head\n  --> frame"))
	if !strings.HasSuffix(got, "\n  --> frame") {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if !strings.Contains(got, "head") {
		t.Fatalf("headline missing: %q", got)
	}
}

func TestVerbosityFlagCounts(t *testing.T) {
	var v verbosityFlag
	for range 2 {
		if err := v.Set("true"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
	if err := v.Set("4"); err != nil || v != 4 {
		t.Fatalf("explicit level not applied: %d %v", v, err)
	}
	if err := v.Set("loud"); err == nil {
		t.Fatalf("expected error for non-numeric level")
	}
}

func TestRunCommandRejectsNegativeMaxDepth(t *testing.T) {
	scriptPath := writeScript(t, `print 1;`)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-max-depth=-1", scriptPath})
	})
	if err == nil || !strings.Contains(err.Error(), "-max-depth must not be negative") {
		t.Fatalf("expected negative depth error, got %v", err)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
	if out != "" {
		t.Fatalf("script should not run, got %q", out)
	}
}

func TestRunCommandRejectsMaxDepthAboveLimit(t *testing.T) {
	scriptPath := writeScript(t, `print 1;`)

	_, err := captureStdout(t, func() error {
		return runCommand([]string{"-max-depth=1000000", scriptPath})
	})
	if err == nil || !strings.Contains(err.Error(), "must be at most") {
		t.Fatalf("expected depth limit error, got %v", err)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestDumpCommandsReportWriteFailures(t *testing.T) {
	scriptPath := writeScript(t, `print 1;`)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	_ = r.Close()
	_ = w.Close()
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	for name, cmd := range map[string]func([]string) error{
		"tokens": tokensCommand,
		"parse":  parseCommand,
	} {
		err := cmd([]string{scriptPath})
		if err == nil {
			t.Fatalf("%s: expected write error", name)
		}
		if code := exitCode(err); code != exitIO {
			t.Fatalf("%s: expected exit code %d, got %d (%v)", name, exitIO, code, err)
		}
	}
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lox")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("read stdout: %v", copyErr)
	}
	_ = r.Close()
	return buf.String(), runErr
}
