package lox

import (
	"errors"
	"fmt"
	"strings"
)

// Runtime error categories reported in RuntimeError.Type.
const (
	ErrTypeError         = "TypeError"
	ErrUndefinedVariable = "UndefinedVariable"
	ErrArity             = "ArityError"
	ErrNotCallable       = "NotCallable"
	ErrStackOverflow     = "StackOverflow"
	ErrNative            = "NativeError"
)

// Phases of the pipeline a Diagnostic can belong to.
const (
	PhaseScan    = "scan"
	PhaseParse   = "parse"
	PhaseRuntime = "runtime"
)

const (
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
)

// Diagnostic is the line-attributed view of any pipeline error.
type Diagnostic struct {
	Phase   string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] %s error: %s", d.Line, d.Phase, d.Message)
}

type StackFrame struct {
	Function string
	Pos      Position
}

type RuntimeError struct {
	Type      string
	Message   string
	Pos       Position
	CodeFrame string
	Frames    []StackFrame
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", re.Type, re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	renderFrame := func(frame StackFrame) {
		if frame.Pos.Line > 0 && frame.Pos.Column > 0 {
			fmt.Fprintf(&b, "\n  at %s (%d:%d)", frame.Function, frame.Pos.Line, frame.Pos.Column)
		} else if frame.Pos.Line > 0 {
			fmt.Fprintf(&b, "\n  at %s (line %d)", frame.Function, frame.Pos.Line)
		} else {
			fmt.Fprintf(&b, "\n  at %s", frame.Function)
		}
	}

	if len(re.Frames) <= runtimeErrorFrameHead+runtimeErrorFrameTail {
		for _, frame := range re.Frames {
			renderFrame(frame)
		}
		return b.String()
	}

	for _, frame := range re.Frames[:runtimeErrorFrameHead] {
		renderFrame(frame)
	}
	omitted := len(re.Frames) - (runtimeErrorFrameHead + runtimeErrorFrameTail)
	fmt.Fprintf(&b, "\n  ... %d frames omitted ...", omitted)
	for _, frame := range re.Frames[len(re.Frames)-runtimeErrorFrameTail:] {
		renderFrame(frame)
	}

	return b.String()
}

// Diagnostic returns the line-attributed summary of the error.
func (re *RuntimeError) Diagnostic() Diagnostic {
	return Diagnostic{Phase: PhaseRuntime, Line: re.Pos.Line, Column: re.Pos.Column, Message: re.Message}
}

// CompileError groups every scan and parse error found in one source text.
// Scan errors come first, each phase in source order.
type CompileError struct {
	Errors []error
}

func (ce *CompileError) Error() string {
	msg := ""
	for _, err := range ce.Errors {
		if msg != "" {
			msg += "\n\n"
		}
		msg += err.Error()
	}
	return msg
}

func (ce *CompileError) Unwrap() []error {
	return ce.Errors
}

// Diagnostics flattens the grouped errors into line-attributed entries.
func (ce *CompileError) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(ce.Errors))
	for _, err := range ce.Errors {
		if d, ok := DiagnosticOf(err); ok {
			out = append(out, d)
		}
	}
	return out
}

// HasPhase reports whether any grouped error belongs to the given phase.
func (ce *CompileError) HasPhase(phase string) bool {
	for _, d := range ce.Diagnostics() {
		if d.Phase == phase {
			return true
		}
	}
	return false
}

// DiagnosticOf extracts the diagnostic carried by a scan, parse or runtime error.
func DiagnosticOf(err error) (Diagnostic, bool) {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return Diagnostic{Phase: PhaseScan, Line: scanErr.Pos.Line, Column: scanErr.Pos.Column, Message: scanErr.Message}, true
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return Diagnostic{Phase: PhaseParse, Line: parseErr.Pos.Line, Column: parseErr.Pos.Column, Message: parseErr.Message}, true
	}
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr.Diagnostic(), true
	}
	return Diagnostic{}, false
}
