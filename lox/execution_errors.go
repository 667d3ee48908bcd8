package lox

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const runtimeErrorTypeBase = "RuntimeError"

func (exec *Execution) step() error {
	exec.steps++
	if exec.ctx != nil {
		select {
		case <-exec.ctx.Done():
			return exec.ctx.Err()
		default:
		}
	}
	return nil
}

func (exec *Execution) errorAt(pos Position, format string, args ...any) error {
	return exec.newRuntimeErrorWithType(runtimeErrorTypeBase, fmt.Sprintf(format, args...), pos)
}

func (exec *Execution) typedErrorAt(kind string, pos Position, format string, args ...any) error {
	return exec.newRuntimeErrorWithType(kind, fmt.Sprintf(format, args...), pos)
}

func (exec *Execution) newRuntimeErrorWithType(kind string, message string, pos Position) error {
	frames := make([]StackFrame, 0, len(exec.callStack)+1)

	if len(exec.callStack) > 0 {
		// The innermost frame is where the error occurred; the rest are call sites.
		current := exec.callStack[len(exec.callStack)-1]
		frames = append(frames, StackFrame{Function: current.Function, Pos: pos})
		for i := len(exec.callStack) - 1; i >= 0; i-- {
			frames = append(frames, StackFrame(exec.callStack[i]))
		}
	} else {
		frames = append(frames, StackFrame{Function: "<script>", Pos: pos})
	}
	codeFrame := ""
	if exec.script != nil {
		codeFrame = formatCodeFrame(exec.script.source, pos)
	}
	return &RuntimeError{Type: kind, Message: message, Pos: pos, CodeFrame: codeFrame, Frames: frames}
}

// wrapError attributes a host error to pos. Runtime errors and host control
// signals pass through unchanged.
func (exec *Execution) wrapError(err error, kind string, pos Position) error {
	if err == nil {
		return nil
	}
	if isHostControlSignal(err) {
		return err
	}
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return err
	}
	return exec.newRuntimeErrorWithType(kind, err.Error(), pos)
}

func isHostControlSignal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
