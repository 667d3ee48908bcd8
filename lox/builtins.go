package lox

import "time"

var processStart = time.Now()

// builtinClock reports seconds elapsed since the process started, read from
// the monotonic clock.
func builtinClock(exec *Execution, args []Value) (Value, error) {
	return NewNumber(time.Since(processStart).Seconds()), nil
}
