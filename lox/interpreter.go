package lox

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/tliron/commonlog"
)

// Config controls interpreter execution bounds and output.
type Config struct {
	// MaxCallDepth bounds nested user function calls. Exceeding it raises
	// a StackOverflow runtime error.
	MaxCallDepth int
	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer
}

const defaultMaxCallDepth = 2048

// MaxCallDepthLimit is the largest accepted Config.MaxCallDepth. Deeper Lox
// recursion would exhaust the goroutine stack before the StackOverflow
// check could fire.
const MaxCallDepthLimit = 100000

// Engine compiles and runs Lox programs. It holds configuration and the
// natives installed into every global environment it creates.
type Engine struct {
	config  Config
	natives map[string]Value
	log     commonlog.Logger
	execLog commonlog.Logger
}

// NewEngine constructs an Engine with defaults applied and registers the
// standard natives.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MaxCallDepth < 0 {
		return nil, fmt.Errorf("max call depth must be positive, got %d", cfg.MaxCallDepth)
	}
	if cfg.MaxCallDepth > MaxCallDepthLimit {
		return nil, fmt.Errorf("max call depth must be at most %d, got %d", MaxCallDepthLimit, cfg.MaxCallDepth)
	}
	if cfg.MaxCallDepth == 0 {
		cfg.MaxCallDepth = defaultMaxCallDepth
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	engine := &Engine{
		config:  cfg,
		natives: make(map[string]Value),
		log:     commonlog.GetLogger("lox.engine"),
		execLog: commonlog.GetLogger("lox.exec"),
	}
	engine.RegisterNative("clock", 0, builtinClock)
	return engine, nil
}

// MustNewEngine constructs an Engine or panics if the config is invalid.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

// RegisterNative installs a host function as a global in environments
// created after the call.
func (e *Engine) RegisterNative(name string, arity int, fn NativeFunc) {
	e.natives[name] = NewNative(name, arity, fn)
}

// Natives returns a copy of the registered native map.
func (e *Engine) Natives() map[string]Value {
	out := make(map[string]Value, len(e.natives))
	maps.Copy(out, e.natives)
	return out
}

// Globals returns a fresh global environment holding the registered natives.
// Reusing one across Execute calls keeps declarations alive between runs.
func (e *Engine) Globals() *Env {
	env := NewEnv(nil)
	for name, native := range e.natives {
		env.Define(name, native)
	}
	return env
}

// Compile scans and parses source. Any lexical error stops compilation
// before parsing; otherwise every syntax error is collected.
func (e *Engine) Compile(source string) (*Script, error) {
	tokens, scanErrors := Scan(source)
	if len(scanErrors) > 0 {
		e.log.Debugf("scan failed with %d errors", len(scanErrors))
		return nil, &CompileError{Errors: scanErrors}
	}

	statements, parseErrors := newParser(tokens, source).ParseProgram()
	if len(parseErrors) > 0 {
		e.log.Debugf("parse failed with %d errors", len(parseErrors))
		return nil, &CompileError{Errors: parseErrors}
	}

	e.log.Debugf("compiled %d tokens into %d statements", len(tokens), len(statements))
	return &Script{engine: e, source: source, statements: statements}, nil
}

// Execute compiles and runs source against a fresh global environment.
func (e *Engine) Execute(ctx context.Context, source string) (Value, error) {
	script, err := e.Compile(source)
	if err != nil {
		return NewNil(), err
	}
	return script.Execute(ctx, nil)
}

// ConfigSummary provides a human-readable description of the interpreter limits.
func (e *Engine) ConfigSummary() string {
	return fmt.Sprintf("max_call_depth=%d natives=%d", e.config.MaxCallDepth, len(e.natives))
}
