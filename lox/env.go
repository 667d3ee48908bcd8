package lox

import "sort"

// Env is one lexical scope frame. Frames are shared by pointer between
// closures and active calls.
type Env struct {
	parent *Env
	values map[string]Value
}

// NewEnv creates a frame whose lookups fall back to parent. A nil parent
// makes a global frame.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, values: make(map[string]Value)}
}

// Get searches this frame and then each enclosing frame.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.values[name]; ok {
			return val, true
		}
	}
	return Value{}, false
}

// Define binds name in this frame, replacing any existing binding here.
func (e *Env) Define(name string, val Value) {
	e.values[name] = val
}

// Assign updates the nearest frame that binds name. It never declares.
func (e *Env) Assign(name string, val Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			env.values[name] = val
			return true
		}
	}
	return false
}

// Names lists the names bound directly in this frame.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
