package lox

func (exec *Execution) pushFrame(function string, pos Position) error {
	if exec.maxDepth > 0 && len(exec.callStack) >= exec.maxDepth {
		return exec.typedErrorAt(ErrStackOverflow, pos, "stack overflow: call depth exceeded (limit %d)", exec.maxDepth)
	}
	exec.callStack = append(exec.callStack, callFrame{Function: function, Pos: pos})
	return nil
}

func (exec *Execution) popFrame() {
	if len(exec.callStack) == 0 {
		return
	}
	exec.callStack = exec.callStack[:len(exec.callStack)-1]
}

// CallDepth reports how many user function calls are active.
func (exec *Execution) CallDepth() int {
	return len(exec.callStack)
}

func (exec *Execution) evalCall(call *CallExpr, env *Env) (Value, error) {
	callee, err := exec.evalExpression(call.Callee, env)
	if err != nil {
		return NewNil(), err
	}

	args := make([]Value, len(call.Args))
	for i, arg := range call.Args {
		val, err := exec.evalExpression(arg, env)
		if err != nil {
			return NewNil(), err
		}
		args[i] = val
	}

	return exec.callValue(callee, args, call.Paren)
}

func (exec *Execution) callValue(callee Value, args []Value, pos Position) (Value, error) {
	if err := exec.step(); err != nil {
		return NewNil(), err
	}

	fn, ok := callee.Callable()
	if !ok {
		return NewNil(), exec.typedErrorAt(ErrNotCallable, pos, "%s value is not callable", callee.Kind())
	}
	if len(args) != fn.Arity() {
		return NewNil(), exec.typedErrorAt(ErrArity, pos, "expected %d arguments but got %d", fn.Arity(), len(args))
	}

	switch f := fn.(type) {
	case *Native:
		val, err := f.fn(exec, args)
		if err != nil {
			return NewNil(), exec.wrapError(err, ErrNative, pos)
		}
		return val, nil
	case *Function:
		return exec.callFunction(f, args, pos)
	default:
		return NewNil(), exec.typedErrorAt(ErrNotCallable, pos, "%s value is not callable", callee.Kind())
	}
}

// callFunction binds args in a fresh frame whose parent is the closure, not
// the caller's environment.
func (exec *Execution) callFunction(fn *Function, args []Value, pos Position) (Value, error) {
	if err := exec.pushFrame(fn.Name(), pos); err != nil {
		return NewNil(), err
	}
	defer exec.popFrame()

	callEnv := NewEnv(fn.closure)
	for i, param := range fn.decl.Params {
		callEnv.Define(param.Name, args[i])
	}

	val, returned, err := exec.execStatements(fn.decl.Body, callEnv)
	if err != nil {
		return NewNil(), err
	}
	if returned {
		return val, nil
	}
	return NewNil(), nil
}
