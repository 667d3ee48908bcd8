package lox

import (
	"context"
	"fmt"
	"io"
)

// Script is a compiled program ready to run.
type Script struct {
	engine     *Engine
	source     string
	statements []Statement
}

// Statements returns the parsed program.
func (s *Script) Statements() []Statement {
	return s.statements
}

type callFrame struct {
	Function string
	Pos      Position
}

// Execution holds the state of one run. It is not safe for concurrent use.
type Execution struct {
	engine    *Engine
	script    *Script
	ctx       context.Context
	stdout    io.Writer
	maxDepth  int
	steps     int
	callStack []callFrame
}

// Stdout is where print output for this run goes.
func (exec *Execution) Stdout() io.Writer {
	return exec.stdout
}

// Execute runs the program against globals, or against a fresh global
// environment when globals is nil. It returns the value of the final
// statement when that statement is an expression statement, Nil otherwise.
func (s *Script) Execute(ctx context.Context, globals *Env) (Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if globals == nil {
		globals = s.engine.Globals()
	}

	exec := &Execution{
		engine:    s.engine,
		script:    s,
		ctx:       ctx,
		stdout:    s.engine.config.Stdout,
		maxDepth:  s.engine.config.MaxCallDepth,
		callStack: make([]callFrame, 0, 8),
	}

	log := s.engine.execLog
	log.Debugf("executing %d statements", len(s.statements))

	result := NewNil()
	for _, stmt := range s.statements {
		if err := exec.step(); err != nil {
			return NewNil(), err
		}
		val, _, err := exec.execStatement(stmt, globals)
		if err != nil {
			log.Infof("execution failed after %d steps: %s", exec.steps, firstLine(err.Error()))
			return NewNil(), err
		}
		if _, ok := stmt.(*ExprStmt); ok {
			result = val
		} else {
			result = NewNil()
		}
	}

	log.Debugf("execution finished after %d steps", exec.steps)
	return result, nil
}

func (exec *Execution) execStatements(stmts []Statement, env *Env) (Value, bool, error) {
	for _, stmt := range stmts {
		if err := exec.step(); err != nil {
			return NewNil(), false, err
		}
		val, returned, err := exec.execStatement(stmt, env)
		if err != nil {
			return NewNil(), false, err
		}
		if returned {
			return val, true, nil
		}
	}
	return NewNil(), false, nil
}

// execStatement runs one statement. The returned flag is set when a return
// statement executed and the enclosing function call must unwind.
func (exec *Execution) execStatement(stmt Statement, env *Env) (Value, bool, error) {
	switch s := stmt.(type) {
	case *ExprStmt:
		val, err := exec.evalExpression(s.Expr, env)
		return val, false, err
	case *PrintStmt:
		val, err := exec.evalExpression(s.Expr, env)
		if err != nil {
			return NewNil(), false, err
		}
		if _, err := fmt.Fprintln(exec.stdout, val.String()); err != nil {
			return NewNil(), false, fmt.Errorf("print: %w", err)
		}
		return NewNil(), false, nil
	case *VarStmt:
		val := NewNil()
		if s.Initializer != nil {
			var err error
			if val, err = exec.evalExpression(s.Initializer, env); err != nil {
				return NewNil(), false, err
			}
		}
		env.Define(s.Name, val)
		return NewNil(), false, nil
	case *BlockStmt:
		return exec.execStatements(s.Statements, NewEnv(env))
	case *IfStmt:
		cond, err := exec.evalExpression(s.Condition, env)
		if err != nil {
			return NewNil(), false, err
		}
		if cond.Truthy() {
			return exec.execStatement(s.Consequent, env)
		}
		if s.Alternate != nil {
			return exec.execStatement(s.Alternate, env)
		}
		return NewNil(), false, nil
	case *WhileStmt:
		return exec.execWhile(s, env)
	case *FunctionStmt:
		env.Define(s.Name, newFunction(&Function{decl: s, closure: env}))
		return NewNil(), false, nil
	case *ReturnStmt:
		if s.Value == nil {
			return NewNil(), true, nil
		}
		val, err := exec.evalExpression(s.Value, env)
		if err != nil {
			return NewNil(), false, err
		}
		return val, true, nil
	default:
		return NewNil(), false, exec.errorAt(stmt.Pos(), "unsupported statement %T", stmt)
	}
}

func (exec *Execution) execWhile(s *WhileStmt, env *Env) (Value, bool, error) {
	for {
		if err := exec.step(); err != nil {
			return NewNil(), false, err
		}
		cond, err := exec.evalExpression(s.Condition, env)
		if err != nil {
			return NewNil(), false, err
		}
		if !cond.Truthy() {
			return NewNil(), false, nil
		}
		val, returned, err := exec.execStatement(s.Body, env)
		if err != nil {
			return NewNil(), false, err
		}
		if returned {
			return val, true, nil
		}
	}
}

func (exec *Execution) evalExpression(expr Expression, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value, nil
	case *GroupingExpr:
		return exec.evalExpression(e.Inner, env)
	case *UnaryExpr:
		return exec.evalUnary(e, env)
	case *BinaryExpr:
		return exec.evalBinary(e, env)
	case *LogicalExpr:
		left, err := exec.evalExpression(e.Left, env)
		if err != nil {
			return NewNil(), err
		}
		if e.Operator == tokenOr {
			if left.Truthy() {
				return left, nil
			}
		} else if !left.Truthy() {
			return left, nil
		}
		return exec.evalExpression(e.Right, env)
	case *VariableExpr:
		val, ok := env.Get(e.Name)
		if !ok {
			return NewNil(), exec.typedErrorAt(ErrUndefinedVariable, e.Pos(), "undefined variable '%s'", e.Name)
		}
		return val, nil
	case *AssignExpr:
		val, err := exec.evalExpression(e.Value, env)
		if err != nil {
			return NewNil(), err
		}
		if !env.Assign(e.Name, val) {
			return NewNil(), exec.typedErrorAt(ErrUndefinedVariable, e.Pos(), "undefined variable '%s'", e.Name)
		}
		return val, nil
	case *CallExpr:
		return exec.evalCall(e, env)
	default:
		return NewNil(), exec.errorAt(expr.Pos(), "unsupported expression %T", expr)
	}
}
