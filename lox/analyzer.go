package lox

import (
	"fmt"
	"sort"
)

// Warning is a non-fatal finding from Analyze.
type Warning struct {
	Function string
	Pos      Position
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s (%s)", w.Pos.Line, w.Pos.Column, w.Message, w.Function)
}

type localVar struct {
	pos     Position
	defined bool
	used    bool
	exempt  bool
}

type analyzer struct {
	function string
	scopes   []map[string]*localVar
	order    [][]string
	warnings []Warning
}

// Analyze reports unreachable statements, locals read in their own
// initializer and block locals that are never read. Globals and parameters
// are never reported as unused.
func Analyze(statements []Statement) []Warning {
	a := &analyzer{function: "<script>"}
	a.statements(statements)

	sort.SliceStable(a.warnings, func(i, j int) bool {
		if a.warnings[i].Pos.Line != a.warnings[j].Pos.Line {
			return a.warnings[i].Pos.Line < a.warnings[j].Pos.Line
		}
		return a.warnings[i].Pos.Column < a.warnings[j].Pos.Column
	})
	return a.warnings
}

func (a *analyzer) warn(pos Position, format string, args ...any) {
	a.warnings = append(a.warnings, Warning{Function: a.function, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// statements walks a statement list and reports whether it always returns.
func (a *analyzer) statements(stmts []Statement) bool {
	terminated := false
	for _, stmt := range stmts {
		if terminated {
			a.warn(stmt.Pos(), "unreachable statement")
		}
		if a.statement(stmt) {
			terminated = true
		}
	}
	return terminated
}

func (a *analyzer) statement(stmt Statement) bool {
	switch s := stmt.(type) {
	case *ExprStmt:
		a.expression(s.Expr)
	case *PrintStmt:
		a.expression(s.Expr)
	case *VarStmt:
		a.declare(s.Name, s.Pos(), false)
		if s.Initializer != nil {
			a.expression(s.Initializer)
		}
		a.define(s.Name)
	case *BlockStmt:
		a.beginScope()
		terminated := a.statements(s.Statements)
		a.endScope()
		return terminated
	case *IfStmt:
		a.expression(s.Condition)
		consequent := a.statement(s.Consequent)
		if s.Alternate == nil {
			return false
		}
		alternate := a.statement(s.Alternate)
		return consequent && alternate
	case *WhileStmt:
		a.expression(s.Condition)
		a.statement(s.Body)
	case *FunctionStmt:
		a.declare(s.Name, s.Pos(), true)
		a.define(s.Name)
		a.functionBody(s)
	case *ReturnStmt:
		if s.Value != nil {
			a.expression(s.Value)
		}
		return true
	}
	return false
}

func (a *analyzer) functionBody(fn *FunctionStmt) {
	enclosing := a.function
	a.function = fn.Name
	a.beginScope()
	for _, param := range fn.Params {
		a.declare(param.Name, param.Pos, true)
		a.define(param.Name)
	}
	a.statements(fn.Body)
	a.endScope()
	a.function = enclosing
}

func (a *analyzer) expression(expr Expression) {
	switch e := expr.(type) {
	case *GroupingExpr:
		a.expression(e.Inner)
	case *UnaryExpr:
		a.expression(e.Right)
	case *BinaryExpr:
		a.expression(e.Left)
		a.expression(e.Right)
	case *LogicalExpr:
		a.expression(e.Left)
		a.expression(e.Right)
	case *VariableExpr:
		a.read(e.Name, e.Pos())
	case *AssignExpr:
		a.expression(e.Value)
	case *CallExpr:
		a.expression(e.Callee)
		for _, arg := range e.Args {
			a.expression(arg)
		}
	}
}

func (a *analyzer) beginScope() {
	a.scopes = append(a.scopes, map[string]*localVar{})
	a.order = append(a.order, nil)
}

func (a *analyzer) endScope() {
	n := len(a.scopes) - 1
	scope, names := a.scopes[n], a.order[n]
	for _, name := range names {
		local := scope[name]
		if !local.used && !local.exempt {
			a.warn(local.pos, "local variable '%s' is never read", name)
		}
	}
	a.scopes = a.scopes[:n]
	a.order = a.order[:n]
}

// declare is a no-op at global scope, where bindings are late-bound.
func (a *analyzer) declare(name string, pos Position, exempt bool) {
	if len(a.scopes) == 0 {
		return
	}
	n := len(a.scopes) - 1
	if _, exists := a.scopes[n][name]; !exists {
		a.order[n] = append(a.order[n], name)
	}
	a.scopes[n][name] = &localVar{pos: pos, exempt: exempt}
}

func (a *analyzer) define(name string) {
	if len(a.scopes) == 0 {
		return
	}
	if local, ok := a.scopes[len(a.scopes)-1][name]; ok {
		local.defined = true
	}
}

func (a *analyzer) read(name string, pos Position) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		local, ok := a.scopes[i][name]
		if !ok {
			continue
		}
		if !local.defined {
			a.warn(pos, "local variable '%s' is read in its own initializer", name)
		}
		local.used = true
		return
	}
}
