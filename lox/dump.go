package lox

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

type tokenDump struct {
	Type    string `yaml:"type"`
	Lexeme  string `yaml:"lexeme,omitempty"`
	Literal any    `yaml:"literal,omitempty"`
	Line    int    `yaml:"line"`
	Column  int    `yaml:"column"`
}

type nodeDump struct {
	Node       string      `yaml:"node"`
	Line       int         `yaml:"line"`
	Name       string      `yaml:"name,omitempty"`
	Operator   string      `yaml:"operator,omitempty"`
	Kind       string      `yaml:"kind,omitempty"`
	Value      *string     `yaml:"value,omitempty"`
	Params     []string    `yaml:"params,omitempty"`
	Condition  *nodeDump   `yaml:"condition,omitempty"`
	Callee     *nodeDump   `yaml:"callee,omitempty"`
	Left       *nodeDump   `yaml:"left,omitempty"`
	Right      *nodeDump   `yaml:"right,omitempty"`
	Expr       *nodeDump   `yaml:"expr,omitempty"`
	Then       *nodeDump   `yaml:"then,omitempty"`
	Else       *nodeDump   `yaml:"else,omitempty"`
	Body       *nodeDump   `yaml:"body,omitempty"`
	Args       []*nodeDump `yaml:"args,omitempty"`
	Statements []*nodeDump `yaml:"statements,omitempty"`
}

// DumpTokens renders a token stream as YAML.
func DumpTokens(tokens []Token) ([]byte, error) {
	out := make([]tokenDump, len(tokens))
	for i, tok := range tokens {
		out[i] = tokenDump{
			Type:    string(tok.Type),
			Lexeme:  tok.Lexeme,
			Literal: tok.Literal,
			Line:    tok.Pos.Line,
			Column:  tok.Pos.Column,
		}
	}
	return encodeYAML(out)
}

// DumpProgram renders parsed statements as a YAML tree.
func DumpProgram(statements []Statement) ([]byte, error) {
	out := make([]*nodeDump, len(statements))
	for i, stmt := range statements {
		out[i] = dumpStatement(stmt)
	}
	return encodeYAML(out)
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("dump: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("dump: encoder close: %w", err)
	}
	return buf.Bytes(), nil
}

func dumpStatements(stmts []Statement) []*nodeDump {
	out := make([]*nodeDump, len(stmts))
	for i, stmt := range stmts {
		out[i] = dumpStatement(stmt)
	}
	return out
}

func dumpStatement(stmt Statement) *nodeDump {
	if stmt == nil {
		return nil
	}
	node := &nodeDump{Line: stmt.Pos().Line}
	switch s := stmt.(type) {
	case *ExprStmt:
		node.Node = "expression"
		node.Expr = dumpExpression(s.Expr)
	case *PrintStmt:
		node.Node = "print"
		node.Expr = dumpExpression(s.Expr)
	case *VarStmt:
		node.Node = "var"
		node.Name = s.Name
		node.Expr = dumpExpression(s.Initializer)
	case *BlockStmt:
		node.Node = "block"
		node.Statements = dumpStatements(s.Statements)
	case *IfStmt:
		node.Node = "if"
		node.Condition = dumpExpression(s.Condition)
		node.Then = dumpStatement(s.Consequent)
		node.Else = dumpStatement(s.Alternate)
	case *WhileStmt:
		node.Node = "while"
		node.Condition = dumpExpression(s.Condition)
		node.Body = dumpStatement(s.Body)
	case *FunctionStmt:
		node.Node = "function"
		node.Name = s.Name
		for _, param := range s.Params {
			node.Params = append(node.Params, param.Name)
		}
		node.Statements = dumpStatements(s.Body)
	case *ReturnStmt:
		node.Node = "return"
		node.Expr = dumpExpression(s.Value)
	default:
		node.Node = fmt.Sprintf("%T", stmt)
	}
	return node
}

func dumpExpression(expr Expression) *nodeDump {
	if expr == nil {
		return nil
	}
	node := &nodeDump{Line: expr.Pos().Line}
	switch e := expr.(type) {
	case *LiteralExpr:
		node.Node = "literal"
		node.Kind = e.Value.Kind().String()
		text := e.Value.String()
		node.Value = &text
	case *GroupingExpr:
		node.Node = "grouping"
		node.Expr = dumpExpression(e.Inner)
	case *UnaryExpr:
		node.Node = "unary"
		node.Operator = string(e.Operator)
		node.Right = dumpExpression(e.Right)
	case *BinaryExpr:
		node.Node = "binary"
		node.Operator = string(e.Operator)
		node.Left = dumpExpression(e.Left)
		node.Right = dumpExpression(e.Right)
	case *LogicalExpr:
		node.Node = "logical"
		node.Operator = string(e.Operator)
		node.Left = dumpExpression(e.Left)
		node.Right = dumpExpression(e.Right)
	case *VariableExpr:
		node.Node = "variable"
		node.Name = e.Name
	case *AssignExpr:
		node.Node = "assign"
		node.Name = e.Name
		node.Expr = dumpExpression(e.Value)
	case *CallExpr:
		node.Node = "call"
		node.Callee = dumpExpression(e.Callee)
		for _, arg := range e.Args {
			node.Args = append(node.Args, dumpExpression(arg))
		}
	default:
		node.Node = fmt.Sprintf("%T", expr)
	}
	return node
}
