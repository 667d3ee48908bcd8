package lox

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error at the offending token.
type ParseError struct {
	Pos     Position
	Lexeme  string
	Message string
	source  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func (p *parser) errorExpected(tok Token, expected string) {
	p.addParseError(tok, fmt.Sprintf("expected %s, got %s", expected, tokenLabel(tok)))
}

func (p *parser) addParseError(tok Token, msg string) {
	if p.abandoned {
		return
	}
	p.errors = append(p.errors, &ParseError{Pos: tok.Pos, Lexeme: tok.Lexeme, Message: msg, source: p.source})
}

func tokenLabel(tok Token) string {
	switch tok.Type {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return fmt.Sprintf("identifier %s", tok.Lexeme)
	case tokenNumber:
		return fmt.Sprintf("number %s", tok.Lexeme)
	case tokenString:
		return "string"
	default:
		if tok.Lexeme != "" {
			return "'" + tok.Lexeme + "'"
		}
		return "'" + string(tok.Type) + "'"
	}
}
