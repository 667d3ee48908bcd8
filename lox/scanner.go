package lox

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ScanError reports a lexical problem. Scanning continues past it.
type ScanError struct {
	Pos     Position
	Message string
	source  string
}

func (e *ScanError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scan error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

type scanner struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch rune

	errors []error
}

// Scan converts source text into a token sequence terminated by EOF. Lexical
// errors are collected and returned alongside the tokens that did scan.
func Scan(source string) ([]Token, []error) {
	s := newScanner(source)
	tokens := make([]Token, 0, len(source)/4+1)
	for {
		tok := s.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens, s.errors
		}
	}
}

func newScanner(input string) *scanner {
	s := &scanner{input: input, line: 1, column: 0}
	s.readRune()
	return s
}

func (s *scanner) readRune() {
	if s.offset >= len(s.input) {
		if s.width != 0 || s.column == 0 {
			s.advancePos()
		}
		s.width = 0
		s.ch = 0
		return
	}

	r, w := utf8.DecodeRuneInString(s.input[s.offset:])
	s.width = w
	s.offset += w
	s.advancePos()
	s.ch = r
}

// advancePos moves the position past the current rune. A newline stays on
// the line it terminates; the rune after it starts the next line.
func (s *scanner) advancePos() {
	if s.ch == '\n' {
		s.line++
		s.column = 1
		return
	}
	s.column++
}

func (s *scanner) atEnd() bool {
	return s.width == 0
}

func (s *scanner) peekRune() rune {
	if s.offset >= len(s.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.offset:])
	return r
}

func (s *scanner) currentOffset() int {
	return s.offset - s.width
}

// NextToken returns the next token, recording and skipping anything that
// cannot start one.
func (s *scanner) NextToken() Token {
	for {
		s.skipWhitespaceAndComments()

		pos := Position{Line: s.line, Column: s.column}
		start := s.currentOffset()

		if s.atEnd() {
			return Token{Type: tokenEOF, Pos: pos}
		}

		switch s.ch {
		case '(':
			return s.single(tokenLParen, start, pos)
		case ')':
			return s.single(tokenRParen, start, pos)
		case '{':
			return s.single(tokenLBrace, start, pos)
		case '}':
			return s.single(tokenRBrace, start, pos)
		case ',':
			return s.single(tokenComma, start, pos)
		case '.':
			return s.single(tokenDot, start, pos)
		case '-':
			return s.single(tokenMinus, start, pos)
		case '+':
			return s.single(tokenPlus, start, pos)
		case ';':
			return s.single(tokenSemicolon, start, pos)
		case '/':
			return s.single(tokenSlash, start, pos)
		case '*':
			return s.single(tokenStar, start, pos)
		case '!':
			return s.oneOrTwo(tokenBang, tokenNotEQ, start, pos)
		case '=':
			return s.oneOrTwo(tokenAssign, tokenEQ, start, pos)
		case '<':
			return s.oneOrTwo(tokenLT, tokenLTE, start, pos)
		case '>':
			return s.oneOrTwo(tokenGT, tokenGTE, start, pos)
		case '"':
			if tok, ok := s.readString(start, pos); ok {
				return tok
			}
			continue
		}

		switch {
		case isAlpha(s.ch):
			s.readIdentifier()
			lexeme := s.input[start:s.currentOffset()]
			return Token{Type: lookupIdent(lexeme), Lexeme: lexeme, Pos: pos}
		case isDigit(s.ch):
			s.readNumber()
			lexeme := s.input[start:s.currentOffset()]
			value, err := strconv.ParseFloat(lexeme, 64)
			if err != nil {
				s.addError(pos, fmt.Sprintf("invalid number literal %s", lexeme))
				continue
			}
			return Token{Type: tokenNumber, Lexeme: lexeme, Literal: value, Pos: pos}
		default:
			s.addError(pos, fmt.Sprintf("unexpected character %q", s.ch))
			s.readRune()
		}
	}
}

func (s *scanner) single(tt TokenType, start int, pos Position) Token {
	s.readRune()
	return Token{Type: tt, Lexeme: s.input[start:s.currentOffset()], Pos: pos}
}

func (s *scanner) oneOrTwo(one, two TokenType, start int, pos Position) Token {
	if s.peekRune() == '=' {
		s.readRune()
		return s.single(two, start, pos)
	}
	return s.single(one, start, pos)
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		switch s.ch {
		case ' ', '\t', '\r', '\n':
			s.readRune()
		case '/':
			if s.peekRune() != '/' {
				return
			}
			s.skipComment()
		default:
			return
		}
	}
}

func (s *scanner) skipComment() {
	for !s.atEnd() && s.ch != '\n' {
		s.readRune()
	}
}

func (s *scanner) readIdentifier() {
	for isAlphaNumeric(s.ch) {
		s.readRune()
	}
}

func (s *scanner) readNumber() {
	for isDigit(s.ch) {
		s.readRune()
	}
	// A dot only belongs to the number when a digit follows it.
	if s.ch == '.' && isDigit(s.peekRune()) {
		s.readRune()
		for isDigit(s.ch) {
			s.readRune()
		}
	}
}

func (s *scanner) readString(start int, pos Position) (Token, bool) {
	s.readRune()
	for !s.atEnd() && s.ch != '"' {
		s.readRune()
	}
	if s.atEnd() {
		s.addError(pos, "unterminated string")
		return Token{}, false
	}
	s.readRune()
	lexeme := s.input[start:s.currentOffset()]
	return Token{Type: tokenString, Lexeme: lexeme, Literal: lexeme[1 : len(lexeme)-1], Pos: pos}, true
}

func (s *scanner) addError(pos Position, msg string) {
	s.errors = append(s.errors, &ScanError{Pos: pos, Message: msg, source: s.input})
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
