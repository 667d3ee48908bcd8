package lox

import "strings"

const formatIndent = "  "

// Format normalizes line endings outside string literals, strips trailing whitespace and reindents
// every line by its brace depth. Comments are kept. Continuation lines of
// a multi-line string are left untouched. Source that does not scan is
// returned as a *CompileError.
func Format(source string) (string, error) {
	normalized := normalizeLineEndings(source)

	tokens, scanErrors := Scan(normalized)
	if len(scanErrors) > 0 {
		return "", &CompileError{Errors: scanErrors}
	}

	lines := strings.Split(normalized, "\n")
	out := make([]string, len(lines))
	depth := 0
	next := 0
	inString := 0 // last line covered by an open multi-line string

	for i, line := range lines {
		lineNo := i + 1
		verbatim := lineNo <= inString

		indent := depth
		first := true
		for next < len(tokens) && tokens[next].Type != tokenEOF && tokens[next].Pos.Line <= lineNo {
			tok := tokens[next]
			next++
			if first && tok.Type == tokenRBrace {
				indent = depth - 1
			}
			first = false
			switch tok.Type {
			case tokenLBrace:
				depth++
			case tokenRBrace:
				depth = max(depth-1, 0)
			case tokenString:
				inString = max(inString, tok.Pos.Line+strings.Count(tok.Lexeme, "\n"))
			}
		}

		switch {
		case verbatim:
			out[i] = line
		case lineNo < inString:
			// The string opened on this line owns its trailing whitespace.
			out[i] = indentLine(line, indent)
		default:
			out[i] = indentLine(strings.TrimRight(line, " \t"), indent)
		}
	}

	joined := strings.TrimRight(strings.Join(out, "\n"), "\n")
	return joined + "\n", nil
}

func indentLine(line string, depth int) string {
	content := strings.TrimLeft(line, " \t")
	if content == "" {
		return ""
	}
	return strings.Repeat(formatIndent, max(depth, 0)) + content
}

// normalizeLineEndings turns CRLF and lone CR into LF. String literals keep
// their bytes. A lone CR inside a line comment is kept too, since the
// comment only ends at LF.
func normalizeLineEndings(source string) string {
	if !strings.Contains(source, "\r") {
		return source
	}
	var b strings.Builder
	b.Grow(len(source))
	inString, inComment := false, false
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case inString:
			if c == '"' {
				inString = false
			}
		case c == '\r':
			if i+1 < len(source) && source[i+1] == '\n' {
				continue
			}
			if !inComment {
				c = '\n'
			}
		case c == '\n':
			inComment = false
		case inComment:
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			inComment = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
