package lox

const (
	maxArgs = 255

	// maxNestingDepth bounds how deeply declarations, statements and
	// expressions may nest, keeping the recursive descent well inside the
	// goroutine stack.
	maxNestingDepth = 2000
)

type parser struct {
	tokens  []Token
	current int
	source  string

	errors []error

	// functionDepth counts enclosing function bodies; return is only
	// legal when it is positive.
	functionDepth int

	// depth counts the nesting levels currently open. Once it would pass
	// maxNestingDepth the rest of the input is abandoned.
	depth     int
	abandoned bool
}

// Parse builds a program from a token sequence. Syntax errors are collected
// with recovery, so the returned statements are a best-effort AST even when
// errors are reported.
func Parse(tokens []Token) ([]Statement, []error) {
	return newParser(tokens, "").ParseProgram()
}

func newParser(tokens []Token, source string) *parser {
	return &parser{tokens: tokens, source: source}
}

func (p *parser) ParseProgram() ([]Statement, []error) {
	var statements []Statement
	for !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}
	return statements, p.errors
}

func (p *parser) declaration() Statement {
	if !p.nest("declaration") {
		return nil
	}
	defer p.unnest()

	var stmt Statement
	switch {
	case p.check(tokenClass):
		p.skipClassDeclaration()
		return nil
	case p.match(tokenFun):
		stmt = p.function()
	case p.match(tokenVar):
		stmt = p.varDeclaration()
	default:
		stmt = p.statement()
	}
	if stmt == nil {
		p.synchronize()
		return nil
	}
	return stmt
}

// skipClassDeclaration reports the unsupported declaration once and skips
// its body so methods inside it do not produce follow-on errors.
func (p *parser) skipClassDeclaration() {
	p.addParseError(p.advance(), "class declarations are not supported")
	for !p.atEnd() && !p.check(tokenLBrace) && !p.check(tokenSemicolon) {
		p.advance()
	}
	if !p.check(tokenLBrace) {
		p.synchronize()
		return
	}
	depth := 0
	for !p.atEnd() {
		tok := p.advance()
		switch tok.Type {
		case tokenLBrace:
			depth++
		case tokenRBrace:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *parser) function() Statement {
	name, ok := p.consume(tokenIdent, "function name")
	if !ok {
		return nil
	}
	if _, ok := p.consume(tokenLParen, "'(' after function name"); !ok {
		return nil
	}
	var params []Param
	if !p.check(tokenRParen) {
		for {
			if len(params) == maxArgs {
				p.addParseError(p.peek(), "can't have more than 255 parameters")
			}
			param, ok := p.consume(tokenIdent, "parameter name")
			if !ok {
				return nil
			}
			params = append(params, Param{Name: param.Lexeme, Pos: param.Pos})
			if !p.match(tokenComma) {
				break
			}
		}
	}
	if _, ok := p.consume(tokenRParen, "')' after parameters"); !ok {
		return nil
	}
	if _, ok := p.consume(tokenLBrace, "'{' before function body"); !ok {
		return nil
	}

	p.functionDepth++
	body, ok := p.blockBody()
	p.functionDepth--
	if !ok {
		return nil
	}
	return &FunctionStmt{Name: name.Lexeme, Params: params, Body: body, position: name.Pos}
}

func (p *parser) varDeclaration() Statement {
	name, ok := p.consume(tokenIdent, "variable name")
	if !ok {
		return nil
	}
	var init Expression
	if p.match(tokenAssign) {
		if init = p.expression(); init == nil {
			return nil
		}
	}
	if _, ok := p.consume(tokenSemicolon, "';' after variable declaration"); !ok {
		return nil
	}
	return &VarStmt{Name: name.Lexeme, Initializer: init, position: name.Pos}
}

func (p *parser) statement() Statement {
	if !p.nest("statement") {
		return nil
	}
	defer p.unnest()

	switch {
	case p.match(tokenFor):
		return p.forStatement()
	case p.match(tokenIf):
		return p.ifStatement()
	case p.match(tokenPrint):
		return p.printStatement()
	case p.match(tokenReturn):
		return p.returnStatement()
	case p.match(tokenWhile):
		return p.whileStatement()
	case p.match(tokenLBrace):
		pos := p.previous().Pos
		body, ok := p.blockBody()
		if !ok {
			return nil
		}
		return &BlockStmt{Statements: body, position: pos}
	default:
		return p.expressionStatement()
	}
}

// forStatement desugars a for loop into an optional initializer block
// around a while loop whose body runs the increment after the original body.
func (p *parser) forStatement() Statement {
	pos := p.previous().Pos
	if _, ok := p.consume(tokenLParen, "'(' after 'for'"); !ok {
		return nil
	}

	var init Statement
	switch {
	case p.match(tokenSemicolon):
	case p.match(tokenVar):
		if init = p.varDeclaration(); init == nil {
			return nil
		}
	default:
		if init = p.expressionStatement(); init == nil {
			return nil
		}
	}

	var cond Expression
	if !p.check(tokenSemicolon) {
		if cond = p.expression(); cond == nil {
			return nil
		}
	}
	if _, ok := p.consume(tokenSemicolon, "';' after loop condition"); !ok {
		return nil
	}

	var incr Expression
	if !p.check(tokenRParen) {
		if incr = p.expression(); incr == nil {
			return nil
		}
	}
	if _, ok := p.consume(tokenRParen, "')' after for clauses"); !ok {
		return nil
	}

	body := p.statement()
	if body == nil {
		return nil
	}

	if incr != nil {
		body = &BlockStmt{
			Statements: []Statement{body, &ExprStmt{Expr: incr, position: incr.Pos()}},
			position:   body.Pos(),
		}
	}
	if cond == nil {
		cond = &LiteralExpr{Value: NewBool(true), position: pos}
	}
	body = &WhileStmt{Condition: cond, Body: body, position: pos}
	if init != nil {
		body = &BlockStmt{Statements: []Statement{init, body}, position: pos}
	}
	return body
}

func (p *parser) ifStatement() Statement {
	pos := p.previous().Pos
	if _, ok := p.consume(tokenLParen, "'(' after 'if'"); !ok {
		return nil
	}
	cond := p.expression()
	if cond == nil {
		return nil
	}
	if _, ok := p.consume(tokenRParen, "')' after if condition"); !ok {
		return nil
	}
	consequent := p.statement()
	if consequent == nil {
		return nil
	}
	var alternate Statement
	if p.match(tokenElse) {
		if alternate = p.statement(); alternate == nil {
			return nil
		}
	}
	return &IfStmt{Condition: cond, Consequent: consequent, Alternate: alternate, position: pos}
}

func (p *parser) printStatement() Statement {
	pos := p.previous().Pos
	expr := p.expression()
	if expr == nil {
		return nil
	}
	if _, ok := p.consume(tokenSemicolon, "';' after value"); !ok {
		return nil
	}
	return &PrintStmt{Expr: expr, position: pos}
}

func (p *parser) returnStatement() Statement {
	keyword := p.previous()
	if p.functionDepth == 0 {
		p.addParseError(keyword, "can't return from top-level code")
	}
	var value Expression
	if !p.check(tokenSemicolon) {
		if value = p.expression(); value == nil {
			return nil
		}
	}
	if _, ok := p.consume(tokenSemicolon, "';' after return value"); !ok {
		return nil
	}
	return &ReturnStmt{Value: value, position: keyword.Pos}
}

func (p *parser) whileStatement() Statement {
	pos := p.previous().Pos
	if _, ok := p.consume(tokenLParen, "'(' after 'while'"); !ok {
		return nil
	}
	cond := p.expression()
	if cond == nil {
		return nil
	}
	if _, ok := p.consume(tokenRParen, "')' after condition"); !ok {
		return nil
	}
	body := p.statement()
	if body == nil {
		return nil
	}
	return &WhileStmt{Condition: cond, Body: body, position: pos}
}

// blockBody parses declarations up to the closing brace. The opening brace
// has already been consumed.
func (p *parser) blockBody() ([]Statement, bool) {
	statements := []Statement{}
	for !p.check(tokenRBrace) && !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}
	if _, ok := p.consume(tokenRBrace, "'}' after block"); !ok {
		return nil, false
	}
	return statements, true
}

func (p *parser) expressionStatement() Statement {
	expr := p.expression()
	if expr == nil {
		return nil
	}
	if _, ok := p.consume(tokenSemicolon, "';' after expression"); !ok {
		return nil
	}
	return &ExprStmt{Expr: expr, position: expr.Pos()}
}

func (p *parser) expression() Expression {
	return p.assignment()
}

func (p *parser) assignment() Expression {
	if !p.nest("expression") {
		return nil
	}
	defer p.unnest()

	expr := p.or()
	if expr == nil {
		return nil
	}
	if !p.match(tokenAssign) {
		return expr
	}

	equals := p.previous()
	value := p.assignment()
	if value == nil {
		return nil
	}
	if target, ok := expr.(*VariableExpr); ok {
		return &AssignExpr{Name: target.Name, Value: value, position: target.position}
	}
	// Reported without unwinding: the parser is not confused.
	p.addParseError(equals, "invalid assignment target")
	return expr
}

func (p *parser) or() Expression {
	expr := p.and()
	for expr != nil && p.match(tokenOr) {
		op := p.previous()
		right := p.and()
		if right == nil {
			return nil
		}
		expr = &LogicalExpr{Left: expr, Operator: op.Type, Right: right, position: op.Pos}
	}
	return expr
}

func (p *parser) and() Expression {
	expr := p.equality()
	for expr != nil && p.match(tokenAnd) {
		op := p.previous()
		right := p.equality()
		if right == nil {
			return nil
		}
		expr = &LogicalExpr{Left: expr, Operator: op.Type, Right: right, position: op.Pos}
	}
	return expr
}

func (p *parser) equality() Expression {
	return p.binary(p.comparison, tokenEQ, tokenNotEQ)
}

func (p *parser) comparison() Expression {
	return p.binary(p.term, tokenGT, tokenGTE, tokenLT, tokenLTE)
}

func (p *parser) term() Expression {
	return p.binary(p.factor, tokenMinus, tokenPlus)
}

func (p *parser) factor() Expression {
	return p.binary(p.unary, tokenSlash, tokenStar)
}

// binary parses one left-associative precedence level iteratively.
func (p *parser) binary(operand func() Expression, ops ...TokenType) Expression {
	expr := operand()
	for expr != nil && p.match(ops...) {
		op := p.previous()
		right := operand()
		if right == nil {
			return nil
		}
		expr = &BinaryExpr{Left: expr, Operator: op.Type, Right: right, position: op.Pos}
	}
	return expr
}

func (p *parser) unary() Expression {
	if !p.nest("expression") {
		return nil
	}
	defer p.unnest()

	if p.match(tokenBang, tokenMinus) {
		op := p.previous()
		right := p.unary()
		if right == nil {
			return nil
		}
		return &UnaryExpr{Operator: op.Type, Right: right, position: op.Pos}
	}
	return p.call()
}

func (p *parser) call() Expression {
	expr := p.primary()
	for expr != nil && p.match(tokenLParen) {
		expr = p.finishCall(expr)
	}
	return expr
}

func (p *parser) finishCall(callee Expression) Expression {
	var args []Expression
	if !p.check(tokenRParen) {
		for {
			if len(args) == maxArgs {
				p.addParseError(p.peek(), "can't have more than 255 arguments")
			}
			arg := p.expression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(tokenComma) {
				break
			}
		}
	}
	paren, ok := p.consume(tokenRParen, "')' after arguments")
	if !ok {
		return nil
	}
	return &CallExpr{Callee: callee, Args: args, Paren: paren.Pos, position: callee.Pos()}
}

func (p *parser) primary() Expression {
	tok := p.peek()
	switch tok.Type {
	case tokenFalse:
		p.advance()
		return &LiteralExpr{Value: NewBool(false), position: tok.Pos}
	case tokenTrue:
		p.advance()
		return &LiteralExpr{Value: NewBool(true), position: tok.Pos}
	case tokenNil:
		p.advance()
		return &LiteralExpr{Value: NewNil(), position: tok.Pos}
	case tokenNumber:
		p.advance()
		n, _ := tok.Literal.(float64)
		return &LiteralExpr{Value: NewNumber(n), position: tok.Pos}
	case tokenString:
		p.advance()
		s, _ := tok.Literal.(string)
		return &LiteralExpr{Value: NewString(s), position: tok.Pos}
	case tokenIdent:
		p.advance()
		return &VariableExpr{Name: tok.Lexeme, position: tok.Pos}
	case tokenLParen:
		p.advance()
		inner := p.expression()
		if inner == nil {
			return nil
		}
		if _, ok := p.consume(tokenRParen, "')' after expression"); !ok {
			return nil
		}
		return &GroupingExpr{Inner: inner, position: tok.Pos}
	default:
		p.errorExpected(tok, "expression")
		return nil
	}
}

// nest opens one nesting level. Past maxNestingDepth it reports a single
// error, skips to the end of input and returns false.
func (p *parser) nest(what string) bool {
	if p.abandoned {
		return false
	}
	if p.depth >= maxNestingDepth {
		p.addParseError(p.peek(), what+" nested too deeply")
		p.abandoned = true
		p.current = len(p.tokens)
		return false
	}
	p.depth++
	return true
}

func (p *parser) unnest() {
	p.depth--
}

// synchronize discards tokens until a statement boundary: just past a
// semicolon, or at a keyword that starts a declaration or statement.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == tokenSemicolon {
			return
		}
		switch p.peek().Type {
		case tokenClass, tokenFun, tokenVar, tokenFor, tokenIf, tokenWhile, tokenPrint, tokenReturn:
			return
		}
		p.advance()
	}
}

func (p *parser) consume(tt TokenType, expected string) (Token, bool) {
	if p.check(tt) {
		return p.advance(), true
	}
	p.errorExpected(p.peek(), expected)
	return Token{}, false
}

func (p *parser) match(types ...TokenType) bool {
	for _, tt := range types {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) check(tt TokenType) bool {
	return p.peek().Type == tt
}

func (p *parser) advance() Token {
	tok := p.peek()
	if !p.atEnd() {
		p.current++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.peek().Type == tokenEOF
}

// peek tolerates token slices without a trailing EOF.
func (p *parser) peek() Token {
	if p.current < len(p.tokens) {
		return p.tokens[p.current]
	}
	eof := Token{Type: tokenEOF}
	if n := len(p.tokens); n > 0 {
		eof.Pos = p.tokens[n-1].Pos
	}
	return eof
}

func (p *parser) previous() Token {
	if p.current == 0 {
		return Token{}
	}
	return p.tokens[p.current-1]
}
