package main

import (
	"errors"
	"flag"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mgomes/loxscript/lox"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const lspName = "lox-lsp"

// lspServer answers editor requests from the documents it has been sent.
// Every request recompiles the document; sources are small.
type lspServer struct {
	engine *lox.Engine
	log    commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

func newLSPServer(engine *lox.Engine) *lspServer {
	s := &lspServer{
		engine:  engine,
		log:     commonlog.GetLogger("lox.lsp"),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

func lspCommand(args []string) error {
	fs := flag.NewFlagSet("lsp", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts commonOptions
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	engine, err := lox.NewEngine(lox.Config{MaxCallDepth: cfg.Interpreter.MaxCallDepth})
	if err != nil {
		return err
	}
	return newLSPServer(engine).server.RunStdio()
}

func (s *lspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Infof("initializing %s %s", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *lspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *lspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *lspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *lspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text
	s.log.Debugf("opened %s", uri)

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *lspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// Full sync: the last change carries the whole document.
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *lspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *lspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *lspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(text, prefix), nil
}

func (s *lspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(text, word, int(params.Position.Line)+1), nil
}

func (s *lspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	decl, ok := findDeclaration(declarationsIn(text), word, int(params.Position.Line)+1)
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{
		URI:   uri,
		Range: nameRange(strings.Split(text, "\n"), decl.pos, decl.name),
	}}, nil
}

type declaration struct {
	name   string
	kind   string // "function", "variable" or "parameter"
	params []string
	pos    lox.Position
}

// declarationsIn collects every var, fun and parameter declaration the
// parser recovers from text, in source order.
func declarationsIn(text string) []declaration {
	tokens, _ := lox.Scan(text)
	statements, _ := lox.Parse(tokens)

	var decls []declaration
	var walk func(stmts []lox.Statement)
	walkOne := func(stmt lox.Statement) {
		if stmt != nil {
			walk([]lox.Statement{stmt})
		}
	}
	walk = func(stmts []lox.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *lox.VarStmt:
				decls = append(decls, declaration{name: s.Name, kind: "variable", pos: s.Pos()})
			case *lox.FunctionStmt:
				params := make([]string, len(s.Params))
				for i, p := range s.Params {
					params[i] = p.Name
				}
				decls = append(decls, declaration{name: s.Name, kind: "function", params: params, pos: s.Pos()})
				for _, p := range s.Params {
					decls = append(decls, declaration{name: p.Name, kind: "parameter", pos: p.Pos})
				}
				walk(s.Body)
			case *lox.BlockStmt:
				walk(s.Statements)
			case *lox.IfStmt:
				walkOne(s.Consequent)
				walkOne(s.Alternate)
			case *lox.WhileStmt:
				walkOne(s.Body)
			}
		}
	}
	walk(statements)

	sort.SliceStable(decls, func(i, j int) bool {
		if decls[i].pos.Line != decls[j].pos.Line {
			return decls[i].pos.Line < decls[j].pos.Line
		}
		return decls[i].pos.Column < decls[j].pos.Column
	})
	return decls
}

// findDeclaration picks the last declaration of name at or before line,
// falling back to the first one after it for forward references.
func findDeclaration(decls []declaration, name string, line int) (declaration, bool) {
	var (
		found declaration
		ok    bool
	)
	for _, d := range decls {
		if d.name != name {
			continue
		}
		if d.pos.Line <= line || !ok {
			found, ok = d, true
		}
		if d.pos.Line > line {
			break
		}
	}
	return found, ok
}

func (s *lspServer) complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]struct{})
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if !strings.HasPrefix(label, prefix) {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &detail,
		})
	}

	for _, kw := range lox.Keywords() {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}
	for _, name := range slices.Sorted(maps.Keys(s.engine.Natives())) {
		add(name, "native function", protocol.CompletionItemKindFunction)
	}
	for _, d := range declarationsIn(text) {
		switch d.kind {
		case "function":
			add(d.name, fmt.Sprintf("fun %s(%s)", d.name, strings.Join(d.params, ", ")), protocol.CompletionItemKindFunction)
		default:
			add(d.name, d.kind, protocol.CompletionItemKindVariable)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func (s *lspServer) hover(text, word string, line int) *protocol.Hover {
	var body string
	if slices.Contains(lox.Keywords(), word) {
		body = fmt.Sprintf("**%s**\n\nkeyword", word)
	} else if native, ok := s.engine.Natives()[word]; ok {
		callable, _ := native.Callable()
		body = fmt.Sprintf("```lox\n%s\n```\n\nnative function, arity %d", word+"()", callable.Arity())
	} else if decl, ok := findDeclaration(declarationsIn(text), word, line); ok {
		switch decl.kind {
		case "function":
			body = fmt.Sprintf("```lox\nfun %s(%s)\n```\n\ndeclared at line %d", decl.name, strings.Join(decl.params, ", "), decl.pos.Line)
		case "parameter":
			body = fmt.Sprintf("```lox\n%s\n```\n\nparameter, line %d", decl.name, decl.pos.Line)
		default:
			body = fmt.Sprintf("```lox\nvar %s\n```\n\ndeclared at line %d", decl.name, decl.pos.Line)
		}
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: body,
		},
	}
}

func (s *lspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnosticsForSource(text),
	})
}

// diagnosticsForSource reports scan and parse errors. A document that
// compiles is checked by the analyzer instead and its findings reported
// as warnings.
func (s *lspServer) diagnosticsForSource(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	source := lspName
	lines := strings.Split(text, "\n")

	script, err := s.engine.Compile(text)
	if err != nil {
		var compileErr *lox.CompileError
		if !errors.As(err, &compileErr) {
			return diagnostics
		}
		severity := protocol.DiagnosticSeverityError
		for _, entry := range compileErr.Errors {
			d, ok := lox.DiagnosticOf(entry)
			if !ok {
				continue
			}
			width := 1
			var parseErr *lox.ParseError
			if errors.As(entry, &parseErr) && parseErr.Lexeme != "" {
				width = utf8.RuneCountInString(parseErr.Lexeme)
			}
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    spanRange(lines, lox.Position{Line: d.Line, Column: d.Column}, width),
				Severity: &severity,
				Source:   &source,
				Message:  fmt.Sprintf("%s error: %s", d.Phase, d.Message),
			})
		}
		return diagnostics
	}

	severity := protocol.DiagnosticSeverityWarning
	for _, warning := range lox.Analyze(script.Statements()) {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    spanRange(lines, warning.Pos, 1),
			Severity: &severity,
			Source:   &source,
			Message:  warning.Message,
		})
	}
	return diagnostics
}

// spanRange converts a rune-based source position and a width in runes to
// an LSP range, which counts UTF-16 code units.
func spanRange(lines []string, pos lox.Position, width int) protocol.Range {
	line := max(pos.Line-1, 0)
	var text []rune
	if line < len(lines) {
		text = []rune(strings.TrimSuffix(lines[line], "\r"))
	}
	startCol := max(pos.Column-1, 0)
	start := utf16Units(text, 0, startCol)
	end := start + utf16Units(text, startCol, startCol+max(width, 1))
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(start)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
	}
}

// utf16Units counts code units for text[from:to]. Runes past the end of
// the line count as one unit each.
func utf16Units(text []rune, from, to int) int {
	n := 0
	for i := from; i < to; i++ {
		if i < len(text) && text[i] >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func nameRange(lines []string, pos lox.Position, name string) protocol.Range {
	return spanRange(lines, pos, utf8.RuneCountInString(name))
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return line[start:end]
}

// lineAt returns the line under pos and the cursor's byte offset in it.
// LSP characters count UTF-16 code units.
func lineAt(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := strings.TrimSuffix(lines[pos.Line], "\r")

	units := 0
	for offset, r := range line {
		if units >= int(pos.Character) {
			return line, offset, true
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return line, len(line), true
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func boolPtr(b bool) *bool {
	return &b
}
