package parser

import (
	"fmt"
	"slices"

	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/lexer"
	"dtolsp/internal/source"
	"dtolsp/internal/token"
)

const maxBodyDepth = 256

type Options struct {
	Path          string // file name recorded on the source.File; "<buffer>" when empty
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter // receives every diagnostic in addition to Result.Bag
}

// Enough reports whether the error budget is exhausted.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	File   *source.File
	Tokens []token.Token
	AST    *ast.File
	Bag    *diag.Bag
}

// Parser holds the state for one file.
type Parser struct {
	file     *source.File
	toks     []token.Token
	pos      int
	opts     Options
	lastSpan source.Span // span of the last consumed token
	depth    int
}

// ParseText parses a whole DTO document. It never panics; malformed input
// yields a partial tree plus syntax diagnostics.
func ParseText(text string, opts Options) Result {
	name := opts.Path
	if name == "" {
		name = "<buffer>"
	}
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual(name, []byte(text)))
	return ParseFile(file, opts)
}

// ParseFile parses an already registered source file.
func ParseFile(file *source.File, opts Options) Result {
	maxErrors := int(opts.MaxErrors)
	if maxErrors == 0 {
		maxErrors = 256
	}
	bag := diag.NewBag(maxErrors)
	var reporter diag.Reporter = diag.BagReporter{Bag: bag}
	if opts.Reporter != nil {
		reporter = teeReporter{reporter, opts.Reporter}
	}
	opts.Reporter = reporter

	toks := lexer.Tokenize(file, lexer.Options{Reporter: reporter})
	p := &Parser{
		file:     file,
		toks:     toks,
		opts:     opts,
		lastSpan: source.Span{File: file.ID},
	}
	tree := p.parseFileSafe()
	return Result{
		File:   file,
		Tokens: toks,
		AST:    tree,
		Bag:    bag,
	}
}

// parseFileSafe turns an internal fault into a diagnostic so a bad buffer can
// never bring the server down.
func (p *Parser) parseFileSafe() (tree *ast.File) {
	tree = &ast.File{Span: source.Span{File: p.file.ID}}
	defer func() {
		if r := recover(); r != nil {
			p.report(diag.SynInternalRecovered, diag.SevError, p.getDiagnosticSpan(),
				fmt.Sprintf("parser recovered from an internal error: %v", r))
		}
	}()
	p.parseItems(tree)
	return tree
}

func (p *Parser) parseItems(f *ast.File) {
	start := p.peek().Span
	if p.at(token.KwExport) {
		f.Export = p.parseExport()
	}
	for !p.at(token.EOF) {
		switch {
		case p.at(token.KwExport):
			p.err(diag.SynExportPosition, "export statement must be the first statement of the file")
			p.parseExport()
		case p.at(token.KwImport):
			imp := p.parseImport()
			if imp == nil {
				continue
			}
			if len(f.Types) > 0 {
				p.report(diag.SynImportPosition, diag.SevError, imp.Span, "import statements must precede DTO types")
			}
			f.Imports = append(f.Imports, imp)
		default:
			before := p.pos
			if dto := p.parseDtoType(); dto != nil {
				f.Types = append(f.Types, dto)
			}
			if p.pos == before {
				p.resyncTop()
			}
		}
	}
	f.Span = start.Cover(p.peek().Span)
}

// resyncTop skips to the start of the next plausible top-level item.
func (p *Parser) resyncTop() {
	p.advance()
	for !p.at(token.EOF) {
		tok := p.peek()
		if isTopLevelStarter(tok) {
			return
		}
		if tok.Kind == token.RBrace || tok.Kind == token.Semicolon {
			p.advance()
			return
		}
		p.advance()
	}
}

// isTopLevelStarter reports whether tok can begin an import or a DTO type on a new line.
func isTopLevelStarter(tok token.Token) bool {
	switch tok.Kind {
	case token.KwImport, token.KwExport, token.DocComment, token.At:
		return true
	case token.Ident, token.KwFixed, token.KwStatic, token.KwDynamic, token.KwFuzzy:
		return tok.HasNewlineBefore()
	default:
		return false
	}
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

func (p *Parser) IsError() bool {
	return p.opts.CurrentErrors != 0
}

type teeReporter struct {
	a, b diag.Reporter
}

func (t teeReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	t.a.Report(code, sev, primary, msg, notes, fixes)
	t.b.Report(code, sev, primary, msg, notes, fixes)
}
