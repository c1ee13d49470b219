package parser

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// parseConfig parses one `!keyword(...)` clause. The arguments are kept as
// tokens; only their shape is checked here.
func (p *Parser) parseConfig() *ast.Config {
	kw := p.advance()
	cfg := &ast.Config{Span: kw.Span, Kind: kw.Kind, Keyword: kw.Span}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after "+kw.Text); !ok {
		return cfg
	}
	args, end, _ := p.collectUntilClose()
	cfg.Args = args
	cfg.Span = cfg.Span.Cover(end)
	p.checkConfigShape(cfg)
	return cfg
}

func (p *Parser) checkConfigShape(cfg *ast.Config) {
	args := cfg.Args
	inner := cfg.Span
	if len(args) > 0 {
		inner = args[0].Span.Cover(args[len(args)-1].Span)
	}
	switch cfg.Kind {
	case token.CfgWhere, token.CfgOrderBy:
		if len(args) == 0 {
			p.report(diag.SynExpectIdentifier, diag.SevError, inner, "!"+cfg.Name()+" needs an argument")
		}
	case token.CfgFilter, token.CfgRecursion:
		if !isQualifiedName(args) {
			p.report(diag.SynExpectType, diag.SevError, inner, "!"+cfg.Name()+" expects a class name")
		}
	case token.CfgFetchType:
		if len(args) != 1 || !args[0].IsWord() {
			p.report(diag.SynExpectIdentifier, diag.SevError, inner, "!fetchType expects one of JOIN_IF_NO_CACHE, SELECT, JOIN_ALWAYS")
		}
	case token.CfgLimit:
		ok := len(args) == 1 && args[0].Kind == token.IntLit ||
			len(args) == 3 && args[0].Kind == token.IntLit && args[1].Kind == token.Comma && args[2].Kind == token.IntLit
		if !ok {
			p.report(diag.SynExpectLiteral, diag.SevError, inner, "!limit expects (limit) or (limit, offset)")
		}
	case token.CfgOffset, token.CfgBatch, token.CfgDepth:
		if len(args) != 1 || args[0].Kind != token.IntLit {
			p.report(diag.SynExpectLiteral, diag.SevError, inner, "!"+cfg.Name()+" expects an integer")
		}
	}
}

func isQualifiedName(args []token.Token) bool {
	if len(args) == 0 || len(args)%2 == 0 {
		return false
	}
	for i, a := range args {
		if i%2 == 0 && !a.IsWord() || i%2 == 1 && a.Kind != token.Dot {
			return false
		}
	}
	return true
}
