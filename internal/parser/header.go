package parser

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// parseExport parses `export a.b.C (-> package a.b.dto)?`.
func (p *Parser) parseExport() *ast.Export {
	kw := p.advance()
	exp := &ast.Export{Span: kw.Span}
	name, _ := p.parseQualifiedName("expected exported type name")
	exp.Type = name
	exp.Span = exp.Span.Cover(name.Span)
	if p.at(token.Dot) {
		dot := p.advance()
		exp.Span = exp.Span.Cover(dot.Span)
		p.report(diag.SynExpectIdentifier, diag.SevError, dot.Span.AtEnd(), "expected identifier after '.'")
	}
	if p.at(token.Arrow) {
		p.advance()
		if _, ok := p.expect(token.KwPackage, diag.SynUnexpectedToken, "expected 'package' after '->'"); ok {
			pkg, _ := p.parseQualifiedName("expected package name")
			exp.Package = &pkg
			exp.Span = exp.Span.Cover(pkg.Span)
		}
	}
	p.eat(token.Semicolon)
	return exp
}

// parseImport parses the three import shapes:
//
//	import a.b.C
//	import a.b.C as D
//	import a.b.{C, D as E}
func (p *Parser) parseImport() *ast.Import {
	kw := p.advance()
	imp := &ast.Import{Span: kw.Span}
	path, ok := p.parseQualifiedName("expected import path")
	imp.Path = path
	imp.Span = imp.Span.Cover(path.Span)
	if !ok {
		p.resyncUntil(token.KwImport, token.Semicolon)
		p.eat(token.Semicolon)
		return imp
	}

	switch {
	case p.at(token.Dot) && p.peekN(1).Kind == token.LBrace:
		p.advance()
		lb := p.advance()
		imp.Grouped = true
		for !p.atOr(token.RBrace, token.EOF) {
			name, ok := p.parseWord("expected imported type name")
			if !ok {
				p.resyncUntil(token.Comma, token.RBrace, token.KwImport)
				if !p.at(token.Comma) {
					break
				}
				p.advance()
				continue
			}
			it := ast.ImportedType{Name: name}
			if _, ok := p.eat(token.KwAs); ok {
				alias, ok := p.parseWord("expected alias after 'as'")
				if ok {
					it.Alias = &alias
				}
			}
			imp.Group = append(imp.Group, it)
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		if len(imp.Group) == 0 {
			p.report(diag.SynEmptyImportGroup, diag.SevError, lb.Span.Cover(p.peek().Span), "import group is empty")
		}
		rb, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close import group")
		if ok {
			imp.Span = imp.Span.Cover(rb.Span)
		} else {
			imp.Span = imp.Span.Cover(p.lastSpan)
		}
	case p.at(token.Dot):
		// "import a.b." while typing; the parts so far are kept for completion.
		dot := p.advance()
		imp.Span = imp.Span.Cover(dot.Span)
		p.report(diag.SynExpectIdentifier, diag.SevError, dot.Span.AtEnd(), "expected identifier or '{' after '.'")
	case p.at(token.KwAs):
		p.advance()
		alias, ok := p.parseWord("expected alias after 'as'")
		if ok {
			imp.Alias = &alias
			imp.Span = imp.Span.Cover(alias.Span)
		}
	}
	p.eat(token.Semicolon)
	return imp
}
