package parser

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// parsePositiveProp parses a referenced prop:
//
//	Doc? config* annotation* +? modifier? (func flag? (args) | name) (?|!|*)? (as alias)?
//	    (Doc? annotation* (implements T, ...)? { ... } | -> { enum mappings })?
func (p *Parser) parsePositiveProp() *ast.PositiveProp {
	pp := &ast.PositiveProp{Span: p.peek().Span}
	pp.Doc = p.parseDoc()
	for p.peek().IsConfiguration() {
		pp.Configs = append(pp.Configs, p.parseConfig())
	}
	pp.Annotations = p.parseAnnotations()
	if tok, ok := p.eat(token.Plus); ok {
		pp.Plus = true
		pp.Span = pp.Span.Cover(tok.Span)
	}
	if isPropModifier(p.peek().Kind) && p.peekN(1).IsWord() {
		tok := p.advance()
		pp.Modifier = &ast.Ident{Name: tok.Text, Span: tok.Span}
	}

	if !p.peek().IsWord() {
		p.err(diag.SynExpectIdentifier, "expected prop name, got "+describe(p.peek()))
		pp.Span = pp.Span.Cover(p.lastSpan)
		return pp
	}
	name := p.advance()
	ident := ast.Ident{Name: name.Text, Span: name.Span}
	pp.Span = pp.Span.Cover(name.Span)

	if p.atOr(token.Slash, token.LParen) {
		pp.Func = &ident
		if p.at(token.Slash) {
			pp.FuncFlag = p.parseFuncFlag()
		}
		if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name"); ok {
			for !p.atOr(token.RParen, token.EOF, token.RBrace) {
				arg, ok := p.parseWord("expected prop name")
				if !ok {
					break
				}
				pp.Args = append(pp.Args, arg)
				if _, ok := p.eat(token.Comma); !ok {
					break
				}
			}
			if len(pp.Args) == 0 {
				p.err(diag.SynExpectIdentifier, "function '"+ident.Name+"' needs at least one prop")
			}
			if rp, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' to close function arguments"); ok {
				pp.Span = pp.Span.Cover(rp.Span)
			} else {
				p.resyncUntil(token.RParen, token.Comma, token.Semicolon)
				p.eat(token.RParen)
			}
		}
	} else {
		pp.Args = []ast.Ident{ident}
	}

suffixes:
	for {
		switch p.peek().Kind {
		case token.Question:
			pp.Optional = true
		case token.Bang:
			pp.Required = true
		case token.Star:
			pp.Recursive = true
		default:
			break suffixes
		}
		pp.Span = pp.Span.Cover(p.advance().Span)
	}

	if p.at(token.KwAs) && p.peekN(1).Kind != token.LParen {
		p.advance()
		alias, ok := p.parseWord("expected alias after 'as'")
		if ok {
			pp.Alias = &alias
			pp.Span = pp.Span.Cover(alias.Span)
		}
	}

	switch {
	case p.at(token.Arrow):
		p.advance()
		pp.EnumBody = p.parseEnumBody()
		if pp.EnumBody != nil {
			pp.Span = pp.Span.Cover(pp.EnumBody.Span)
		}
	case p.bodyFollows():
		pp.ChildDoc = p.parseDoc()
		pp.BodyAnnotations = p.parseAnnotations()
		if _, ok := p.eat(token.KwImplements); ok {
			pp.BodyImplements = p.parseTypeRefList()
		}
		if p.at(token.LBrace) {
			pp.Body = p.parseBody()
			pp.Span = pp.Span.Cover(pp.Body.Span)
		}
	}
	return pp
}

func isPropModifier(k token.Kind) bool {
	switch k {
	case token.KwFixed, token.KwStatic, token.KwDynamic, token.KwFuzzy:
		return true
	default:
		return false
	}
}

// bodyFollows reports whether the upcoming tokens are a child body, possibly
// preceded by a doc comment, annotations and an implements clause. Annotations
// followed by anything else belong to the next prop.
func (p *Parser) bodyFollows() bool {
	i := p.skipPrefix(0)
	if p.peekN(i).Kind == token.KwImplements {
		for {
			k := p.peekN(i).Kind
			if k == token.LBrace {
				return true
			}
			if k == token.EOF || k == token.RBrace || k == token.Semicolon {
				return false
			}
			i++
		}
	}
	return p.peekN(i).Kind == token.LBrace
}

// parseFuncFlag parses the `/i^$` block of string functions like `like/i(name)`.
func (p *Parser) parseFuncFlag() *ast.FuncFlag {
	slash := p.advance()
	flag := &ast.FuncFlag{Span: slash.Span}
	if p.peek().Kind == token.Ident {
		tok := p.advance()
		flag.Insensitive = &ast.Ident{Name: tok.Text, Span: tok.Span}
		flag.Span = flag.Span.Cover(tok.Span)
	}
	if tok, ok := p.eat(token.Caret); ok {
		flag.Prefix = true
		flag.Span = flag.Span.Cover(tok.Span)
	}
	if tok, ok := p.eat(token.Dollar); ok {
		flag.Suffix = true
		flag.Span = flag.Span.Cover(tok.Span)
	}
	return flag
}

// parseEnumBody parses `{ CONSTANT: value ... }` after '->'.
func (p *Parser) parseEnumBody() *ast.EnumBody {
	lb, ok := p.expect(token.LBrace, diag.SynExpectBody, "expected '{' after '->'")
	if !ok {
		return nil
	}
	eb := &ast.EnumBody{Span: lb.Span}
	for !p.atOr(token.RBrace, token.EOF) {
		constant, ok := p.parseWord("expected enum constant")
		if !ok {
			p.advance()
			p.resyncProp()
			continue
		}
		m := ast.EnumMapping{Span: constant.Span, Constant: constant}
		if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after enum constant"); ok {
			m.Value = p.parseEnumValue()
			if m.Value.Kind != token.Invalid {
				m.Span = m.Span.Cover(m.Value.Span)
			}
		}
		eb.Mappings = append(eb.Mappings, m)
		if p.atOr(token.Comma, token.Semicolon) {
			p.advance()
		}
	}
	if len(eb.Mappings) == 0 {
		p.report(diag.SynExpectIdentifier, diag.SevError, lb.Span, "enum mapping body is empty")
	}
	if rb, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close enum mappings"); ok {
		eb.Span = eb.Span.Cover(rb.Span)
	} else {
		eb.Span = eb.Span.Cover(p.lastSpan)
	}
	return eb
}

func (p *Parser) parseEnumValue() token.Token {
	tok := p.peek()
	switch tok.Kind {
	case token.StringLit, token.SqlStringLit, token.IntLit, token.CharLit:
		return p.advance()
	case token.Minus:
		if next := p.peekN(1); next.Kind == token.IntLit && next.Span.Start == tok.Span.End {
			p.advance()
			p.advance()
			return token.Token{Kind: token.IntLit, Span: tok.Span.Cover(next.Span), Text: "-" + next.Text}
		}
	}
	p.err(diag.SynExpectLiteral, "expected string or integer enum value, got "+describe(tok))
	return token.Token{Kind: token.Invalid, Span: p.getDiagnosticSpan()}
}
