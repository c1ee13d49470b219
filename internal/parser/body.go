package parser

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// parseBody parses `{ (prop (,|;)?)* }`. The current token must be '{'.
func (p *Parser) parseBody() *ast.Body {
	lb := p.advance()
	body := &ast.Body{Span: lb.Span}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxBodyDepth {
		p.report(diag.SynUnexpectedToken, diag.SevError, lb.Span, "bodies are nested too deeply")
		p.resyncUntil(token.EOF)
		body.Span = body.Span.Cover(p.lastSpan)
		return body
	}

	for !p.atOr(token.RBrace, token.EOF) {
		before := p.pos
		if prop := p.parseProp(); prop != nil {
			body.Props = append(body.Props, prop)
		}
		if p.atOr(token.Comma, token.Semicolon) {
			p.advance()
			continue
		}
		if p.pos == before {
			p.err(diag.SynUnexpectedToken, "unexpected "+describe(p.peek())+" in body")
			p.advance()
			p.resyncProp()
		}
	}

	if rb, ok := p.eat(token.RBrace); ok {
		body.Closed = true
		body.Span = body.Span.Cover(rb.Span)
	} else {
		p.report(diag.SynUnclosedBrace, diag.SevError, lb.Span, "unclosed '{'")
		body.Span = body.Span.Cover(p.lastSpan)
	}
	return body
}

// resyncProp skips to the next prop boundary: a separator, the closing brace,
// or a token that starts a new line and can begin a prop.
func (p *Parser) resyncProp() {
	for !p.at(token.EOF) {
		tok := p.peek()
		switch tok.Kind {
		case token.Comma, token.Semicolon:
			p.advance()
			return
		case token.RBrace:
			return
		}
		if tok.HasNewlineBefore() && canStartProp(tok) {
			return
		}
		p.advance()
	}
}

func canStartProp(tok token.Token) bool {
	switch tok.Kind {
	case token.Hash, token.Minus, token.Plus, token.At, token.DocComment:
		return true
	}
	return tok.IsWord() || tok.IsConfiguration()
}

func (p *Parser) parseProp() ast.Prop {
	switch {
	case p.at(token.Hash):
		return p.parseMacro()
	case p.at(token.Minus):
		return p.parseNegativeProp()
	case p.at(token.KwAs) && p.peekN(1).Kind == token.LParen:
		return p.parseAliasGroup()
	case p.isUserProp():
		return p.parseUserProp()
	case canStartProp(p.peek()):
		return p.parsePositiveProp()
	default:
		return nil
	}
}

// skipPrefix returns the lookahead distance past an optional doc comment and
// any annotations.
func (p *Parser) skipPrefix(i int) int {
	if p.peekN(i).Kind == token.DocComment {
		i++
	}
	for p.peekN(i).Kind == token.At {
		i++
		if p.peekN(i).IsWord() {
			i++
		}
		for p.peekN(i).Kind == token.Dot && p.peekN(i+1).IsWord() {
			i += 2
		}
		if p.peekN(i).Kind == token.LParen {
			i = p.skipGroup(i)
		}
	}
	return i
}

// skipGroup returns the lookahead distance past a balanced paren group starting at i.
func (p *Parser) skipGroup(i int) int {
	depth := 0
	for {
		switch p.peekN(i).Kind {
		case token.EOF:
			return i
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
}

func (p *Parser) isUserProp() bool {
	i := p.skipPrefix(0)
	return p.peekN(i).IsWord() && p.peekN(i+1).Kind == token.Colon
}

// parseMacro parses `#name (Type, ...)? (?|!)?`.
func (p *Parser) parseMacro() *ast.Macro {
	hash := p.advance()
	m := &ast.Macro{Span: hash.Span}
	name, ok := p.parseWord("expected macro name after '#'")
	if !ok {
		return m
	}
	m.Name = name
	m.Span = m.Span.Cover(name.Span)
	if p.at(token.LParen) {
		p.advance()
		m.HasParens = true
		for !p.atOr(token.RParen, token.EOF, token.RBrace) {
			q, ok := p.parseQualifiedName("expected type name")
			if !ok {
				break
			}
			m.Args = append(m.Args, q)
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		rp, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' to close macro arguments")
		if ok {
			m.Span = m.Span.Cover(rp.Span)
		}
	}
	switch p.peek().Kind {
	case token.Question:
		m.Optional = true
		m.Span = m.Span.Cover(p.advance().Span)
	case token.Bang:
		m.Required = true
		m.Span = m.Span.Cover(p.advance().Span)
	}
	return m
}

func (p *Parser) parseNegativeProp() *ast.NegativeProp {
	minus := p.advance()
	n := &ast.NegativeProp{Span: minus.Span}
	name, ok := p.parseWord("expected prop name after '-'")
	if ok {
		n.Name = name
		n.Span = n.Span.Cover(name.Span)
	}
	return n
}

// parseUserProp parses `Doc? annotation* name: Type (= default)?`.
func (p *Parser) parseUserProp() *ast.UserProp {
	u := &ast.UserProp{Span: p.peek().Span}
	u.Doc = p.parseDoc()
	u.Annotations = p.parseAnnotations()
	name := p.advance()
	u.Name = ast.Ident{Name: name.Text, Span: name.Span}
	p.advance() // ':'
	u.Span = u.Span.Cover(name.Span)
	u.Type = p.parseTypeRef()
	if u.Type != nil {
		u.Span = u.Span.Cover(u.Type.Span)
	}
	if _, ok := p.eat(token.Assign); ok {
		for !p.atOr(token.Comma, token.Semicolon, token.RBrace, token.EOF) {
			if len(u.Default) > 0 && p.peek().HasNewlineBefore() {
				break
			}
			if p.at(token.LParen) {
				p.advance()
				args, end, _ := p.collectUntilClose()
				u.Default = append(u.Default, token.Token{Kind: token.LParen, Text: "("})
				u.Default = append(u.Default, args...)
				u.Default = append(u.Default, token.Token{Kind: token.RParen, Span: end, Text: ")"})
				continue
			}
			u.Default = append(u.Default, p.advance())
		}
		if len(u.Default) == 0 {
			p.err(diag.SynExpectLiteral, "expected default value after '='")
		} else {
			u.Span = u.Span.Cover(p.lastSpan)
		}
	}
	return u
}

// parseAliasGroup parses `as(^? original? $? -> replacement?) { ... }`.
func (p *Parser) parseAliasGroup() *ast.AliasGroup {
	kw := p.advance()
	g := &ast.AliasGroup{Span: kw.Span}
	lp := p.advance()
	pat := ast.AliasPattern{Span: lp.Span}
	if _, ok := p.eat(token.Caret); ok {
		pat.Prefix = true
	}
	if p.peek().IsWord() {
		tok := p.advance()
		pat.Original = &ast.Ident{Name: tok.Text, Span: tok.Span}
	}
	if _, ok := p.eat(token.Dollar); ok {
		pat.Suffix = true
	}
	p.expect(token.Arrow, diag.SynExpectArrow, "expected '->' in alias pattern")
	if p.peek().IsWord() {
		tok := p.advance()
		pat.Replacement = &ast.Ident{Name: tok.Text, Span: tok.Span}
	}
	rp, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' to close alias pattern")
	if ok {
		pat.Span = pat.Span.Cover(rp.Span)
	} else {
		p.resyncUntil(token.LBrace, token.RParen)
		p.eat(token.RParen)
	}
	g.Pattern = pat
	g.Span = g.Span.Cover(p.lastSpan)

	if !p.at(token.LBrace) {
		p.report(diag.SynExpectBody, diag.SevError, g.Span, "alias group has no body")
		return g
	}
	g.Body = p.parseBody()
	g.Span = g.Span.Cover(g.Body.Span)
	for _, prop := range g.Body.Props {
		switch prop.(type) {
		case *ast.PositiveProp, *ast.Macro:
		default:
			p.report(diag.SynUnexpectedToken, diag.SevError, prop.NodeSpan(),
				"only positive props and macros are allowed in an alias group")
		}
	}
	return g
}
