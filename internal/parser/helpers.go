package parser

import (
	"slices"

	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/source"
	"dtolsp/internal/token"
)

func (p *Parser) peek() token.Token {
	return p.peekN(0)
}

// peekN looks n tokens ahead; past the end it keeps returning EOF.
func (p *Parser) peekN(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

// advance consumes the next token and updates lastSpan.
func (p *Parser) advance() token.Token {
	tok := p.peek()
	if tok.Kind == token.EOF {
		return tok
	}
	p.pos++
	if tok.Kind != token.Invalid {
		p.lastSpan = tok.Span
	}
	return tok
}

// getDiagnosticSpan points at the next token, or just past the last consumed
// token when the input has run out.
func (p *Parser) getDiagnosticSpan() source.Span {
	peek := p.peek()
	if peek.Kind == token.EOF && p.lastSpan.End > 0 {
		return p.lastSpan.AtEnd()
	}
	return peek.Span
}

// expect consumes k or reports code and returns (invalid, false).
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.getDiagnosticSpan()
	p.report(code, diag.SevError, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp, Text: p.peek().Text}, false
}

// eat consumes k when present.
func (p *Parser) eat(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) err(code diag.Code, msg string) bool {
	return p.report(code, diag.SevError, p.getDiagnosticSpan(), msg)
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) bool {
	if p.opts.Reporter == nil {
		return false
	}
	if sev == diag.SevError {
		if p.opts.Enough() {
			return false
		}
		p.opts.CurrentErrors++
	}
	p.opts.Reporter.Report(code, sev, sp, msg, nil, nil)
	return true
}

// resyncUntil skips tokens until one of stop (or EOF) is next. Nested brace and
// paren groups are skipped as a whole.
func (p *Parser) resyncUntil(stop ...token.Kind) {
	depth := 0
	for !p.at(token.EOF) {
		k := p.peek().Kind
		if depth == 0 && slices.Contains(stop, k) {
			return
		}
		switch k {
		case token.LBrace, token.LParen:
			depth++
		case token.RBrace, token.RParen:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

// parseWord accepts an identifier or a keyword spelled like one. Prop names such
// as "class" or "static" are legal after a dot or as plain names.
func (p *Parser) parseWord(msg string) (ast.Ident, bool) {
	tok := p.peek()
	if tok.IsWord() {
		p.advance()
		return ast.Ident{Name: tok.Text, Span: tok.Span}, true
	}
	p.err(diag.SynExpectIdentifier, msg+", got "+describe(tok))
	return ast.Ident{Span: p.getDiagnosticSpan()}, false
}

// parseQualifiedName parses Ident ("." Ident)*. A trailing dot is reported but
// the collected parts are kept, so completion can see "com.example.".
func (p *Parser) parseQualifiedName(msg string) (ast.QualifiedName, bool) {
	first, ok := p.parseWord(msg)
	if !ok {
		return ast.QualifiedName{Span: first.Span}, false
	}
	q := ast.QualifiedName{Parts: []ast.Ident{first}, Span: first.Span}
	for p.at(token.Dot) && p.peekN(1).IsWord() {
		p.advance()
		part := p.advance()
		q.Parts = append(q.Parts, ast.Ident{Name: part.Text, Span: part.Span})
		q.Span = q.Span.Cover(part.Span)
	}
	return q, true
}

func describe(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of file"
	}
	return "\"" + tok.Text + "\""
}

// collectUntilClose gathers the tokens of a parenthesized group verbatim. The
// opening paren has already been consumed; the closing one is consumed here.
func (p *Parser) collectUntilClose() ([]token.Token, source.Span, bool) {
	var out []token.Token
	depth, braces := 0, 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.EOF:
			p.err(diag.SynUnclosedParen, "expected ')'")
			return out, p.getDiagnosticSpan(), false
		case token.LParen:
			depth++
		case token.RParen:
			if depth == 0 && braces == 0 {
				p.advance()
				return out, tok.Span, true
			}
			if depth > 0 {
				depth--
			}
		case token.LBrace:
			braces++
		case token.RBrace:
			// an unmatched '}' closes the enclosing body
			if braces == 0 {
				p.err(diag.SynUnclosedParen, "expected ')'")
				return out, p.getDiagnosticSpan(), false
			}
			braces--
		}
		out = append(out, p.advance())
	}
}
