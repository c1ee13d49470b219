package parser

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// parseDtoType parses `Doc? annotation* modifier* Name (implements T, ...)? { ... }`.
// It returns nil when no type name could be found.
func (p *Parser) parseDtoType() *ast.DtoType {
	start := p.peek().Span
	dto := &ast.DtoType{Span: start}
	dto.Doc = p.parseDoc()
	dto.Annotations = p.parseAnnotations()

	for p.peek().IsWord() && token.IsModifier(p.peek().Text) && p.peekN(1).IsWord() {
		tok := p.advance()
		dto.Modifiers = append(dto.Modifiers, ast.Ident{Name: tok.Text, Span: tok.Span})
	}

	if !p.peek().IsWord() {
		p.err(diag.SynExpectIdentifier, "expected DTO type name, got "+describe(p.peek()))
		return nil
	}
	tok := p.advance()
	dto.Name = ast.Ident{Name: tok.Text, Span: tok.Span}
	dto.Span = start.Cover(tok.Span)

	if p.at(token.KwImplements) {
		p.advance()
		dto.Implements = p.parseTypeRefList()
	}

	if !p.at(token.LBrace) {
		p.report(diag.SynExpectBody, diag.SevError, dto.Name.Span, "DTO type '"+dto.Name.Name+"' has no body")
		return dto
	}
	dto.Body = p.parseBody()
	dto.Span = dto.Span.Cover(dto.Body.Span)
	return dto
}

func (p *Parser) parseDoc() *ast.Doc {
	if tok, ok := p.eat(token.DocComment); ok {
		return &ast.Doc{Text: tok.Text, Span: tok.Span}
	}
	return nil
}

func (p *Parser) parseAnnotations() []*ast.Annotation {
	var out []*ast.Annotation
	for p.at(token.At) {
		out = append(out, p.parseAnnotation())
	}
	return out
}

// parseAnnotation parses `@ qname ( ... )?`; the arguments are kept as tokens.
func (p *Parser) parseAnnotation() *ast.Annotation {
	at := p.advance()
	ann := &ast.Annotation{Span: at.Span}
	name, _ := p.parseQualifiedName("expected annotation name")
	ann.Name = name
	ann.Span = ann.Span.Cover(name.Span)
	if p.at(token.LParen) {
		p.advance()
		ann.HasParens = true
		args, end, _ := p.collectUntilClose()
		ann.Args = args
		ann.Span = ann.Span.Cover(end)
	}
	return ann
}

func (p *Parser) parseTypeRefList() []*ast.TypeRef {
	var out []*ast.TypeRef
	for {
		ref := p.parseTypeRef()
		if ref == nil {
			return out
		}
		out = append(out, ref)
		if _, ok := p.eat(token.Comma); !ok {
			return out
		}
	}
}

// parseTypeRef parses `qname (< arg, ... >)? ??`.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	if !p.peek().IsWord() {
		p.err(diag.SynExpectType, "expected type, got "+describe(p.peek()))
		return nil
	}
	name, _ := p.parseQualifiedName("expected type")
	ref := &ast.TypeRef{Span: name.Span, Name: name}
	if p.at(token.Lt) {
		p.advance()
		for !p.atOr(token.Gt, token.EOF, token.LBrace, token.RBrace) {
			arg := p.parseGenericArg()
			if arg == nil {
				break
			}
			ref.Args = append(ref.Args, arg)
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		gt, ok := p.expect(token.Gt, diag.SynUnexpectedToken, "expected '>' to close type arguments")
		if ok {
			ref.Span = ref.Span.Cover(gt.Span)
		}
	}
	if q, ok := p.eat(token.Question); ok {
		ref.Nullable = true
		ref.Span = ref.Span.Cover(q.Span)
	}
	return ref
}

func (p *Parser) parseGenericArg() *ast.GenericArg {
	if star, ok := p.eat(token.Star); ok {
		return &ast.GenericArg{Span: star.Span, Wildcard: true}
	}
	arg := &ast.GenericArg{Span: p.peek().Span}
	if tok := p.peek(); (tok.Text == "in" || tok.Text == "out") && p.peekN(1).IsWord() {
		p.advance()
		arg.Modifier = &ast.Ident{Name: tok.Text, Span: tok.Span}
	}
	arg.Type = p.parseTypeRef()
	if arg.Type == nil {
		return nil
	}
	arg.Span = arg.Span.Cover(arg.Type.Span)
	return arg
}
