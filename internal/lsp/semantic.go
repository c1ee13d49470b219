package lsp

import (
	"strings"

	"dtolsp/internal/document"
	"dtolsp/internal/source"
	"dtolsp/internal/token"
)

var tokenTypes = []string{
	"comment", "keyword", "function", "string", "number", "decorator", "macro",
	"type", "typeParameter", "class", "variable", "property", "struct",
	"interface", "parameter", "enumMember", "namespace",
}

const (
	semComment   = 0
	semKeyword   = 1
	semFunction  = 2
	semString    = 3
	semNumber    = 4
	semDecorator = 5
	semMacro     = 6
	semClass     = 9
	semStruct    = 12
	semNamespace = 16
)

func (s *Server) handleSemanticTokens(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentParams](s, msg)
	if !ok {
		return err
	}
	_, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, semanticTokens{Data: []uint32{}})
	}
	return s.sendResponse(msg.ID, semanticTokens{Data: buildSemanticTokens(snap)})
}

type semEncoder struct {
	file     *source.File
	data     []uint32
	line     int
	char     int
	lastLine int
}

// emit adds a token for sp, one entry per line it covers.
func (e *semEncoder) emit(sp source.Span, typ uint32) {
	start := positionForOffsetInFile(e.file, sp.Start)
	text := string(e.file.Content[sp.Start:sp.End])
	for i, part := range strings.Split(text, "\n") {
		part = strings.TrimSuffix(part, "\r")
		pos := position{Line: start.Line + i}
		if i == 0 {
			pos.Character = start.Character
		}
		n := utf16Len(part)
		if n == 0 {
			continue
		}
		dLine := pos.Line - e.line
		dChar := pos.Character
		if dLine == 0 {
			dChar -= e.char
		}
		if dLine < 0 || dChar < 0 {
			continue
		}
		e.data = append(e.data, uint32(dLine), uint32(dChar), uint32(n), typ, 0)
		e.line, e.char = pos.Line, pos.Character
	}
}

func buildSemanticTokens(snap *document.Snapshot) []uint32 {
	e := &semEncoder{file: snap.File, data: []uint32{}}
	typeNames := make(map[uint32]bool)
	if snap.AST != nil {
		for _, t := range snap.AST.Types {
			if t.Name.Valid() {
				typeNames[t.Name.Span.Start] = true
			}
		}
	}

	toks := snap.Tokens
	// in export and import lines: namespace parts, then the class
	header, pkgClause := false, false
	annotation, macro := false, false
	for i, tok := range toks {
		for _, tr := range tok.Leading {
			if tr.IsComment() {
				e.emit(tr.Span, semComment)
			}
		}
		next := token.Token{}
		if i+1 < len(toks) {
			next = toks[i+1]
		}
		switch {
		case tok.Kind == token.EOF:
		case tok.Kind == token.DocComment:
			e.emit(tok.Span, semComment)
		case tok.Kind == token.KwExport || tok.Kind == token.KwImport || tok.Kind == token.KwPackage:
			header = true
			pkgClause = tok.Kind == token.KwPackage
			e.emit(tok.Span, semKeyword)
		case tok.IsKeyword() || tok.IsConfiguration():
			e.emit(tok.Span, semKeyword)
		case tok.Kind == token.At:
			annotation = true
			e.emit(tok.Span, semDecorator)
		case tok.Kind == token.Hash:
			macro = true
			e.emit(tok.Span, semMacro)
		case tok.IsLiteral() && tok.Kind != token.IntLit && tok.Kind != token.FloatLit:
			e.emit(tok.Span, semString)
		case tok.Kind == token.IntLit || tok.Kind == token.FloatLit:
			e.emit(tok.Span, semNumber)
		case tok.Kind == token.Ident:
			switch {
			case annotation:
				e.emit(tok.Span, semDecorator)
				annotation = next.Kind == token.Dot
			case macro:
				e.emit(tok.Span, semMacro)
				macro = false
			case header && (pkgClause || next.Kind == token.Dot):
				e.emit(tok.Span, semNamespace)
			case header:
				e.emit(tok.Span, semClass)
			case typeNames[tok.Span.Start]:
				e.emit(tok.Span, semStruct)
			case token.IsModifier(tok.Text):
				e.emit(tok.Span, semKeyword)
			case next.Kind == token.LParen:
				e.emit(tok.Span, semFunction)
			}
		case tok.Kind == token.Question, tok.Kind == token.Bang, tok.Kind == token.Caret,
			tok.Kind == token.Dollar, tok.Kind == token.Star, tok.Kind == token.Minus:
			e.emit(tok.Span, semKeyword)
		}
		if tok.Kind != token.Dot && tok.Kind != token.Ident && tok.Kind != token.At && tok.Kind != token.Hash {
			annotation, macro = false, false
		}
		if next.HasNewlineBefore() || tok.Kind == token.LBrace {
			header, pkgClause = false, false
		}
	}
	return e.data
}
