package lsp

import (
	"fmt"
	"slices"
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/compiler"
	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/token"
	"dtolsp/internal/workspace"
)

func (s *Server) handleCompletion(msg *rpcMessage) error {
	params, ok, err := decode[completionParams](s, msg)
	if !ok {
		return err
	}
	d, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, completionList{Items: []completionItem{}})
	}
	req := completionRequest{
		snap:   snap,
		base:   baseOf(d),
		offset: offsetForPositionInFile(snap.File, params.Position),
	}
	if params.Context != nil {
		req.trigger = params.Context.TriggerCharacter
	}
	path := workspace.PathFromURI(snap.URI)
	req.names = func() workspace.Names { return s.ws.NamesFor(s.context(), path) }
	items := buildCompletion(req)
	if items == nil {
		items = []completionItem{}
	}
	return s.sendResponse(msg.ID, completionList{Items: items})
}

type completionRequest struct {
	snap    *document.Snapshot
	base    hosttype.BaseType
	offset  uint32
	trigger string
	// names is called only when class names are offered.
	names func() workspace.Names
}

func buildCompletion(req completionRequest) []completionItem {
	text := req.snap.Text
	off := min(int(req.offset), len(text))
	before := text[:off]

	if strings.HasSuffix(before, "/**") {
		return []completionItem{{
			Label:            "DocComment",
			Kind:             itemText,
			InsertText:       "\n * $0 \n */",
			InsertTextFormat: formatSnippet,
		}}
	}
	if req.trigger == "*" {
		return nil
	}

	wordStart := off
	for wordStart > 0 && isNameByte(text[wordStart-1]) {
		wordStart--
	}
	if wordStart > 0 && text[wordStart-1] == '@' {
		return annotationItems(req)
	}
	if req.trigger == "@" {
		return nil
	}

	lineStart := strings.LastIndexByte(before, '\n') + 1
	line := strings.TrimLeft(text[lineStart:off], " \t")
	switch {
	case strings.HasPrefix(line, "export "):
		return classItems(req, wordStart, off, req.names().Immutables)
	case strings.HasPrefix(line, "import "):
		names := req.names()
		return classItems(req, wordStart, off, append(slices.Clone(names.Classes), names.Annotations...))
	}

	if trace, ok := ast.TraceAt(req.snap.AST, req.offset); ok {
		return bodyItems(req, trace)
	}
	return headerKeywordItems(req.snap.AST)
}

func isNameByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func sortKey(i int) string { return fmt.Sprintf("%04d", i) }

func annotationItems(req completionRequest) []completionItem {
	names := req.names().Annotations
	items := make([]completionItem, 0, len(names))
	for i, qualified := range names {
		_, simple := hosttype.SplitQualified(qualified)
		items = append(items, completionItem{
			Label:               simple,
			Kind:                itemClass,
			Detail:              qualified,
			SortText:            sortKey(i),
			AdditionalTextEdits: importEdit(req.snap, qualified),
		})
	}
	return items
}

// importEdit inserts an import of qualified below the existing imports, or
// below the export, unless the name is imported already.
func importEdit(snap *document.Snapshot, qualified string) []textEdit {
	line := 0
	if f := snap.AST; f != nil {
		for _, have := range f.ImportedNames() {
			if have == qualified {
				return nil
			}
		}
		switch {
		case len(f.Imports) > 0:
			line = positionForOffsetInFile(snap.File, f.Imports[len(f.Imports)-1].Span.End).Line + 1
		case f.Export != nil:
			line = positionForOffsetInFile(snap.File, f.Export.Span.End).Line + 1
		}
	}
	at := position{Line: line}
	return []textEdit{{Range: lspRange{Start: at, End: at}, NewText: "import " + qualified + "\n"}}
}

func classItems(req completionRequest, start, end int, names []string) []completionItem {
	rng := lspRange{
		Start: positionForOffsetInFile(req.snap.File, safeUint32(start)),
		End:   positionForOffsetInFile(req.snap.File, safeUint32(end)),
	}
	seen := make(map[string]bool, len(names))
	items := make([]completionItem, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, completionItem{
			Label:    name,
			Kind:     itemClass,
			SortText: sortKey(len(items)),
			TextEdit: &textEdit{Range: rng, NewText: name},
		})
	}
	return items
}

func bodyItems(req completionRequest, trace ast.TracedBody) []completionItem {
	var items []completionItem
	add := func(it completionItem) {
		it.SortText = sortKey(len(items))
		items = append(items, it)
	}

	if props := compiler.PropsAlongPath(req.base, trace.Path[1:]); props != nil {
		for _, p := range props.Values() {
			it := completionItem{
				Label: p.Name(),
				Kind:  itemField,
				LabelDetails: &completionItemLabelDetails{
					Description: "from " + p.DeclaringType().Name() + " is " + hosttype.PropTypeOf(p).String(),
				},
			}
			switch hosttype.PropTypeOf(p) {
			case hosttype.PropAssociation:
				it.InsertText = p.Name() + " {\n\t$0\n}"
				it.InsertTextFormat = formatSnippet
			case hosttype.PropRecursive:
				it.InsertText = p.Name() + "*"
			}
			add(it)
		}
	}

	for _, m := range compiler.MacroNames() {
		add(completionItem{
			Label:        "#" + m,
			Kind:         itemFunction,
			InsertText:   "#" + m,
			LabelDetails: &completionItemLabelDetails{Description: "macro"},
		})
	}

	funcs := []string{"id", "flat"}
	if t := typeAt(req.snap.AST, req.offset); t != nil && t.HasModifier("specification") {
		funcs = append(funcs, compiler.QBEFuncNames()...)
	}
	for _, fn := range funcs {
		add(completionItem{
			Label:            fn,
			Kind:             itemMethod,
			InsertText:       fn + "($0)",
			InsertTextFormat: formatSnippet,
			LabelDetails:     &completionItemLabelDetails{Description: "function"},
		})
	}

	for _, kw := range []string{"as", "implements", "class"} {
		add(completionItem{Label: kw, Kind: itemKeyword})
	}
	return items
}

func headerKeywordItems(f *ast.File) []completionItem {
	keywords := append(slices.Clone(token.Modifiers), "import")
	switch {
	case f == nil || f.Export == nil:
		keywords = append(keywords, "export")
	case f.Export.Package == nil:
		keywords = append(keywords, "package")
	}
	items := make([]completionItem, 0, len(keywords))
	for i, kw := range keywords {
		items = append(items, completionItem{Label: kw, Kind: itemKeyword, SortText: sortKey(i)})
	}
	return items
}

func typeAt(f *ast.File, off uint32) *ast.DtoType {
	if f == nil {
		return nil
	}
	for _, t := range f.Types {
		if t.Span.Contains(off) {
			return t
		}
	}
	return nil
}
