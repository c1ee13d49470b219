package lsp

import (
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/compiler"
	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/source"
)

func (s *Server) handleHover(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentPositionParams](s, msg)
	if !ok {
		return err
	}
	d, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, nil)
	}
	h := buildHover(snap, baseOf(d), offsetForPositionInFile(snap.File, params.Position))
	if h == nil {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, h)
}

// propHit is the innermost prop under an offset, with the alias group pattern
// that renames it, if any.
type propHit struct {
	prop    ast.Prop
	pattern *ast.AliasPattern
}

func propAt(f *ast.File, off uint32) (propHit, bool) {
	if f == nil {
		return propHit{}, false
	}
	for _, t := range f.Types {
		if t.Body != nil && t.Body.Span.Contains(off) {
			return propInBody(t.Body, off, nil)
		}
	}
	return propHit{}, false
}

func propInBody(b *ast.Body, off uint32, pattern *ast.AliasPattern) (propHit, bool) {
	for _, p := range b.Props {
		if !p.NodeSpan().Contains(off) {
			continue
		}
		switch p := p.(type) {
		case *ast.AliasGroup:
			if p.Body != nil && p.Body.Span.Contains(off) {
				return propInBody(p.Body, off, &p.Pattern)
			}
			return propHit{}, false
		case *ast.PositiveProp:
			if p.Body != nil && p.Body.Span.Contains(off) {
				return propInBody(p.Body, off, nil)
			}
			if p.EnumBody != nil && p.EnumBody.Span.Contains(off) {
				return propHit{}, false
			}
		}
		return propHit{prop: p, pattern: pattern}, true
	}
	return propHit{}, false
}

func markdown(text string, file *source.File, sp source.Span) *hover {
	rng := rangeForSpan(file, sp)
	return &hover{Contents: markupContent{Kind: "markdown", Value: text}, Range: &rng}
}

func code(s string) string { return "`" + s + "`" }

func buildHover(snap *document.Snapshot, base hosttype.BaseType, off uint32) *hover {
	f := snap.AST
	if f == nil {
		return nil
	}
	if e := f.Export; e != nil && e.Span.Contains(off) {
		return markdown("## Export\n"+code(e.Type.String())+"\n## Package\n"+code(e.PackageName()), snap.File, e.Span)
	}
	for _, imp := range f.Imports {
		if imp.Span.Contains(off) {
			return markdown(importHover(imp), snap.File, imp.Span)
		}
	}
	for _, t := range f.Types {
		if t.Name.Valid() && t.Name.Span.Contains(off) {
			var sb strings.Builder
			sb.WriteString("## " + t.Name.Name + "\n")
			for _, m := range t.Modifiers {
				sb.WriteString(code(m.Name) + " ")
			}
			if base != nil {
				sb.WriteString("\n\nBase: " + code(base.QualifiedName()) + "\n")
			}
			return markdown(sb.String(), snap.File, t.Name.Span)
		}
	}

	hit, ok := propAt(f, off)
	if !ok {
		return nil
	}
	trace, _ := ast.TraceAt(f, hit.prop.NodeSpan().Start)
	var owner hosttype.BaseType
	if len(trace.Path) > 0 {
		owner, _ = compiler.OwnerAlongPath(base, trace.Path[1:])
	}

	switch p := hit.prop.(type) {
	case *ast.Macro:
		return markdown(macroHover(p, owner, hit.pattern), snap.File, p.Span)
	case *ast.PositiveProp:
		name := p.Name()
		if !name.Valid() {
			return nil
		}
		var sb strings.Builder
		sb.WriteString("## " + name.Name)
		switch {
		case p.Alias != nil:
			sb.WriteString(" " + code(p.Alias.Name))
		case hit.pattern != nil:
			sb.WriteString(" " + code(hit.pattern.Apply(name.Name)))
		}
		sb.WriteString("\n")
		writePropInfo(&sb, trace.Path, name.Name, owner)
		switch {
		case p.Optional:
			sb.WriteString("## Optional\nThis property is optional\n")
		case p.Required:
			sb.WriteString("## Required\nThis property is required\n")
		}
		return markdown(sb.String(), snap.File, name.Span)
	case *ast.NegativeProp:
		var sb strings.Builder
		sb.WriteString("## " + p.Name.Name + "\n")
		writePropInfo(&sb, trace.Path, p.Name.Name, owner)
		sb.WriteString("## Negative\nThis property is negative\n")
		return markdown(sb.String(), snap.File, p.Span)
	case *ast.UserProp:
		var sb strings.Builder
		sb.WriteString("## " + p.Name.Name + "\n")
		if p.Type != nil {
			sb.WriteString("\nType: " + code(string(snap.File.Content[p.Type.Span.Start:p.Type.Span.End])) + "\n")
		}
		return markdown(sb.String(), snap.File, p.Name.Span)
	}
	return nil
}

func writePropInfo(sb *strings.Builder, path []string, name string, owner hosttype.BaseType) {
	sb.WriteString("Trace: " + code(strings.Join(append(path, name), ".")) + "\n\n")
	if owner == nil {
		return
	}
	prop, ok := owner.Props().Get(name)
	if !ok {
		return
	}
	sb.WriteString("From: " + code(prop.DeclaringType().Name()) + "\n\n")
	sb.WriteString("Type: " + code(hosttype.PropTypeOf(prop).String()) + "\n")
}

func importHover(imp *ast.Import) string {
	var pkg string
	var types []string
	if imp.Grouped {
		pkg = imp.Path.String()
		for _, it := range imp.Group {
			types = append(types, code(it.Name.Name))
		}
	} else if n := len(imp.Path.Parts); n > 0 {
		pkg = ast.QualifiedName{Parts: imp.Path.Parts[:n-1]}.String()
		types = append(types, code(imp.Path.Last().Name))
	}
	return "## Import\n" + code(pkg) + "\n## Types\n" + strings.Join(types, ", ")
}

func macroHover(m *ast.Macro, owner hosttype.BaseType, pattern *ast.AliasPattern) string {
	header := "## " + m.Name.Name + "\n"
	props, err := compiler.ExpandMacro(m, owner)
	if err != nil {
		return header + err.Message
	}
	names := make([]string, 0, len(props))
	for _, p := range props {
		name := p.Name()
		if pattern != nil {
			name = pattern.Apply(name)
		}
		names = append(names, code(name))
	}
	return header + strings.Join(names, ", ")
}
