package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/compiler"
	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/workspace"
)

func (s *Server) handleDefinition(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentPositionParams](s, msg)
	if !ok {
		return err
	}
	d, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, nil)
	}
	locs := s.definitions(s.context(), snap, baseOf(d), offsetForPositionInFile(snap.File, params.Position))
	if len(locs) == 0 {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, locs)
}

func (s *Server) handleCodeLens(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentParams](s, msg)
	if !ok {
		return err
	}
	d, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, []codeLens{})
	}
	project := s.ws.ProjectDir(workspace.PathFromURI(snap.URI))
	return s.sendResponse(msg.ID, buildCodeLenses(snap, baseOf(d), project))
}

func (s *Server) definitions(ctx context.Context, snap *document.Snapshot, base hosttype.BaseType, off uint32) []location {
	f := snap.AST
	if f == nil {
		return nil
	}
	file := workspace.PathFromURI(snap.URI)
	project := s.ws.ProjectDir(file)

	hostType := func(qualified string) []location {
		if path := findSourceFile(project, qualified); path != "" {
			return []location{{URI: workspace.URIFromPath(path)}}
		}
		if origin, ok := s.ws.Origin(ctx, file, qualified); ok {
			return originLocation(origin)
		}
		return nil
	}

	if e := f.Export; e != nil && e.Type.Span.Contains(off) {
		return hostType(e.Type.String())
	}
	for _, imp := range f.Imports {
		if !imp.Span.Contains(off) {
			continue
		}
		if imp.Grouped {
			for _, it := range imp.Group {
				if it.Name.Span.Contains(off) {
					return hostType(imp.Path.String() + "." + it.Name.Name)
				}
			}
			return nil
		}
		return hostType(imp.Path.String())
	}
	for _, t := range f.Types {
		if t.Name.Valid() && t.Name.Span.Contains(off) {
			if path := generatedFile(project, dtoPackage(f, base), t.Name.Name); path != "" {
				return []location{{URI: workspace.URIFromPath(path)}}
			}
			return nil
		}
	}

	hit, ok := propAt(f, off)
	if !ok {
		return nil
	}
	var name string
	switch p := hit.prop.(type) {
	case *ast.PositiveProp:
		for _, arg := range p.Args {
			if arg.Span.Contains(off) {
				name = arg.Name
			}
		}
		if name == "" {
			name = p.Name().Name
		}
	case *ast.NegativeProp:
		name = p.Name.Name
	default:
		return nil
	}
	trace, _ := ast.TraceAt(f, hit.prop.NodeSpan().Start)
	if len(trace.Path) == 0 {
		return nil
	}
	owner, ok := compiler.OwnerAlongPath(base, trace.Path[1:])
	if !ok {
		return nil
	}
	prop, ok := owner.Props().Get(name)
	if !ok {
		return nil
	}
	return originLocation(prop.Origin())
}

// originLocation points at a declaration on disk. Declarations inside
// archives have no location a client can open.
func originLocation(o hosttype.Origin) []location {
	if o.Path == "" || o.Entry != "" {
		return nil
	}
	at := position{Line: int(o.Line), Character: int(o.Col)}
	return []location{{URI: workspace.URIFromPath(o.Path), Range: lspRange{Start: at, End: at}}}
}

// findSourceFile looks for the Java or Kotlin source of qualified in the
// conventional source roots of project.
func findSourceFile(project, qualified string) string {
	if project == "" {
		return ""
	}
	rel := filepath.FromSlash(strings.ReplaceAll(qualified, ".", "/"))
	for _, set := range []string{"main", "test"} {
		for _, lang := range []struct{ dir, ext string }{{"java", ".java"}, {"kotlin", ".kt"}} {
			path := filepath.Join(project, "src", set, lang.dir, rel+lang.ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// dtoPackage is the package generated classes of f land in.
func dtoPackage(f *ast.File, base hosttype.BaseType) string {
	if f.Export != nil {
		return f.Export.PackageName()
	}
	if base != nil && base.PackageName() != "" {
		return base.PackageName() + ".dto"
	}
	return ""
}

// generatedFile finds the class generated for DTO type name by KSP or by the
// Java annotation processor under Gradle or Maven.
func generatedFile(project, pkg, name string) string {
	if project == "" || pkg == "" {
		return ""
	}
	rel := filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
	patterns := []string{
		filepath.Join(project, "build", "generated", "ksp", "*", "kotlin", rel, name+".kt"),
		filepath.Join(project, "target", "generated", "ksp", "*", "kotlin", rel, name+".kt"),
		filepath.Join(project, "build", "generated", "sources", "annotationProcessor", "java", "*", rel, name+".java"),
		filepath.Join(project, "target", "generated-sources", "annotations", rel, name+".java"),
	}
	for _, pattern := range patterns {
		if matches, err := filepath.Glob(pattern); err == nil && len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

func buildCodeLenses(snap *document.Snapshot, base hosttype.BaseType, project string) []codeLens {
	lenses := []codeLens{}
	f := snap.AST
	if f == nil {
		return lenses
	}
	pkg := dtoPackage(f, base)
	for _, t := range f.Types {
		if !t.Name.Valid() || generatedFile(project, pkg, t.Name.Name) == "" {
			continue
		}
		lenses = append(lenses, codeLens{
			Range:   rangeForSpan(snap.File, t.Name.Span),
			Command: &command{Title: "Generated"},
		})
	}
	return lenses
}
