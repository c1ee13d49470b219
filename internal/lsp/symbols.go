package lsp

import (
	"context"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"dtolsp/internal/ast"
	"dtolsp/internal/document"
	"dtolsp/internal/parser"
	"dtolsp/internal/source"
	"dtolsp/internal/token"
	"dtolsp/internal/workspace"
)

func (s *Server) handleDocumentSymbol(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentParams](s, msg)
	if !ok {
		return err
	}
	_, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, []documentSymbol{})
	}
	return s.sendResponse(msg.ID, buildDocumentSymbols(snap))
}

func (s *Server) handleFoldingRange(msg *rpcMessage) error {
	params, ok, err := decode[textDocumentParams](s, msg)
	if !ok {
		return err
	}
	_, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, []foldingRange{})
	}
	return s.sendResponse(msg.ID, buildFoldingRanges(snap))
}

func (s *Server) handleWorkspaceSymbol(msg *rpcMessage) error {
	params, ok, err := decode[workspaceSymbolParams](s, msg)
	if !ok {
		return err
	}
	open := make(map[string]string)
	for _, uri := range s.docs.URIs() {
		if _, snap, ok := s.snapshotFor(uri); ok {
			open[workspace.PathFromURI(uri)] = snap.Text
		}
	}
	syms, err := workspaceSymbols(s.context(), s.ws.DtoFiles(), open)
	if err != nil {
		s.log.Warn("workspace symbol scan failed", "error", err)
	}
	return s.sendResponse(msg.ID, filterSymbols(syms, params.Query))
}

func buildDocumentSymbols(snap *document.Snapshot) []documentSymbol {
	out := []documentSymbol{}
	if snap.AST == nil {
		return out
	}
	for _, t := range snap.AST.Types {
		if !t.Name.Valid() {
			continue
		}
		sym := documentSymbol{
			Name:           t.Name.Name,
			Kind:           symbolClass,
			Range:          rangeForSpan(snap.File, t.Name.Span.Cover(t.Span)),
			SelectionRange: rangeForSpan(snap.File, t.Name.Span),
		}
		if t.Body != nil {
			sym.Children = bodySymbols(snap.File, t.Body)
		}
		out = append(out, sym)
	}
	return out
}

// bodySymbols lists the props of b that open a body of their own. Alias
// groups are transparent.
func bodySymbols(file *source.File, b *ast.Body) []documentSymbol {
	var out []documentSymbol
	for _, p := range b.Props {
		switch p := p.(type) {
		case *ast.AliasGroup:
			if p.Body != nil {
				out = append(out, bodySymbols(file, p.Body)...)
			}
		case *ast.PositiveProp:
			name := p.Name()
			if p.Body == nil || !name.Valid() {
				continue
			}
			out = append(out, documentSymbol{
				Name:           name.Name,
				Kind:           symbolField,
				Range:          rangeForSpan(file, p.Span),
				SelectionRange: rangeForSpan(file, name.Span),
				Children:       bodySymbols(file, p.Body),
			})
		}
	}
	return out
}

func buildFoldingRanges(snap *document.Snapshot) []foldingRange {
	out := []foldingRange{}
	add := func(sp source.Span, kind string, closer bool) {
		start := positionForOffsetInFile(snap.File, sp.Start).Line
		end := positionForOffsetInFile(snap.File, sp.End).Line
		if closer {
			// keep the closing brace visible
			end--
		}
		if end > start {
			out = append(out, foldingRange{StartLine: start, EndLine: end, Kind: kind})
		}
	}
	ast.Inspect(snap.AST, func(n ast.Node) bool {
		if b, ok := n.(*ast.Body); ok {
			add(b.Span, "region", b.Closed)
		}
		return true
	})
	for _, tok := range snap.Tokens {
		if tok.Kind == token.DocComment {
			add(tok.Span, "comment", false)
		}
	}
	return out
}

// workspaceSymbols parses every DTO file and lists its types and the props
// that open a body. Open documents are read from memory.
func workspaceSymbols(ctx context.Context, files []string, open map[string]string) ([]symbolInformation, error) {
	results := make([][]symbolInformation, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, ok := open[path]
			if !ok {
				data, err := os.ReadFile(path)
				if err != nil {
					return nil
				}
				text = string(data)
			}
			results[i] = fileSymbols(workspace.URIFromPath(path), text)
			return nil
		})
	}
	err := g.Wait()
	var out []symbolInformation
	for _, r := range results {
		out = append(out, r...)
	}
	return out, err
}

func fileSymbols(uri, text string) []symbolInformation {
	res := parser.ParseText(text, parser.Options{Path: uri})
	if res.AST == nil {
		return nil
	}
	var out []symbolInformation
	var walk func(container string, b *ast.Body)
	walk = func(container string, b *ast.Body) {
		for _, p := range b.Props {
			switch p := p.(type) {
			case *ast.AliasGroup:
				if p.Body != nil {
					walk(container, p.Body)
				}
			case *ast.PositiveProp:
				name := p.Name()
				if !name.Valid() {
					continue
				}
				out = append(out, symbolInformation{
					Name:          name.Name,
					Kind:          symbolField,
					Location:      location{URI: uri, Range: rangeForSpan(res.File, name.Span)},
					ContainerName: container,
				})
				if p.Body != nil {
					walk(container+"."+name.Name, p.Body)
				}
			}
		}
	}
	for _, t := range res.AST.Types {
		if !t.Name.Valid() {
			continue
		}
		out = append(out, symbolInformation{
			Name:     t.Name.Name,
			Kind:     symbolClass,
			Location: location{URI: uri, Range: rangeForSpan(res.File, t.Name.Span)},
		})
		if t.Body != nil {
			walk(t.Name.Name, t.Body)
		}
	}
	return out
}

type symbolSource []symbolInformation

func (s symbolSource) String(i int) string { return s[i].Name }
func (s symbolSource) Len() int            { return len(s) }

// filterSymbols ranks syms by fuzzy match against query. An empty query
// keeps everything in file order.
func filterSymbols(syms []symbolInformation, query string) []symbolInformation {
	query = strings.TrimSpace(query)
	if query == "" {
		if syms == nil {
			return []symbolInformation{}
		}
		return syms
	}
	matches := fuzzy.FindFrom(query, symbolSource(syms))
	out := make([]symbolInformation, 0, len(matches))
	for _, m := range matches {
		out = append(out, syms[m.Index])
	}
	return out
}
