package lsp

import (
	"dtolsp/internal/document"
	"dtolsp/internal/format"
	"dtolsp/internal/parser"
	"dtolsp/internal/settings"
)

func (s *Server) handleFormatting(msg *rpcMessage) error {
	params, ok, err := decode[documentFormattingParams](s, msg)
	if !ok {
		return err
	}
	_, snap, open := s.snapshotFor(params.TextDocument.URI)
	if !open {
		return s.sendResponse(msg.ID, nil)
	}
	edits, err := buildFormatting(snap, params.Options, s.ws.Settings())
	if err != nil {
		s.log.Debug("formatting skipped", "uri", snap.URI, "error", err)
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, edits)
}

// buildFormatting replaces the whole document when formatting changes it.
// Text with syntax errors is left alone.
func buildFormatting(snap *document.Snapshot, opts formattingOptions, cfg settings.Settings) ([]textEdit, error) {
	if snap.Syntax.HasErrors() {
		return nil, format.ErrSyntax
	}
	out := format.File(parser.Result{
		File:   snap.File,
		Tokens: snap.Tokens,
		AST:    snap.AST,
		Bag:    snap.Syntax,
	}, format.Options{
		IndentWidth:    opts.TabSize,
		PropsSpaceLine: cfg.Formatting.PropsSpaceLine,
	})
	if string(out) == snap.Text {
		return []textEdit{}, nil
	}
	end := positionForOffsetInFile(snap.File, safeUint32(len(snap.File.Content)))
	return []textEdit{{
		Range:   lspRange{End: end},
		NewText: string(out),
	}}, nil
}
