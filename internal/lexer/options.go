package lexer

import (
	"dtolsp/internal/diag"
	"dtolsp/internal/source"
)

type Options struct {
	Reporter diag.Reporter // nil drops lexical errors; lexing always continues
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
