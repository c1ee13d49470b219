package lexer

import (
	"unicode/utf8"

	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// scanString scans "..." with backslash escapes. A raw newline ends the literal with an error.
func (lx *Lexer) scanString() token.Token {
	return lx.scanDelimited('"', token.StringLit)
}

// scanQuoted scans '...': a single code point (or escape) is a CharLit, anything
// else is an SqlStringLit as used inside !where predicates.
func (lx *Lexer) scanQuoted() token.Token {
	tok := lx.scanDelimited('\'', token.SqlStringLit)
	if tok.Kind != token.SqlStringLit || len(tok.Text) < 3 {
		return tok
	}
	body := tok.Text[1 : len(tok.Text)-1]
	if utf8.RuneCountInString(body) == 1 || (len(body) == 2 && body[0] == '\\') {
		tok.Kind = token.CharLit
	}
	return tok
}

func (lx *Lexer) scanDelimited(quote byte, kind token.Kind) token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump()
	for !lx.cursor.EOF() {
		switch b := lx.cursor.Peek(); b {
		case quote:
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
		case '\\':
			lx.cursor.Bump()
			if !lx.cursor.EOF() {
				lx.cursor.Bump()
			}
		case '\n':
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "newline in string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
		default:
			lx.cursor.Bump()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}
