package lexer

import (
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// scanIdentOrKeyword scans an identifier and classifies reserved words.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	r, sz := lx.peekRune()
	if sz == 0 || !isIdentStartRune(r) {
		lx.bumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	lx.bumpRune()
	for {
		if b := lx.cursor.Peek(); b < utf8RuneSelf {
			if !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r2, sz2 := lx.peekRune()
		if sz2 == 0 || !isIdentContinueRune(r2) {
			break
		}
		lx.bumpRune()
	}
	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}

// scanBang handles "!", "!=" and the configuration clauses "!where", "!orderBy", ...
// A '!' followed by a word that is not a known clause stays a plain Bang so that
// "name!" at the end of a line keeps its meaning.
func (lx *Lexer) scanBang() token.Token {
	start := lx.cursor.Mark()
	if lx.try2('!', '=') {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: token.BangEq, Span: sp, Text: "!="}
	}
	lx.cursor.Bump()
	if isIdentStartByte(lx.cursor.Peek()) {
		wordStart := lx.cursor.Mark()
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		word := lx.text(lx.cursor.SpanFrom(wordStart))
		if k, ok := token.LookupConfiguration(word); ok {
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
		}
		lx.cursor.Reset(wordStart)
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.Bang, Span: sp, Text: "!"}
}
