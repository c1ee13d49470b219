package lexer

import (
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// collectLeadingTrivia gathers trivia before the next significant token:
//   - runs of ' ', '\t', '\r' fold into one TriviaSpace
//   - runs of '\n' fold into one TriviaNewline
//   - //... up to '\n' is a TriviaLineComment
//   - /* ... */ is a TriviaBlockComment; /** starts a DocComment token instead
func (lx *Lexer) collectLeadingTrivia() {
	lx.hold = nil
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		switch b := lx.cursor.Peek(); {
		case b == ' ' || b == '\t' || b == '\r' || b == '\f':
			for {
				b2 := lx.cursor.Peek()
				if b2 != ' ' && b2 != '\t' && b2 != '\r' && b2 != '\f' {
					break
				}
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaSpace, start)
		case b == '\n':
			for lx.cursor.Peek() == '\n' {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaNewline, start)
		case b == '/' && !lx.isDocCommentStart() && lx.scanCommentIntoHold():
		default:
			return
		}
	}
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{Kind: kind, Span: sp, Text: lx.text(sp)})
}

func (lx *Lexer) scanCommentIntoHold() bool {
	start := lx.cursor.Mark()
	b0, b1, ok := lx.cursor.Peek2()
	if !ok || b0 != '/' {
		return false
	}
	switch b1 {
	case '/':
		for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
			lx.cursor.Bump()
		}
		lx.pushTrivia(token.TriviaLineComment, start)
		return true
	case '*':
		lx.cursor.Bump()
		lx.cursor.Bump()
		if !lx.skipBlockBody() {
			lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated block comment")
		}
		lx.pushTrivia(token.TriviaBlockComment, start)
		return true
	}
	return false
}

// skipBlockBody consumes up to and including "*/". It reports false at EOF.
func (lx *Lexer) skipBlockBody() bool {
	for !lx.cursor.EOF() {
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '*' && b1 == '/' {
			lx.cursor.Bump()
			lx.cursor.Bump()
			return true
		}
		lx.cursor.Bump()
	}
	return false
}

// "/**" but not the empty comment "/**/".
func (lx *Lexer) isDocCommentStart() bool {
	return lx.cursor.Peek() == '/' && lx.cursor.PeekAt(1) == '*' && lx.cursor.PeekAt(2) == '*' && lx.cursor.PeekAt(3) != '/'
}

func (lx *Lexer) scanDocComment() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump()
	lx.cursor.Bump()
	lx.cursor.Bump()
	if !lx.skipBlockBody() {
		lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated doc comment")
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.DocComment, Span: sp, Text: lx.text(sp)}
}
