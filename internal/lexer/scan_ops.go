package lexer

import (
	"dtolsp/internal/diag"
	"dtolsp/internal/token"
)

// Two-byte operators first, then single bytes.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
	}

	switch {
	case lx.try2('-', '>'):
		return emit(token.Arrow)
	case lx.try2(':', ':'):
		return emit(token.ColonColon)
	case lx.try2('<', '>'):
		return emit(token.LtGt)
	case lx.try2('<', '='):
		return emit(token.LtEq)
	case lx.try2('>', '='):
		return emit(token.GtEq)
	}

	switch lx.cursor.Bump() {
	case '.':
		return emit(token.Dot)
	case '{':
		return emit(token.LBrace)
	case '}':
		return emit(token.RBrace)
	case ',':
		return emit(token.Comma)
	case ';':
		return emit(token.Semicolon)
	case '#':
		return emit(token.Hash)
	case '(':
		return emit(token.LParen)
	case ')':
		return emit(token.RParen)
	case '?':
		return emit(token.Question)
	case '^':
		return emit(token.Caret)
	case '$':
		return emit(token.Dollar)
	case '+':
		return emit(token.Plus)
	case '/':
		return emit(token.Slash)
	case '*':
		return emit(token.Star)
	case '-':
		return emit(token.Minus)
	case ':':
		return emit(token.Colon)
	case '=':
		return emit(token.Assign)
	case '<':
		return emit(token.Lt)
	case '>':
		return emit(token.Gt)
	case '@':
		return emit(token.At)
	case '[':
		return emit(token.LBracket)
	case ']':
		return emit(token.RBracket)
	default:
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
}
