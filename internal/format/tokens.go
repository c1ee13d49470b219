package format

import (
	"strings"

	"dtolsp/internal/token"
)

// joinTokens prints a verbatim token run (annotation arguments, configuration
// arguments, default values) with canonical spacing.
func joinTokens(toks []token.Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		if i > 0 && spaceBetween(toks[i-1], tok, i >= 2 && !isOperand(toks[i-2])) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

func isOperand(t token.Token) bool {
	if t.IsKeyword() {
		return t.Kind == token.KwNull
	}
	return t.IsWord() || t.IsLiteral() || t.Kind == token.RParen || t.Kind == token.RBracket || t.Kind == token.RBrace
}

func isBinary(k token.Kind) bool {
	switch k {
	case token.Assign, token.Lt, token.Gt, token.LtGt, token.BangEq, token.LtEq, token.GtEq:
		return true
	}
	return false
}

// spaceBetween decides the gap between a and b. unary reports that a, when it
// is a minus, follows something other than an operand.
func spaceBetween(a, b token.Token, unary bool) bool {
	switch {
	case a.Kind == token.Dot || b.Kind == token.Dot,
		a.Kind == token.ColonColon || b.Kind == token.ColonColon,
		a.Kind == token.LParen || b.Kind == token.RParen,
		a.Kind == token.LBracket || b.Kind == token.RBracket,
		a.Kind == token.LBrace || b.Kind == token.RBrace,
		a.Kind == token.At,
		b.Kind == token.Comma, b.Kind == token.Semicolon:
		return false
	case b.Kind == token.LParen:
		// call-like: name(...) and nested annotations stay tight
		return !a.IsWord() || a.IsKeyword()
	case a.Kind == token.Comma, a.Kind == token.Semicolon:
		return true
	case isBinary(a.Kind) || isBinary(b.Kind):
		return true
	case a.Kind == token.Minus:
		return !unary
	case b.Kind == token.Minus:
		return isOperand(a)
	case a.IsKeyword() || b.IsKeyword():
		return true
	case isOperand(a) && isOperand(b):
		return true
	}
	return false
}
