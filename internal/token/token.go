package token

import (
	"dtolsp/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a numeric, string or char literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, SqlStringLit, CharLit:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwExport && t.Kind <= KwClass
}

// IsConfiguration reports whether the token opens a configuration clause.
func (t Token) IsConfiguration() bool {
	return t.Kind >= CfgWhere && t.Kind <= CfgDepth
}

// IsPunctOrOp reports whether the token is punctuation or an operator.
func (t Token) IsPunctOrOp() bool {
	return t.Kind >= Dot && t.Kind <= RBracket
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsWord reports whether the token is spelled like an identifier. Keywords count,
// because prop names such as "class" or "static" appear after a dot.
func (t Token) IsWord() bool { return t.Kind == Ident || t.IsKeyword() }

// HasNewlineBefore reports whether leading trivia contains a line break.
func (t Token) HasNewlineBefore() bool {
	for _, tr := range t.Leading {
		if tr.Kind == TriviaNewline {
			return true
		}
	}
	return false
}
