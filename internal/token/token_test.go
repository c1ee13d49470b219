package token_test

import (
	"testing"

	"dtolsp/internal/token"
)

func TestKindClasses(t *testing.T) {
	lits := []token.Kind{token.IntLit, token.FloatLit, token.StringLit, token.SqlStringLit, token.CharLit}
	for _, k := range lits {
		if !(token.Token{Kind: k}).IsLiteral() {
			t.Fatalf("%v should be literal", k)
		}
	}
	for _, k := range []token.Kind{token.KwExport, token.KwClass, token.KwFuzzy} {
		if !(token.Token{Kind: k}).IsKeyword() {
			t.Fatalf("%v should be keyword", k)
		}
	}
	for _, k := range []token.Kind{token.CfgWhere, token.CfgDepth, token.CfgOffset} {
		if !(token.Token{Kind: k}).IsConfiguration() {
			t.Fatalf("%v should be configuration", k)
		}
	}
	for _, k := range []token.Kind{token.Dot, token.RBracket, token.LtGt} {
		if !(token.Token{Kind: k}).IsPunctOrOp() {
			t.Fatalf("%v should be punct", k)
		}
	}
	if (token.Token{Kind: token.Ident}).IsPunctOrOp() {
		t.Fatalf("ident must not be punct")
	}
}

func TestLookupKeyword(t *testing.T) {
	if k, ok := token.LookupKeyword("implements"); !ok || k != token.KwImplements {
		t.Fatalf("implements: got %v %v", k, ok)
	}
	if _, ok := token.LookupKeyword("Export"); ok {
		t.Fatalf("keywords are case-sensitive")
	}
	if _, ok := token.LookupKeyword("input"); ok {
		t.Fatalf("input is a contextual modifier, not a keyword")
	}
	if k, ok := token.LookupConfiguration("fetchType"); !ok || k != token.CfgFetchType {
		t.Fatalf("fetchType: got %v %v", k, ok)
	}
	if !token.IsModifier("specification") || token.IsModifier("view") {
		t.Fatalf("modifier table mismatch")
	}
	if token.KwExport.String() != "export" || token.CfgOrderBy.String() != "!orderBy" {
		t.Fatalf("String mismatch")
	}
}
