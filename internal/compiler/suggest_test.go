package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/parser"
	"dtolsp/internal/testkit"
)

func TestClosestNameHandlesTranspositions(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"nme", "name"},
		{"naem", "name"},
		{"chidlren", "children"},
		{"title", ""},
	}
	names := []string{"id", "name", "parent", "children"}
	for _, tc := range cases {
		if got := closestName(tc.name, names); got != tc.want {
			t.Fatalf("closestName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClosestName(t *testing.T) {
	names := []string{"id", "name", "parent", "children"}
	assert.Equal(t, "name", closestName("nmae", names))
	assert.Equal(t, "parent", closestName("Parent", names))
	assert.Equal(t, "", closestName("zzzzzz", names))
	assert.Equal(t, "", closestName("", names))
}

func TestUnresolvedPropCarriesFix(t *testing.T) {
	res := parser.ParseText("export com.x.Foo\n\nFooView { nmae }\n", parser.Options{})
	_, errs := Compile(context.Background(), res.AST, testkit.Library().Context().Type("com.x.Foo"), Options{})
	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Suggestion)

	d := errs[0].Diagnostic()
	require.Len(t, d.Fixes, 1)
	assert.Equal(t, `Replace with "name"`, d.Fixes[0].Title)
	require.Len(t, d.Fixes[0].Edits, 1)
	assert.Equal(t, errs[0].Span, d.Fixes[0].Edits[0].Span)
	assert.Equal(t, "name", d.Fixes[0].Edits[0].NewText)
}
