package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/parser"
	"dtolsp/internal/testkit"
)

func firstMacro(t *testing.T, src string) *ast.Macro {
	t.Helper()
	res := parser.ParseText(src, parser.Options{})
	require.False(t, res.Bag.HasErrors())
	require.NotEmpty(t, res.AST.Types)
	var found *ast.Macro
	ast.Inspect(res.AST, func(n ast.Node) bool {
		if m, ok := n.(*ast.Macro); ok && found == nil {
			found = m
		}
		return found == nil
	})
	require.NotNil(t, found, "no macro in %q", src)
	return found
}

func names(props []hosttype.BaseProp) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name()
	}
	return out
}

func TestAllScalarsSkipsEntityTypedAndListProps(t *testing.T) {
	m := testkit.Model{
		"t.ID": testkit.Entity(testkit.ID("value")),
		"t.Node": testkit.Entity(
			testkit.PropSpec{Name: "id", Type: testkit.Ref("t.ID"), Anns: []string{"org.babyfish.jimmer.sql.Id"}},
			testkit.String("name"),
			testkit.PropSpec{Name: "tags", Type: testkit.Ref("java.util.List", testkit.Ref("java.lang.String"))},
			testkit.ManyToOne("self", "t.Node").Nullable(),
		),
	}
	owner := m.Context().Type("t.Node")
	require.NotNil(t, owner)
	macro := firstMacro(t, "NodeView { #allScalars }")

	for range 3 {
		props, err := ExpandMacro(macro, owner)
		require.Nil(t, err)
		assert.Equal(t, []string{"name"}, names(props))
	}
}

func TestAllScalarsKeepsScalarID(t *testing.T) {
	m := testkit.Model{
		"t.Node": testkit.Entity(
			testkit.ID("id"),
			testkit.String("name"),
			testkit.ManyToOne("parent", "t.Node").Nullable(),
		),
	}
	owner := m.Context().Type("t.Node")
	require.NotNil(t, owner)
	id, ok := owner.Props().Get("id")
	require.True(t, ok)
	require.True(t, id.Facets().Has(hosttype.FacetID))

	props, err := ExpandMacro(firstMacro(t, "NodeView { #allScalars }"), owner)
	require.Nil(t, err)
	if got := names(props); len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Fatalf("#allScalars = %v, want [id name]", got)
	}
}

func TestLibraryMacros(t *testing.T) {
	book := testkit.Library().Context().Type("com.x.Book")
	require.NotNil(t, book)

	tests := []struct {
		src  string
		want []string
	}{
		{"V { #allScalars }", []string{"id", "createdTime", "name", "edition", "price", "status"}},
		{"V { #allScalars(BaseEntity) }", []string{"createdTime"}},
		{"V { #allScalars(com.x.BaseEntity) }", []string{"createdTime"}},
		{"V { #allScalars(this) }", []string{"id", "name", "edition", "price", "status"}},
		{"V { #allReferences }", []string{"store"}},
	}
	for _, tt := range tests {
		props, err := ExpandMacro(firstMacro(t, tt.src), book)
		if err != nil {
			t.Fatalf("%s: %v", tt.src, err)
		}
		assert.Equal(t, tt.want, names(props), tt.src)
	}
}

func TestMacroErrors(t *testing.T) {
	book := testkit.Library().Context().Type("com.x.Book")

	_, err := ExpandMacro(firstMacro(t, "V { #allThings }"), book)
	require.NotNil(t, err)
	assert.Equal(t, MacroExpansion, err.Kind)

	_, err = ExpandMacro(firstMacro(t, "V { #allScalars(Author) }"), book)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "'Author' is neither 'this' nor a supertype of 'com.x.Book'")

	_, err = ExpandMacro(firstMacro(t, "V { #allScalars }"), nil)
	require.NotNil(t, err)
}

func TestOrphanMacroIsReported(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    name {
        #allScalars
    }
}
`)
	assert.Equal(t, []Kind{UnresolvedType, MacroExpansion}, c.kinds(), c.messages())
}
