package hosttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNoSupertypesPutsIDFirst(t *testing.T) {
	ctx := NewContext(newFake("fake", map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{scalar("name"), id("id"), scalar("edition")}},
	}), nil)

	book := ctx.Type("a.Book")
	require.NotNil(t, book)
	assert.Equal(t, []string{"id", "name", "edition"}, book.Props().Keys())
	assert.Equal(t, []string{"name", "id", "edition"}, book.DeclaredProps().Keys())
}

func TestMergeOrderAcrossSupertypes(t *testing.T) {
	ctx := NewContext(newFake("fake", map[string]typeDecl{
		"a.Base":  {kind: KindMappedSuperclass, props: []propDecl{scalar("createdTime"), id("id")}},
		"a.Named": {kind: KindMappedSuperclass, props: []propDecl{scalar("name")}},
		"a.Book": {
			kind:   KindEntity,
			supers: []string{"a.Base", "a.Named"},
			props:  []propDecl{scalar("edition"), scalar("name")},
		},
	}), nil)

	book := ctx.Type("a.Book")
	require.NotNil(t, book)
	require.Len(t, book.SuperTypes(), 2)

	// id props of every supertype first, then non-id props of supertypes, then
	// own props; a redeclared name keeps its first position.
	assert.Equal(t, []string{"id", "createdTime", "name", "edition"}, book.Props().Keys())

	got := owners(book.Props())
	assert.Equal(t, "a.Book", got["name"], "own declaration replaces the inherited one")
	// No primary supertype (all are mapped superclasses): inherited props are
	// redefined at this level.
	assert.Equal(t, "a.Book", got["createdTime"])
	assert.Equal(t, "a.Book", got["id"])
}

func TestMergeKeepsPrimaryOwnership(t *testing.T) {
	ctx := NewContext(newFake("fake", map[string]typeDecl{
		"a.Entity":  {kind: KindEntity, props: []propDecl{id("id"), scalar("name")}},
		"a.Mixin":   {kind: KindMappedSuperclass, props: []propDecl{scalar("tenant"), scalar("name")}},
		"a.Derived": {kind: KindEntity, supers: []string{"a.Mixin", "a.Entity"}},
	}), nil)

	d := ctx.Type("a.Derived")
	require.NotNil(t, d)
	assert.Equal(t, "a.Entity", PrimarySuperType(d).QualifiedName())
	assert.Equal(t, []string{"id", "tenant", "name"}, d.Props().Keys())

	got := owners(d.Props())
	assert.Equal(t, "a.Entity", got["id"], "primary supertype props keep their owner")
	assert.Equal(t, "a.Entity", got["name"])
	assert.Equal(t, "a.Derived", got["tenant"], "props missing from the primary are redeclared here")
}

func TestIDPropFallsBackToSupertype(t *testing.T) {
	ctx := NewContext(newFake("fake", map[string]typeDecl{
		"a.Base": {kind: KindMappedSuperclass, props: []propDecl{id("id")}},
		"a.Book": {kind: KindEntity, supers: []string{"a.Base"}, props: []propDecl{scalar("name")}},
		"a.Own":  {kind: KindEntity, supers: []string{"a.Base"}, props: []propDecl{id("code")}},
	}), nil)

	book := ctx.Type("a.Book")
	require.NotNil(t, book.IDProp())
	assert.Equal(t, "id", book.IDProp().Name())
	assert.Equal(t, "code", ctx.Type("a.Own").IDProp().Name())
}

func TestMergeIsStable(t *testing.T) {
	decls := map[string]typeDecl{
		"a.A": {kind: KindMappedSuperclass, props: []propDecl{scalar("x"), id("id")}},
		"a.B": {kind: KindMappedSuperclass, props: []propDecl{scalar("y"), scalar("x")}},
		"a.C": {kind: KindEntity, supers: []string{"a.A", "a.B"}, props: []propDecl{scalar("z")}},
	}
	first := NewContext(newFake("fake", decls), nil).Type("a.C").Props().Keys()
	for i := 0; i < 20; i++ {
		again := NewContext(newFake("fake", decls), nil).Type("a.C").Props().Keys()
		require.Equal(t, first, again)
	}
}
