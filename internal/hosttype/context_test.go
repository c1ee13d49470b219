package hosttype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextMemoizes(t *testing.T) {
	p := newFake("fake", map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{id("id")}},
	})
	ctx := NewContext(p, nil)

	first := ctx.Type("a.Book")
	second := ctx.Type("a.Book")
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, p.resolve)

	assert.Nil(t, ctx.Type("a.Missing"))
	assert.Nil(t, ctx.Type(""))
}

func TestContextRejectsSupertypeCycle(t *testing.T) {
	ctx := NewContext(newFake("fake", map[string]typeDecl{
		"a.A": {kind: KindMappedSuperclass, supers: []string{"a.B"}, props: []propDecl{scalar("x")}},
		"a.B": {kind: KindMappedSuperclass, supers: []string{"a.A"}, props: []propDecl{scalar("y")}},
	}), nil)

	a := ctx.Type("a.A")
	require.NotNil(t, a)
	require.Len(t, a.SuperTypes(), 1)
	b := a.SuperTypes()[0]
	assert.Empty(t, b.SuperTypes(), "the edge back to a.A is dropped")

	// Merging terminates.
	assert.ElementsMatch(t, []string{"x", "y"}, a.Props().Keys())

	errs := ctx.ErrorsFor("a.A")
	require.Len(t, errs, 1)
	var cyc *CycleError
	require.True(t, errors.As(errs[0], &cyc))
	assert.Equal(t, []string{"a.A", "a.B", "a.A"}, cyc.Chain)
}

func TestChainFirstMatchWins(t *testing.T) {
	classes := newFake("classes", map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{id("id")}},
	})
	sources := newFake("sources", map[string]typeDecl{
		"a.Book":   {kind: KindEntity, props: []propDecl{id("id"), scalar("draft")}},
		"a.Author": {kind: KindEntity},
	})
	ctx := NewContext(NewChain(false, classes, sources), nil)

	book := ctx.Type("a.Book")
	require.NotNil(t, book)
	assert.Equal(t, []string{"id"}, book.Props().Keys())
	assert.NotNil(t, ctx.Type("a.Author"), "falls through to the next provider")
	assert.Equal(t, 1, sources.resolve, "sources consulted only for the name classes lacked")
	assert.Equal(t, []string{"a.Author", "a.Book"}, ctx.Provider().ImmutableNames())
}

func TestChainVerifyFailsClosed(t *testing.T) {
	classes := newFake("classes", map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{id("id"), scalar("name")}},
	})
	sources := newFake("sources", map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{id("id"), {name: "name", ref: ref("java.lang.String"), anns: []string{"Key"}}}},
	})
	ctx := NewContext(NewChain(true, classes, sources), nil)

	assert.Nil(t, ctx.Type("a.Book"))
	errs := ctx.ErrorsFor("a.Book")
	require.Len(t, errs, 1)
	var inc *InconsistencyError
	require.True(t, errors.As(errs[0], &inc))
	assert.Equal(t, "classes", inc.First)
	assert.Equal(t, "sources", inc.Second)
	assert.Contains(t, inc.Detail, "name")
}

func TestChainVerifyAgreeing(t *testing.T) {
	decl := map[string]typeDecl{
		"a.Book": {kind: KindEntity, props: []propDecl{id("id"), scalar("name")}},
	}
	ctx := NewContext(NewChain(true, newFake("x", decl), newFake("y", decl)), nil)
	require.NotNil(t, ctx.Type("a.Book"))
	assert.Empty(t, ctx.Errors())
}
