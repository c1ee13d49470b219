package reflected

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/hosttype"
	"dtolsp/internal/testkit"
)

const jimmer = "org.babyfish.jimmer.sql."

func ann(name string, elems ...testkit.Elem) testkit.Ann {
	return testkit.Ann{Type: name, Elems: elems}
}

func writeClass(t *testing.T, root string, name string, b *testkit.ClassBuilder) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func libraryClasses() map[string]*testkit.ClassBuilder {
	return map[string]*testkit.ClassBuilder{
		"a.BaseEntity": testkit.NewInterface("a.BaseEntity").
			Annotate(ann(jimmer+"MappedSuperclass")).
			Getter("createdTime", "java.time.LocalDateTime"),
		"a.Book": testkit.NewInterface("a.Book").
			Implements("a.BaseEntity", "java.io.Serializable").
			Annotate(ann(jimmer+"Entity")).
			Getter("id", "long", ann(jimmer+"Id")).
			Getter("name", "java.lang.String", ann(jimmer+"Key")).
			Getter("edition", "java.lang.Integer").
			Getter("store", "a.Store", ann(jimmer+"ManyToOne"), ann("javax.annotation.Nullable")).
			Getter("authors", "java.util.List<a.Author>", ann(jimmer+"ManyToMany")).
			Getter("status", "a.Status").
			Method(0x0001, "describe", "()Ljava/lang/String;", "", ann(jimmer+"Formula")).
			Method(0x0001|0x0008, "of", "()La/Book;", "").
			Method(0x0001|0x0400, "rename", "(Ljava/lang/String;)La/Book;", ""),
		"a.Store": testkit.NewInterface("a.Store").
			Annotate(ann(jimmer+"Entity")).
			Getter("id", "long", ann(jimmer+"Id")),
		"a.Author": testkit.NewInterface("a.Author").
			Annotate(ann(jimmer+"Entity")).
			Getter("id", "long", ann(jimmer+"Id")),
		"a.Status":   testkit.NewEnum("a.Status", "DRAFT", "PUBLISHED"),
		"a.Helper":   testkit.NewClass("a.Helper"),
		"a.Helper$1": testkit.NewClass("a.Helper$1"),
	}
}

func newIndexedContext(t *testing.T) (*hosttype.Context, *Index) {
	t.Helper()
	root := t.TempDir()
	for name, b := range libraryClasses() {
		writeClass(t, root, name, b)
	}
	ix := NewIndex([]string{root, filepath.Join(root, "missing")}, nil)
	_, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	return hosttype.NewContext(NewProvider(ix), nil), ix
}

func TestResolveEntity(t *testing.T) {
	ctx, _ := newIndexedContext(t)

	book := ctx.Type("a.Book")
	require.NotNil(t, book)
	assert.Equal(t, hosttype.KindEntity, book.Kind())
	assert.Equal(t, "Book", book.Name())
	assert.Equal(t, "a", book.PackageName())
	require.Len(t, book.SuperTypes(), 1, "unannotated supertypes are not host types")
	assert.Equal(t, "a.BaseEntity", book.SuperTypes()[0].QualifiedName())

	assert.Equal(t, []string{"id", "name", "edition", "store", "authors", "status", "describe"}, book.DeclaredProps().Keys())
	assert.Equal(t, []string{"id", "createdTime", "name", "edition", "store", "authors", "status", "describe"}, book.Props().Keys())
	assert.Equal(t, "id", book.IDProp().Name())

	authors, _ := book.Props().Get("authors")
	assert.Equal(t, "java.util.List", authors.Type().Name)
	assert.Equal(t, "a.Author", authors.Type().Element().Name)
	assert.Equal(t, hosttype.PropAssociation, hosttype.PropTypeOf(authors))

	store, _ := book.Props().Get("store")
	assert.True(t, store.IsReference())
	assert.True(t, store.Facets().Has(hosttype.FacetNullable))

	edition, _ := book.Props().Get("edition")
	assert.True(t, edition.Facets().Has(hosttype.FacetNullable), "boxed")

	status, _ := book.Props().Get("status")
	assert.Equal(t, []string{"DRAFT", "PUBLISHED"}, status.EnumConstants())

	origin := book.Origin()
	assert.Equal(t, "reflected", origin.Backend)
	assert.Equal(t, "a/Book.class", origin.Entry)

	assert.Nil(t, ctx.Type("a.Helper"), "plain classes are not host types")
	assert.Nil(t, ctx.Type("java.lang.String"))
}

func TestIndexNames(t *testing.T) {
	_, ix := newIndexedContext(t)
	gen := ix.Generation()
	require.NotNil(t, gen)
	assert.Equal(t, []string{"a.Author", "a.BaseEntity", "a.Book", "a.Store"}, gen.ImmutableNames())
	assert.Contains(t, gen.Names(), "a.Helper")
	assert.NotContains(t, gen.Names(), "a.Helper.1")
	assert.True(t, gen.Has("a.Status"))
}

func TestKotlinClassFile(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "k.Book", testkit.NewInterface("k.Book").
		Annotate(ann(jimmer+"Entity"), ann("kotlin.Metadata", testkit.IntElem("k", 1))).
		Getter("getId", "long", ann("org.jetbrains.annotations.NotNull", testkit.StringElem("value", ""))).
		Getter("getName", "java.lang.String", ann("org.jetbrains.annotations.Nullable")).
		Getter("isActive", "boolean").
		Method(0x0001|0x0008|0x1000, "getId$annotations", "()V", "", ann(jimmer+"Id")))

	ix := NewIndex([]string{root}, nil)
	_, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	ctx := hosttype.NewContext(NewProvider(ix), nil)

	book := ctx.Type("k.Book")
	require.NotNil(t, book)
	assert.Equal(t, []string{"id", "name", "isActive"}, book.DeclaredProps().Keys())
	assert.Equal(t, "id", book.IDProp().Name(), "property annotations come from the synthetic method")

	name, _ := book.DeclaredProps().Get("name")
	assert.True(t, name.Type().Nullable, "Kotlin nullability becomes the type marker")
	assert.Empty(t, name.Annotations())
	assert.True(t, name.Facets().Has(hosttype.FacetNullable))

	id, _ := book.DeclaredProps().Get("id")
	assert.False(t, id.Facets().Has(hosttype.FacetNullable))
	assert.Len(t, book.Annotations(), 1, "kotlin.Metadata is not exposed")
}

func TestJarRoot(t *testing.T) {
	dir := t.TempDir()
	jarPath := filepath.Join(dir, "model.jar")
	f, err := os.Create(jarPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, b := range libraryClasses() {
		w, err := zw.Create(strings.ReplaceAll(name, ".", "/") + ".class")
		require.NoError(t, err)
		_, err = w.Write(b.Bytes())
		require.NoError(t, err)
	}
	w, err := zw.Create("META-INF/versions/9/module-info.class")
	require.NoError(t, err)
	_, _ = w.Write([]byte{0})
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	ix := NewIndex([]string{jarPath}, nil)
	_, err = ix.Refresh(context.Background())
	require.NoError(t, err)
	ctx := hosttype.NewContext(NewProvider(ix), nil)

	book := ctx.Type("a.Book")
	require.NotNil(t, book)
	assert.Equal(t, jarPath, book.Origin().Path)
	assert.Equal(t, 8, book.Props().Len())
}

func TestRefreshPublishesGenerations(t *testing.T) {
	root := t.TempDir()
	ix := NewIndex([]string{root}, nil)
	assert.Nil(t, ix.Generation())
	assert.Nil(t, NewProvider(ix).ImmutableNames())

	first, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first.ImmutableNames())

	writeClass(t, root, "a.Store", libraryClasses()["a.Store"])

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ix.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	gen := ix.Generation()
	assert.Greater(t, gen.Seq, first.Seq)
	assert.Equal(t, []string{"a.Store"}, gen.ImmutableNames())
	assert.Empty(t, first.ImmutableNames(), "old generations are never mutated")
}

func TestRefreshHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "a.Store", libraryClasses()["a.Store"])
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIndex([]string{root}, nil).Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
