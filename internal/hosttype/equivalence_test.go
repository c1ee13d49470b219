package hosttype_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/hosttype"
	"dtolsp/internal/hosttype/reflected"
	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/testkit"
)

const jimmerPkg = "org.babyfish.jimmer.sql."

func ann(name string, elems ...testkit.Elem) testkit.Ann {
	return testkit.Ann{Type: name, Elems: elems}
}

// The same model three ways: class bytes, Java source, Kotlin source.
func modelClasses() map[string]*testkit.ClassBuilder {
	return map[string]*testkit.ClassBuilder{
		"m.Named": testkit.NewInterface("m.Named").
			Annotate(ann(jimmerPkg+"MappedSuperclass")).
			Getter("getName", "java.lang.String", ann(jimmerPkg+"Key")),
		"m.Book": testkit.NewInterface("m.Book").
			Implements("m.Named").
			Annotate(ann(jimmerPkg+"Entity")).
			Getter("getId", "long", ann(jimmerPkg+"Id")).
			Getter("getEdition", "java.lang.Integer").
			Getter("getStore", "m.Store", ann(jimmerPkg+"ManyToOne"), ann("org.jetbrains.annotations.Nullable")).
			Getter("getAuthors", "java.util.List<m.Author>", ann(jimmerPkg+"ManyToMany")).
			Getter("getTags", "java.util.List<java.lang.String>").
			Getter("getStatus", "m.Status").
			Getter("getPrice", "java.math.BigDecimal"),
		"m.Store": testkit.NewInterface("m.Store").
			Annotate(ann(jimmerPkg+"Entity")).
			Getter("getId", "long", ann(jimmerPkg+"Id")),
		"m.Author": testkit.NewInterface("m.Author").
			Annotate(ann(jimmerPkg+"Entity")).
			Getter("getId", "long", ann(jimmerPkg+"Id")),
		"m.Status": testkit.NewEnum("m.Status", "DRAFT", "PUBLISHED"),
	}
}

const modelJava = `package m;

import org.babyfish.jimmer.sql.*;
import org.jetbrains.annotations.Nullable;
import java.math.BigDecimal;
import java.util.List;

@MappedSuperclass
interface Named {
    @Key String getName();
}

@Entity
interface Book extends Named {
    @Id long getId();
    Integer getEdition();
    @Nullable @ManyToOne Store getStore();
    @ManyToMany List<Author> getAuthors();
    List<String> getTags();
    Status getStatus();
    BigDecimal getPrice();
}

@Entity
interface Store {
    @Id long getId();
}

@Entity
interface Author {
    @Id long getId();
}

enum Status { DRAFT, PUBLISHED }
`

const modelKotlin = `package m

import org.babyfish.jimmer.sql.*
import java.math.BigDecimal

@MappedSuperclass
interface Named {
    @Key
    val name: String
}

@Entity
interface Book : Named {
    @Id
    val id: Long
    val edition: Int?
    @ManyToOne
    val store: Store?
    @ManyToMany
    val authors: List<Author>
    val tags: List<String>
    val status: Status
    val price: BigDecimal
}

@Entity
interface Store {
    @Id
    val id: Long
}

@Entity
interface Author {
    @Id
    val id: Long
}

enum class Status { DRAFT, PUBLISHED }
`

func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
	return root
}

func reflectedProvider(t *testing.T) *reflected.Provider {
	t.Helper()
	files := make(map[string][]byte)
	for name, b := range modelClasses() {
		files[strings.ReplaceAll(name, ".", "/")+".class"] = b.Bytes()
	}
	ix := reflected.NewIndex([]string{writeTree(t, files)}, nil)
	_, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	return reflected.NewProvider(ix)
}

func sourceProvider(t *testing.T, rel, content string) *srcparse.Provider {
	t.Helper()
	ix := srcparse.NewIndex([]string{writeTree(t, map[string][]byte{rel: []byte(content)})}, nil, nil)
	_, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	return srcparse.NewProvider(ix)
}

type propView struct {
	ID, List, Association, Nullable bool
	Enum                            []string
}

func viewOf(t *testing.T, p hosttype.Provider) map[string]propView {
	t.Helper()
	ctx := hosttype.NewContext(p, nil)
	book := ctx.Type("m.Book")
	require.NotNil(t, book, p.Name())
	out := make(map[string]propView)
	for _, prop := range book.Props().Values() {
		f := prop.Facets()
		out[prop.Name()] = propView{
			ID:          f.Has(hosttype.FacetID),
			List:        f.Has(hosttype.FacetList),
			Association: f.Has(hosttype.FacetAssociation),
			Nullable:    f.Has(hosttype.FacetNullable),
			Enum:        prop.EnumConstants(),
		}
	}
	return out
}

func TestBackendsAgree(t *testing.T) {
	classes := viewOf(t, reflectedProvider(t))
	java := viewOf(t, sourceProvider(t, "m/Model.java", modelJava))
	kotlin := viewOf(t, sourceProvider(t, "m/Model.kt", modelKotlin))

	assert.Equal(t, propView{ID: true}, classes["id"])
	assert.Equal(t, propView{Association: true, Nullable: true}, classes["store"])
	assert.Equal(t, propView{List: true, Association: true}, classes["authors"])
	assert.Equal(t, propView{List: true}, classes["tags"])
	assert.Equal(t, propView{Nullable: true}, classes["edition"])
	assert.Equal(t, propView{Enum: []string{"DRAFT", "PUBLISHED"}}, classes["status"])
	assert.Len(t, classes, 8)

	assert.Equal(t, classes, java, "class files vs Java source")
	assert.Equal(t, classes, kotlin, "class files vs Kotlin source")
}

func TestVerifiedChainAcceptsEquivalentBackends(t *testing.T) {
	for _, tc := range []struct {
		name, rel, src string
	}{
		{"java", "m/Model.java", modelJava},
		{"kotlin", "m/Model.kt", modelKotlin},
	} {
		t.Run(tc.name, func(t *testing.T) {
			chain := hosttype.NewChain(true, reflectedProvider(t), sourceProvider(t, tc.rel, tc.src))
			ctx := hosttype.NewContext(chain, nil)
			for _, name := range []string{"m.Book", "m.Named", "m.Store", "m.Author", "m.Status"} {
				assert.NotNil(t, ctx.Type(name), name)
			}
			assert.Empty(t, ctx.Errors())
		})
	}
}

func TestVerifiedChainRejectsDisagreement(t *testing.T) {
	drifted := strings.Replace(modelJava, "Integer getEdition();", "@Key Integer getEdition();", 1)
	chain := hosttype.NewChain(true, reflectedProvider(t), sourceProvider(t, "m/Model.java", drifted))
	ctx := hosttype.NewContext(chain, nil)

	assert.Nil(t, ctx.Type("m.Book"), "disagreement is treated as no match")
	errs := ctx.ErrorsFor("m.Book")
	require.Len(t, errs, 1)
	var inc *hosttype.InconsistencyError
	require.True(t, errors.As(errs[0], &inc))
	assert.Equal(t, "reflected", inc.First)
	assert.Equal(t, "srcparse", inc.Second)
	assert.Contains(t, inc.Detail, "edition")

	assert.NotNil(t, ctx.Type("m.Store"), "other types still resolve")
}

func TestUnverifiedChainPrefersFirstProvider(t *testing.T) {
	chain := hosttype.NewChain(false, sourceProvider(t, "m/Model.kt", modelKotlin), reflectedProvider(t))
	ctx := hosttype.NewContext(chain, nil)
	book := ctx.Type("m.Book")
	require.NotNil(t, book)
	assert.Equal(t, "srcparse", book.Origin().Backend)
	assert.Contains(t, chain.ImmutableNames(), "m.Book")
	assert.Equal(t, "chain(srcparse,reflected)", chain.Name())
}
