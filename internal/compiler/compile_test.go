package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/diag"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/parser"
	"dtolsp/internal/testkit"
)

type compiled struct {
	src   string
	model *Model
	errs  []*Error
	hctx  *hosttype.Context
}

func compileText(t *testing.T, m testkit.Model, src string) compiled {
	t.Helper()
	res := parser.ParseText(src, parser.Options{})
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected syntax errors: %+v", res.Bag.Items())
	}
	hctx := m.Context()
	q := BaseTypeQuery{FileName: "Book.dto"}
	if res.AST.Export != nil {
		q.Export = res.AST.Export.Type.String()
	}
	base, name := ResolveBaseType(hctx, q)
	model, errs := Compile(context.Background(), res.AST, base, Options{BaseName: name, Context: hctx})
	return compiled{src: src, model: model, errs: errs, hctx: hctx}
}

func (c compiled) kinds() []Kind {
	out := make([]Kind, len(c.errs))
	for i, e := range c.errs {
		out[i] = e.Kind
	}
	return out
}

func (c compiled) messages() string {
	var sb strings.Builder
	for _, e := range c.errs {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// offset is the byte offset of the n-th (0-based) occurrence of s.
func (c compiled) offset(s string, n int) uint32 {
	off := 0
	for i := 0; ; i++ {
		j := strings.Index(c.src[off:], s)
		if j < 0 {
			return 0
		}
		if i == n {
			return uint32(off + j)
		}
		off += j + len(s)
	}
}

func TestEndToEndRecursiveView(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Foo

FooView {
    name
    parent {
        name
    }
}
`)
	require.Empty(t, c.errs, c.messages())
	require.NotNil(t, c.model)
	view := c.model.Type("FooView")
	require.NotNil(t, view)
	assert.Equal(t, "com.x.Foo", view.Base.QualifiedName())
	assert.Equal(t, []string{"name", "parent"}, view.Body.Names())

	parent := view.Body.Find("parent")
	require.NotNil(t, parent)
	require.NotNil(t, parent.Body)
	assert.Equal(t, view.Base.Props().Keys(), parent.Body.Owner.Props().Keys())
	assert.True(t, parent.BaseProp().Facets().Has(hosttype.FacetRecursive))
	assert.Equal(t, []string{"name"}, parent.Body.Names())
}

func TestMissingPropIsReportedOnce(t *testing.T) {
	c := compileText(t, testkit.Library(), "export com.x.Foo\n\nFooView { missingProp }\n")
	require.Len(t, c.errs, 1, c.messages())
	e := c.errs[0]
	assert.Equal(t, UnresolvedProp, e.Kind)
	assert.Equal(t, c.offset("missingProp", 0), e.Span.Start)
	assert.Equal(t, e.Span.Start+uint32(len("missingProp")), e.Span.End)
	assert.Equal(t, diag.DtoUnresolvedProp, e.Code())
	assert.Contains(t, e.Message, `"com.x.Foo"`)
}

func TestUnresolvedBaseType(t *testing.T) {
	c := compileText(t, testkit.Library(), "export com.x.Nope\n\nNopeView { id }\nOtherView { id }\n")
	require.Equal(t, []Kind{UnresolvedType, UnresolvedType}, c.kinds())
	assert.Equal(t, "No immutable type 'com.x.Nope' found. Please build the project or use the export statement.", c.errs[0].Message)
	assert.Equal(t, c.offset("NopeView", 0), c.errs[0].Span.Start)
	require.Len(t, c.model.Types, 2)
	assert.Nil(t, c.model.Types[0].Body, "a type stops at an unresolved base")
}

func TestCyclicBaseType(t *testing.T) {
	m := testkit.Model{
		"c.A": {Kind: hosttype.KindEntity, Supers: []string{"c.B"}, Props: []testkit.PropSpec{testkit.ID("id")}},
		"c.B": {Kind: hosttype.KindMappedSuperclass, Supers: []string{"c.A"}},
	}
	c := compileText(t, m, "export c.A\n\nAView { id }\n")
	require.Equal(t, []Kind{UnresolvedType}, c.kinds(), c.messages())
	assert.Equal(t, diag.DtoCyclicSupertype, c.errs[0].Code())
	var cyc *hosttype.CycleError
	require.ErrorAs(t, c.errs[0], &cyc)
	assert.Equal(t, []string{"c.A", "c.B", "c.A"}, cyc.Chain)
}

func TestNegativePropsAndOverrides(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    #allScalars
    -createdTime
    name as title
    edition?
    -nothing
}
`)
	require.Equal(t, []Kind{UnresolvedProp}, c.kinds(), c.messages())
	body := c.model.Type("BookView").Body
	assert.Equal(t, []string{"id", "name", "edition", "price", "status", "title"}, body.Names())
	edition := body.Find("edition")
	assert.True(t, edition.Optional)
	assert.NotNil(t, edition.Node, "explicit prop replaces the macro expansion")
	assert.Nil(t, body.Find("id").Node)
}

func TestDuplicateProps(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    name
    edition as name
    remark: String
    remark: String
}
BookView {}
`)
	assert.Equal(t, []Kind{Duplicate, Duplicate, Duplicate}, c.kinds(), c.messages())
}

func TestAssociationsNeedBodies(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    id(store)
    id(authors) as authorIds
    authors {
        firstName
    }
    name {
        id
    }
}
StoreView {
    store
}
`)
	require.Equal(t, []Kind{InvalidFunc, UnresolvedType, MissingBody}, c.kinds(), c.messages())
	body := c.model.Type("BookView").Body
	assert.Equal(t, []string{"store", "authors", "name"}, body.Names())
	assert.Equal(t, "id", body.Find("store").Func)
	assert.Nil(t, body.Find("name").Body)
	assert.Equal(t, "com.x.Author", body.Find("authors").Body.Owner.QualifiedName())
	assert.Equal(t, c.offset("store", 1), c.errs[2].Span.Start)
}

func TestFlatBindsAcrossAssociation(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    name
    flat(store) {
        as(^ -> store) {
            name
        }
    }
}
`)
	require.Empty(t, c.errs, c.messages())
	body := c.model.Type("BookView").Body
	assert.Equal(t, []string{"name", "storeName"}, body.Names())
	storeName := body.Find("storeName")
	require.Len(t, storeName.Chain, 2)
	assert.Equal(t, "store", storeName.Chain[0].Name())
	assert.Equal(t, "name", storeName.Chain[1].Name())
	assert.Equal(t, "com.x.BookStore", storeName.BaseProp().DeclaringType().QualifiedName())
}

func TestAliasGroup(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    as(^ -> my) {
        name
        #allReferences
    }
    as(price -> cost) {
        price
    }
}
`)
	require.Empty(t, c.errs, c.messages())
	assert.Equal(t, []string{"myName", "myStore", "cost"}, c.model.Type("BookView").Body.Names())
}

func TestEnumMapping(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    status -> {
        DRAFT: 1
        PUBLISHED: 2
    }
}
BadView {
    status -> {
        DRAFT: 1
        RETIRED: 2
    }
    name -> {
        A: 1
    }
}
`)
	require.Equal(t, []Kind{UnresolvedProp, InvalidConfig, UnresolvedType}, c.kinds(), c.messages())
	status := c.model.Type("BookView").Body.Find("status")
	assert.Equal(t, map[string]string{"DRAFT": "1", "PUBLISHED": "2"}, status.EnumMap)
}

func TestUserProps(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

import java.time.LocalDate as Day

BookView {
    name
    remark: String?
    tags: MutableList<String>
    day: Day
    money: java.math.BigDecimal
    broken: Unknown
}
`)
	require.Equal(t, []Kind{UnresolvedType}, c.kinds(), c.messages())
	assert.Equal(t, diag.DtoUnresolvedUserType, c.errs[0].Code())
	body := c.model.Type("BookView").Body
	assert.Equal(t, []string{"name", "remark", "tags", "day", "money"}, body.Names())
	assert.Equal(t, "java.time.LocalDate", body.UserProps[2].Type.Name)
	assert.Equal(t, "java.util.List<String>", body.UserProps[1].Type.Name+"<"+body.UserProps[1].Type.Args[0].SimpleName()+">")
	assert.True(t, body.UserProps[0].Type.Nullable)
}

func TestDepthCap(t *testing.T) {
	res := parser.ParseText(`export com.x.Foo

FooView {
    parent {
        parent {
            parent {
                name
            }
        }
    }
}
`, parser.Options{})
	require.False(t, res.Bag.HasErrors())
	hctx := testkit.Library().Context()
	base := hctx.Type("com.x.Foo")
	_, errs := Compile(context.Background(), res.AST, base, Options{MaxDepth: 2})
	require.Len(t, errs, 1)
	assert.Equal(t, DepthExceeded, errs[0].Kind)

	_, errs = Compile(context.Background(), res.AST, base, Options{})
	assert.Empty(t, errs)
}

func TestCompileHonorsCancellation(t *testing.T) {
	res := parser.ParseText("export com.x.Foo\n\nFooView { name }\n", parser.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model, errs := Compile(ctx, res.AST, testkit.Library().Context().Type("com.x.Foo"), Options{})
	assert.Nil(t, model)
	assert.Empty(t, errs)
}

func TestReportForwardsDiagnostics(t *testing.T) {
	res := parser.ParseText("export com.x.Foo\n\nFooView { nope }\n", parser.Options{})
	bag := diag.NewBag(10)
	_, errs := Compile(context.Background(), res.AST, testkit.Library().Context().Type("com.x.Foo"),
		Options{Reporter: diag.BagReporter{Bag: bag}})
	require.Len(t, errs, 1)
	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	assert.Equal(t, diag.DtoUnresolvedProp, d.Code)
	assert.Equal(t, diag.SevError, d.Severity)
	assert.Equal(t, errs[0].Span, d.Primary)
}

func TestInvalidModifiers(t *testing.T) {
	c := compileText(t, testkit.Library(), `export com.x.Book

BookView {
    fixed name
}
input specification Both {
    name
}
`)
	assert.Equal(t, []Kind{InvalidModifier, InvalidModifier}, c.kinds(), c.messages())
}
