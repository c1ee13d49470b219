package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/settings"
)

func formatString(t *testing.T, src string, opt Options) string {
	t.Helper()
	out, err := Source("test.dto", []byte(src), opt)
	require.NoError(t, err)
	if ok, msg := CheckRoundTrip("test.dto", []byte(src), opt); !ok {
		t.Fatalf("round trip: %s", msg)
	}
	return string(out)
}

func TestFormatHeaderAndTypes(t *testing.T) {
	src := `export com.x.Book   -> package com.x.dto
import com.x.Author
import com.x.{Store as S}
import java.time.LocalDate
// view
BookView{#allScalars
  @Ann(value="a") name ?
  -tenant
  author{id}
}
`
	want := `export com.x.Book
    -> package com.x.dto

import com.x.{Author, Store as S}
import java.time.LocalDate

// view
BookView {
    #allScalars
    @Ann(value = "a")
    name?

    -tenant
    author {
        id
    }
}
`
	assert.Equal(t, want, formatString(t, src, Options{}))
}

func TestFormatIsFixedPoint(t *testing.T) {
	src := `export com.x.Book

/**
   * A view.
   */
@Suppress("x")
input BookInput implements com.x.Marker<Long, *>, Other<out T> {
    #allScalars(Book, com.x.Author)?
    !orderBy(name desc)
    books {
        id
    }
    like/i^(name) as n
    status -> {
        ACTIVE: 1
        INACTIVE: -1
    }
    remark: List<String>? = "x"
    as(^ -> store) {
        name
    }
}
`
	once := formatString(t, src, Options{})
	twice := formatString(t, once, Options{})
	assert.Equal(t, once, twice)
	assert.Contains(t, once, "/**\n * A view.\n */\n")
	assert.Contains(t, once, "input BookInput implements com.x.Marker<Long, *>, Other<out T> {")
	assert.Contains(t, once, "    like/i^(name) as n\n")
	assert.Contains(t, once, "        INACTIVE: -1\n")
	assert.Contains(t, once, "    remark: List<String>? = \"x\"\n")
	assert.Contains(t, once, "    as(^ -> store) {\n        name\n    }\n")
}

func TestFormatPropsSpaceLine(t *testing.T) {
	src := "A { @X a\n b\n c }\n"
	tests := []struct {
		policy settings.PropsSpaceLine
		want   string
	}{
		{settings.SpaceAlways, "A {\n    @X\n    a\n\n    b\n\n    c\n}\n"},
		{settings.SpaceNever, "A {\n    @X\n    a\n    b\n    c\n}\n"},
		{settings.SpaceHasAnnotation, "A {\n    @X\n    a\n\n    b\n    c\n}\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got := formatString(t, src, Options{PropsSpaceLine: tt.policy})
			if got != tt.want {
				t.Fatalf("policy %s:\n got %q\nwant %q", tt.policy, got, tt.want)
			}
		})
	}
}

func TestFormatKeepsComments(t *testing.T) {
	src := "A {\n    a // trailing\n    // before b\n\n    b\n}\n"
	assert.Equal(t, src, formatString(t, src, Options{}))
}

func TestFormatIndentWidth(t *testing.T) {
	got := formatString(t, "A{a}", Options{IndentWidth: 2})
	assert.Equal(t, "A {\n  a\n}\n", got)
}

func TestFormatEmptyBody(t *testing.T) {
	assert.Equal(t, "A {}\n", formatString(t, "A {\n\n}", Options{}))
}

func TestFormatRefusesSyntaxErrors(t *testing.T) {
	_, err := Source("bad.dto", []byte("A {\n  b\n"), Options{})
	require.Error(t, err)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("want ErrSyntax, got %v", err)
	}
}

func TestJoinTokensSpacing(t *testing.T) {
	tests := []struct{ src, want string }{
		{`@A(value="a")`, `value = "a"`},
		{`@A(names={"a","b"})`, `names = {"a", "b"}`},
		{`@A(x=-1)`, `x = -1`},
		{`@A(type=String::class)`, `type = String::class`},
		{`@A(@B(1))`, `@B(1)`},
	}
	for _, tt := range tests {
		src := "A {\n    " + tt.src + "\n    a\n}\n"
		out, err := Source("t.dto", []byte(src), Options{})
		require.NoError(t, err, tt.src)
		assert.Contains(t, string(out), "@A("+tt.want+")")
	}
}
