package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hoverDTO = `export com.x.Book
    -> package com.x.dto

import com.x.{Status, Author}

BookView {
    #allScalars
    -price
    name as title
    store? {
        name
    }
    as(^ -> my) {
        edition
    }
}
`

func hoverAt(t *testing.T, needle string, n int) string {
	t.Helper()
	ts := newTestServer(t, nil)
	d, snap := ts.open(t, testURI, hoverDTO)
	h := buildHover(snap, baseOf(d), at(t, hoverDTO, needle, n))
	require.NotNil(t, h, "no hover on %q", needle)
	require.NotNil(t, h.Range)
	assert.Equal(t, "markdown", h.Contents.Kind)
	return h.Contents.Value
}

func TestHoverHeader(t *testing.T) {
	assert.Equal(t, "## Export\n`com.x.Book`\n## Package\n`com.x.dto`", hoverAt(t, "Book", 0))
	assert.Equal(t, "## Import\n`com.x`\n## Types\n`Status`, `Author`", hoverAt(t, "Author", 0))
}

func TestHoverMacroListsExpansion(t *testing.T) {
	text := hoverAt(t, "allScalars", 0)
	assert.Contains(t, text, "## allScalars\n")
	assert.Contains(t, text, "`name`")
	assert.Contains(t, text, "`createdTime`")
	assert.NotContains(t, text, "`store`")
	assert.NotContains(t, text, "`deleted`")
}

func TestHoverProps(t *testing.T) {
	assert.Equal(t, "## name `title`\nTrace: `BookView.name`\n\nFrom: `Book`\n\nType: `Key`\n", hoverAt(t, "name", 0))

	store := hoverAt(t, "store", 0)
	assert.Contains(t, store, "Trace: `BookView.store`")
	assert.Contains(t, store, "Type: `Association`")
	assert.Contains(t, store, "## Optional\nThis property is optional")

	nested := hoverAt(t, "name", 1)
	assert.Contains(t, nested, "Trace: `BookView.store.name`")
	assert.Contains(t, nested, "From: `BookStore`")

	assert.Contains(t, hoverAt(t, "edition", 0), "## edition `myEdition`\n")
	assert.Contains(t, hoverAt(t, "price", 0), "## Negative\nThis property is negative")
}

func TestHoverOutsideAnythingIsNil(t *testing.T) {
	ts := newTestServer(t, nil)
	d, snap := ts.open(t, testURI, hoverDTO)
	assert.Nil(t, buildHover(snap, baseOf(d), at(t, hoverDTO, "\n\nBookView", 0)+1))
}
