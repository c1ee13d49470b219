package lsp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentSymbolsNestBodies(t *testing.T) {
	ts := newTestServer(t, nil)
	_, snap := ts.open(t, testURI, hoverDTO)
	syms := buildDocumentSymbols(snap)
	require.Len(t, syms, 1)
	view := syms[0]
	assert.Equal(t, "BookView", view.Name)
	assert.Equal(t, symbolClass, view.Kind)
	assert.Equal(t, 5, view.SelectionRange.Start.Line)
	assert.Equal(t, 15, view.Range.End.Line)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "store", view.Children[0].Name)
	assert.Equal(t, symbolField, view.Children[0].Kind)
}

func hasFoldingRange(ranges []foldingRange, start, end int) bool {
	for _, rng := range ranges {
		if rng.StartLine == start && rng.EndLine == end {
			return true
		}
	}
	return false
}

func TestFoldingRangesForBodiesAndDocs(t *testing.T) {
	text := "export com.x.Book\n\n/**\n * view\n */\nBookView {\n    store {\n        name\n    }\n}\n"
	ts := newTestServer(t, nil)
	_, snap := ts.open(t, testURI, text)
	ranges := buildFoldingRanges(snap)
	if !hasFoldingRange(ranges, 5, 8) {
		t.Fatalf("missing folding range for type body: %+v", ranges)
	}
	if !hasFoldingRange(ranges, 6, 7) {
		t.Fatalf("missing folding range for store body: %+v", ranges)
	}
	if !hasFoldingRange(ranges, 2, 4) {
		t.Fatalf("missing folding range for doc comment: %+v", ranges)
	}
}

func TestWorkspaceSymbolsFuzzyFilter(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "Book.dto")
	b := filepath.Join(dir, "Author.dto")
	require.NoError(t, os.WriteFile(a, []byte("export com.x.Book\n\nBookView {\n    store {\n        name\n    }\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("export com.x.Author\n\nAuthorView { firstName }\n"), 0o644))

	open := map[string]string{b: "export com.x.Author\n\nAuthorInput { lastName }\n"}
	syms, err := workspaceSymbols(context.Background(), []string{a, b}, open)
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"BookView", "store", "name", "AuthorInput", "lastName"}, names)
	assert.Equal(t, "BookView.store", syms[2].ContainerName)

	all := filterSymbols(syms, "")
	assert.Len(t, all, len(syms))

	hits := filterSymbols(syms, "bkv")
	require.NotEmpty(t, hits)
	assert.Equal(t, "BookView", hits[0].Name)
	assert.Empty(t, filterSymbols(syms, "zzz"))
}
