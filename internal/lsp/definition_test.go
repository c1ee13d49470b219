package lsp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/hosttype"
	"dtolsp/internal/workspace"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// generated\n"), 0o644))
	return path
}

const definitionDTO = `export com.x.Book

import com.x.{Status, Author}

BookView {
    name
}
`

func TestDefinitionNavigatesToSources(t *testing.T) {
	project := t.TempDir()
	book := touch(t, filepath.Join(project, "src", "main", "java", "com", "x", "Book.java"))
	generated := touch(t, filepath.Join(project, "build", "generated", "ksp", "main", "kotlin", "com", "x", "dto", "BookView.kt"))

	ws := newFakeWorkspace()
	ws.project = project
	ws.origins["com.x.Author"] = hosttype.Origin{Backend: "source", Path: filepath.Join(project, "lib", "Author.kt"), Line: 3, Col: 4}
	ts := newTestServer(t, ws)
	uri := workspace.URIFromPath(filepath.Join(project, "src", "main", "dto", "com", "x", "Book.dto"))
	d, snap := ts.open(t, uri, definitionDTO)
	ctx := context.Background()

	locs := ts.definitions(ctx, snap, baseOf(d), at(t, definitionDTO, "Book", 0))
	require.Len(t, locs, 1)
	assert.Equal(t, workspace.URIFromPath(book), locs[0].URI)
	assert.Equal(t, lspRange{}, locs[0].Range)

	locs = ts.definitions(ctx, snap, baseOf(d), at(t, definitionDTO, "BookView", 0))
	require.Len(t, locs, 1)
	assert.Equal(t, workspace.URIFromPath(generated), locs[0].URI)

	locs = ts.definitions(ctx, snap, baseOf(d), at(t, definitionDTO, "Author", 0))
	require.Len(t, locs, 1)
	assert.Equal(t, position{Line: 3, Character: 4}, locs[0].Range.Start)

	assert.Empty(t, ts.definitions(ctx, snap, baseOf(d), at(t, definitionDTO, "Status", 0)))
}

func TestCodeLensMarksGeneratedTypes(t *testing.T) {
	project := t.TempDir()
	touch(t, filepath.Join(project, "target", "generated-sources", "annotations", "com", "x", "dto", "BookView.java"))

	ts := newTestServer(t, nil)
	d, snap := ts.open(t, testURI, definitionDTO+"\nOther { id }\n")
	lenses := buildCodeLenses(snap, baseOf(d), project)
	require.Len(t, lenses, 1)
	assert.Equal(t, "Generated", lenses[0].Command.Title)
	assert.Equal(t, 4, lenses[0].Range.Start.Line)

	assert.Empty(t, buildCodeLenses(snap, baseOf(d), ""))
}

func TestOriginLocationSkipsArchives(t *testing.T) {
	assert.Nil(t, originLocation(hosttype.Origin{Path: "/x/lib.jar", Entry: "com/x/Book.class"}))
	assert.Nil(t, originLocation(hosttype.Origin{}))
	locs := originLocation(hosttype.Origin{Path: "/x/Book.java", Line: 1, Col: 2})
	require.Len(t, locs, 1)
	assert.Equal(t, position{Line: 1, Character: 2}, locs[0].Range.End)
}
