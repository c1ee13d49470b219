package fix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/diag"
	"dtolsp/internal/source"
)

const bookDTO = "export com.x.Book\n\nBookView {\n    nmae\n    edtion\n}\n"

func span(t *testing.T, id source.FileID, text, word string) source.Span {
	t.Helper()
	off := -1
	for i := 0; i+len(word) <= len(text); i++ {
		if text[i:i+len(word)] == word {
			off = i
			break
		}
	}
	if off < 0 {
		t.Fatalf("%q not found", word)
	}
	return source.Span{File: id, Start: uint32(off), End: uint32(off + len(word))}
}

func setup(t *testing.T) (string, *source.FileSet, []diag.Diagnostic) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Book.dto")
	if err := os.WriteFile(path, []byte(bookDTO), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	id := fs.Add(path, []byte(bookDTO), 0)
	name := span(t, id, bookDTO, "nmae")
	edition := span(t, id, bookDTO, "edtion")
	diags := []diag.Diagnostic{
		diag.NewError(diag.DtoUnresolvedProp, edition, "no edtion").
			WithFix(`Replace with "edition"`, diag.FixEdit{Span: edition, NewText: "edition"}),
		diag.NewError(diag.DtoUnresolvedProp, name, "no nmae").
			WithFix(`Replace with "name"`, diag.FixEdit{Span: name, NewText: "name"}),
	}
	return path, fs, diags
}

func TestApplyAllWritesFile(t *testing.T) {
	path, fs, diags := setup(t)
	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)
	require.Len(t, res.Applied, 2)
	assert.Equal(t, `Replace with "name"`, res.Applied[0].Title, "applied in source order")
	require.Len(t, res.FileChanges, 1)
	assert.Equal(t, 2, res.FileChanges[0].EditCount)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export com.x.Book\n\nBookView {\n    name\n    edition\n}\n", string(got))
}

func TestApplyOnceDryRun(t *testing.T) {
	path, fs, diags := setup(t)
	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeOnce, DryRun: true})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "DTO3002:Book.dto:4:5#0", res.Applied[0].ID)
	assert.Contains(t, string(res.FileChanges[0].Content), "    name\n    edtion\n")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	if string(got) != bookDTO {
		t.Fatalf("dry run modified the file:\n%s", got)
	}
}

func TestApplyByID(t *testing.T) {
	_, fs, diags := setup(t)
	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeID, TargetID: "DTO3002:Book.dto:5:5#0", DryRun: true})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Contains(t, string(res.FileChanges[0].Content), "    nmae\n    edition\n")

	_, err = Apply(fs, diags, ApplyOptions{Mode: ApplyModeID, TargetID: "nope"})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
}

func TestConflictingFixesAreSkipped(t *testing.T) {
	_, fs, diags := setup(t)
	sp := diags[1].Primary
	diags = append(diags, diag.NewError(diag.DtoUnresolvedProp, sp, "again").
		WithFix("Delete", diag.FixEdit{Span: sp}))
	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "conflicts with previously applied edits")
}

func TestVirtualFilesAreNotFixed(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("buffer.dto", []byte(bookDTO))
	sp := span(t, id, bookDTO, "nmae")
	d := diag.NewError(diag.DtoUnresolvedProp, sp, "x").WithFix("fix", diag.FixEdit{Span: sp, NewText: "name"})
	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "target file is virtual", res.Skipped[0].Reason)
}

func TestNoFixes(t *testing.T) {
	fs := source.NewFileSet()
	_, err := Apply(fs, []diag.Diagnostic{{Message: "plain"}}, ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoFixes)
}

func TestSpansConflict(t *testing.T) {
	ins := func(at uint32) diag.FixEdit { return diag.FixEdit{Span: source.Span{Start: at, End: at}} }
	rep := func(s, e uint32) diag.FixEdit { return diag.FixEdit{Span: source.Span{Start: s, End: e}} }
	assert.False(t, spansConflict(ins(3), ins(3)))
	assert.True(t, spansConflict(ins(3), rep(2, 5)))
	assert.False(t, spansConflict(ins(5), rep(2, 5)))
	assert.True(t, spansConflict(rep(0, 4), rep(3, 6)))
	assert.False(t, spansConflict(rep(0, 3), rep(3, 6)))
}
