package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/diag"
	"dtolsp/internal/source"
)

func decodeOutput(t *testing.T, buf *bytes.Buffer) DiagnosticsOutput {
	t.Helper()
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	return out
}

func TestJSONBasic(t *testing.T) {
	fs, bag, _ := bookBag(t)
	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename})
	require.NoError(t, err)

	out := decodeOutput(t, &buf)
	require.Equal(t, 1, out.Count)
	d := out.Diagnostics[0]
	assert.Equal(t, "ERROR", d.Severity)
	assert.Equal(t, "DTO3002", d.Code)
	assert.Equal(t, "Book.dto", d.Location.File)
	assert.Equal(t, uint32(4), d.Location.StartLine)
	assert.Equal(t, uint32(5), d.Location.StartCol)
	assert.Equal(t, uint32(8), d.Location.EndCol)
}

func TestJSONWithoutPositions(t *testing.T) {
	fs, bag, _ := bookBag(t)
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename}))
	assert.NotContains(t, buf.String(), "start_line")
	assert.Contains(t, buf.String(), "start_byte")
}

func TestJSONWithNotesAndFixes(t *testing.T) {
	fs, bag, id := bookBag(t)
	d := bag.Items()[0].
		WithNote(source.Span{File: id, Start: 7, End: 17}, "type").
		WithFix("rename", diag.FixEdit{Span: bag.Items()[0].Primary, NewText: "name"})
	bag = diag.NewBag(1)
	bag.Add(d)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{
		PathMode:        PathModeBasename,
		IncludeNotes:    true,
		IncludeFixes:    true,
		IncludePreviews: true,
	}))
	out := decodeOutput(t, &buf)
	got := out.Diagnostics[0]
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "type", got.Notes[0].Message)
	require.Len(t, got.Fixes, 1)
	require.Len(t, got.Fixes[0].Edits, 1)
	edit := got.Fixes[0].Edits[0]
	assert.Equal(t, "nme", edit.OldText)
	assert.Equal(t, []string{"    nme"}, edit.BeforeLines)
	assert.Equal(t, []string{"    name"}, edit.AfterLines)

	buf.Reset()
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename}))
	out = decodeOutput(t, &buf)
	assert.Empty(t, out.Diagnostics[0].Notes)
	assert.Empty(t, out.Diagnostics[0].Fixes)
}

func TestJSONMaxLimit(t *testing.T) {
	fs, bag, id := bookBag(t)
	for range 3 {
		bag.Add(diag.New(diag.SevWarning, diag.DtoDuplicateProp, source.Span{File: id}, "dup"))
	}
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{Max: 2}))
	out := decodeOutput(t, &buf)
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got count=%d len=%d", out.Count, len(out.Diagnostics))
	}
}

func TestSarif(t *testing.T) {
	fs, bag, id := bookBag(t)
	bag.Add(diag.New(diag.SevWarning, diag.DtoDuplicateProp, source.Span{File: id, Start: 0, End: 6}, "dup").
		WithNote(source.Span{File: id, Start: 7, End: 17}, "first here"))

	var buf bytes.Buffer
	require.NoError(t, Sarif(&buf, bag, fs, SarifRunMeta{
		ToolName:       "dtolsp",
		ToolVersion:    "1.0.0",
		InvocationArgs: []string{"check", "."},
		BaseDir:        "/home/user/project",
	}))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "dtolsp", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "DTO3002", run.Tool.Driver.Rules[0].ID)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "warning", run.Results[1].Level)
	assert.Equal(t, "src/main/dto/Book.dto", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, uint32(4), run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)
	require.Len(t, run.Results[1].RelatedLocations, 1)
	assert.False(t, run.Invocations[0].ExecutionSuccessful)
}
