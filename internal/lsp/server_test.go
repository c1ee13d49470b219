package lsp

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/diag"
	"dtolsp/internal/settings"
)

func publishes(t *testing.T, msgs []rpcMessage) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for _, m := range msgs {
		if m.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p publishDiagnosticsParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			t.Fatalf("decode publish: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestInitializeReportsCapabilities(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.call(t, "initialize", 1, initializeParams{
		WorkspaceFolders:      []workspaceFolder{{URI: "file:///tmp/ws", Name: "ws"}},
		InitializationOptions: json.RawMessage(`{"jimmer":{"formatting":{"propsSpaceLine":"always"}}}`),
	})
	res := result[initializeResult](t, ts)

	caps := res.Capabilities
	require.NotNil(t, caps.CompletionProvider)
	assert.Equal(t, []string{"*", "@"}, caps.CompletionProvider.TriggerCharacters)
	require.NotNil(t, caps.SemanticTokensProvider)
	assert.Len(t, caps.SemanticTokensProvider.Legend.TokenTypes, 17)
	assert.Equal(t, "Jimmer DTO", caps.DocumentSymbolProvider.Label)
	assert.Equal(t, []string{ResolveCommand}, caps.ExecuteCommandProvider.Commands)
	assert.True(t, caps.TextDocumentSync.Save.IncludeText)
	assert.Equal(t, "dtolsp", res.ServerInfo.Name)

	assert.Equal(t, []string{filepath.FromSlash("/tmp/ws")}, ts.ws.Folders())
	assert.Equal(t, settings.SpaceAlways, ts.ws.Settings().Formatting.PropsSpaceLine)
}

func TestDiagnosticsPublishedWithVersion(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.open(t, testURI, "export com.x.Book\n\nBookView { missingProp }\n")

	pubs := publishes(t, ts.messages(t))
	require.Len(t, pubs, 1)
	require.NotNil(t, pubs[0].Version)
	assert.Equal(t, 1, *pubs[0].Version)
	require.Len(t, pubs[0].Diagnostics, 1)
	d := pubs[0].Diagnostics[0]
	assert.Equal(t, diag.DtoUnresolvedProp.ID(), d.Code)
	assert.Equal(t, 1, d.Severity)
	assert.Equal(t, diagnosticSource, d.Source)
	assert.Equal(t, position{Line: 2, Character: 11}, d.Range.Start)

	ts.call(t, "textDocument/didClose", 0, didCloseTextDocumentParams{TextDocument: textDocumentIdentifier{URI: testURI}})
	pubs = publishes(t, ts.messages(t))
	require.Len(t, pubs, 1)
	assert.Empty(t, pubs[0].Diagnostics)
}

func TestStaleAnalysisIsNotPublished(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.call(t, "textDocument/didOpen", 0, didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: testURI, Version: 1, Text: "export com.x.Book\n\nBookView { name }\n"},
	})
	d, _ := ts.docs.Get(testURI)
	first := d.Seq()
	ts.call(t, "textDocument/didChange", 0, didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "export com.x.Book\n\nBookView { id }\n"}},
	})
	ts.runDiagnostics(testURI, first)
	assert.Empty(t, publishes(t, ts.messages(t)))

	ts.runDiagnostics(testURI, d.Seq())
	pubs := publishes(t, ts.messages(t))
	require.Len(t, pubs, 1)
	assert.Equal(t, 2, *pubs[0].Version)
}

func TestDidChangeAppliesIncrementalEdits(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.open(t, testURI, "export com.x.Book\n\nBookView {\n    name\n}\n")
	ts.call(t, "textDocument/didChange", 0, didChangeTextDocumentParams{
		TextDocument: versionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{
			Range: &lspRange{Start: position{Line: 3, Character: 4}, End: position{Line: 3, Character: 8}},
			Text:  "price",
		}},
	})
	d, ok := ts.docs.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "export com.x.Book\n\nBookView {\n    price\n}\n", d.RealTime().Text)
	assert.Equal(t, 2, d.RealTime().Version)
	// the last good snapshot survives until the edit is analyzed
	require.NotNil(t, d.RightTime())
	assert.Equal(t, 1, d.RightTime().Version)
}

func TestUnknownRequestAndPanicRecovery(t *testing.T) {
	ws := newFakeWorkspace()
	ws.panicky = true
	ts := newTestServer(t, ws)

	ts.call(t, "textDocument/nope", 1, struct{}{})
	msgs := ts.messages(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeMethodNotFound, msgs[0].Error.Code)

	ts.open(t, testURI, "export com.x.Book\n\nBookView { name }\n")
	ts.messages(t)
	ts.call(t, "textDocument/codeLens", 2, textDocumentParams{TextDocument: textDocumentIdentifier{URI: testURI}})
	msgs = ts.messages(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeInternalError, msgs[0].Error.Code)
}

func TestExitWithoutShutdown(t *testing.T) {
	ts := newTestServer(t, nil)
	err := ts.dispatch(&rpcMessage{Method: "exit"})
	assert.ErrorIs(t, err, ErrExitWithoutShutdown)

	ts.call(t, "shutdown", 1, nil)
	err = ts.dispatch(&rpcMessage{Method: "exit"})
	assert.ErrorIs(t, err, ErrExit)
}

func TestDidChangeConfigurationSavesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	ws := newFakeWorkspace()
	ts := newTestServer(t, ws)
	ts.opts.SettingsPath = path

	ts.call(t, "workspace/didChangeConfiguration", 0, didChangeConfigurationParams{
		Settings: json.RawMessage(`{"jimmer":{"formatting":{"propsSpaceLine":"never"}}}`),
	})
	assert.Equal(t, settings.SpaceNever, ws.Settings().Formatting.PropsSpaceLine)

	saved, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, settings.SpaceNever, saved.Formatting.PropsSpaceLine)
}

func TestResolveCommandReportsProgress(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.open(t, testURI, "export com.x.Book\n\nBookView { name }\n")
	ts.messages(t)

	ts.call(t, "workspace/executeCommand", 1, executeCommandParams{Command: ResolveCommand})
	ts.bg.Wait()

	var methods []string
	var progress []string
	for _, m := range ts.messages(t) {
		methods = append(methods, m.Method)
		if m.Method == "$/progress" {
			var p struct {
				Value struct {
					Kind    string `json:"kind"`
					Title   string `json:"title"`
					Message string `json:"message"`
				} `json:"value"`
			}
			require.NoError(t, json.Unmarshal(m.Params, &p))
			progress = append(progress, p.Value.Kind+":"+p.Value.Title+p.Value.Message)
		}
	}
	assert.Contains(t, methods, "window/workDoneProgress/create")
	assert.Contains(t, methods, "textDocument/publishDiagnostics")
	assert.Equal(t, []string{
		"begin:Resolve Dependencies in progress",
		"end:Resolve Dependencies done",
	}, progress)
	assert.Equal(t, 1, ts.ws.invalidated)
}

func TestResolveCommandTimeout(t *testing.T) {
	ws := newFakeWorkspace()
	ws.block = make(chan struct{})
	t.Cleanup(func() { close(ws.block) })
	ts := newTestServer(t, ws)
	ts.opts.ResolveTimeout = 10 * time.Millisecond

	ts.call(t, "workspace/executeCommand", 1, executeCommandParams{Command: ResolveCommand})
	ts.bg.Wait()

	var shown []showMessageParams
	for _, m := range ts.messages(t) {
		if m.Method == "window/showMessage" {
			var p showMessageParams
			require.NoError(t, json.Unmarshal(m.Params, &p))
			shown = append(shown, p)
		}
	}
	require.Len(t, shown, 1)
	assert.Equal(t, messageError, shown[0].Type)
	assert.Equal(t, "Resolve Dependencies timeout, please resolve dependencies manually", shown[0].Message)
}

func TestUnknownCommandIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.call(t, "workspace/executeCommand", 1, executeCommandParams{Command: "nope"})
	msgs := ts.messages(t)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeInvalidParams, msgs[0].Error.Code)
}
