package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dtolsp/internal/compiler"
	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/settings"
	"dtolsp/internal/testkit"
	"dtolsp/internal/workspace"
)

const testURI = "file:///p/src/main/dto/com/x/Book.dto"

// fakeWorkspace serves the library model for every file.
type fakeWorkspace struct {
	lib testkit.Model

	mu          sync.Mutex
	folders     []string
	cfg         settings.Settings
	project     string
	files       []string
	origins     map[string]hosttype.Origin
	invalidated int
	block       chan struct{}
	panicky     bool
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{lib: testkit.Library(), cfg: settings.Default(), origins: make(map[string]hosttype.Origin)}
}

func (w *fakeWorkspace) ResolveBaseType(_ context.Context, _ string, hint compiler.BaseTypeQuery) document.Resolution {
	hctx := w.lib.Context()
	hint.Dir = "com/x"
	base, name := compiler.ResolveBaseType(hctx, hint)
	return document.Resolution{Context: hctx, Base: base, Name: name}
}

func (w *fakeWorkspace) Folders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.folders...)
}

func (w *fakeWorkspace) SetFolders(folders []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.folders = folders
}

func (w *fakeWorkspace) Settings() settings.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

func (w *fakeWorkspace) SetSettings(s settings.Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg = s
}

func (w *fakeWorkspace) NamesFor(context.Context, string) workspace.Names {
	return workspace.Names{
		Classes:     w.lib.ClassNames(),
		Annotations: w.lib.AnnotationNames(),
		Immutables:  w.lib.ImmutableNames(),
	}
}

func (w *fakeWorkspace) Origin(_ context.Context, _, name string) (hosttype.Origin, bool) {
	o, ok := w.origins[name]
	return o, ok
}

func (w *fakeWorkspace) ProjectDir(string) string {
	if w.panicky {
		panic("project lookup exploded")
	}
	return w.project
}

func (w *fakeWorkspace) DtoFiles() []string { return w.files }

func (w *fakeWorkspace) Invalidate() error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invalidated++
	return nil
}

type testServer struct {
	*Server
	out *bytes.Buffer
	ws  *fakeWorkspace
}

func newTestServer(t *testing.T, ws *fakeWorkspace) *testServer {
	t.Helper()
	if ws == nil {
		ws = newFakeWorkspace()
	}
	out := &bytes.Buffer{}
	s := NewServer(strings.NewReader(""), out, ws, ServerOptions{Debounce: time.Hour, ResolveTimeout: time.Minute})
	t.Cleanup(s.stopAll)
	return &testServer{Server: s, out: out, ws: ws}
}

// call runs one request or notification through the dispatcher.
func (ts *testServer) call(t *testing.T, method string, id int, params any) {
	t.Helper()
	payload, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	msg := &rpcMessage{JSONRPC: "2.0", Method: method, Params: payload}
	if id > 0 {
		msg.ID = json.RawMessage(strconv.Itoa(id))
	}
	if err := ts.dispatch(msg); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

// messages drains everything the server wrote so far.
func (ts *testServer) messages(t *testing.T) []rpcMessage {
	t.Helper()
	ts.sendMu.Lock()
	data := append([]byte(nil), ts.out.Bytes()...)
	ts.out.Reset()
	ts.sendMu.Unlock()
	r := bufio.NewReader(bytes.NewReader(data))
	var out []rpcMessage
	for {
		payload, err := readMessage(r)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		out = append(out, msg)
	}
}

// result decodes the reply to the last request.
func result[T any](t *testing.T, ts *testServer) T {
	t.Helper()
	var v T
	msgs := ts.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if len(msgs[i].ID) == 0 || msgs[i].Method != "" {
			continue
		}
		if msgs[i].Error != nil {
			t.Fatalf("request failed: %+v", *msgs[i].Error)
		}
		if err := json.Unmarshal(msgs[i].Result, &v); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		return v
	}
	t.Fatalf("no response among %d messages", len(msgs))
	return v
}

// open opens text and runs its analysis synchronously.
func (ts *testServer) open(t *testing.T, uri, text string) (*document.Document, *document.Snapshot) {
	t.Helper()
	ts.call(t, "textDocument/didOpen", 0, didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: "jimmer-dto", Version: 1, Text: text},
	})
	d, ok := ts.docs.Get(uri)
	if !ok {
		t.Fatalf("document %s not open", uri)
	}
	ts.runDiagnostics(uri, d.Seq())
	return d, d.RealTime()
}

// cursor removes the "|" marker from text and returns its byte offset.
func cursor(t *testing.T, text string) (string, uint32) {
	t.Helper()
	i := strings.Index(text, "|")
	if i < 0 {
		t.Fatal("missing cursor marker")
	}
	return text[:i] + text[i+1:], uint32(i)
}

// at is the offset of the n-th (0-based) occurrence of needle.
func at(t *testing.T, text, needle string, n int) uint32 {
	t.Helper()
	off := 0
	for i := 0; ; i++ {
		j := strings.Index(text[off:], needle)
		if j < 0 {
			t.Fatalf("occurrence %d of %q not found", n, needle)
		}
		if i == n {
			return uint32(off + j)
		}
		off += j + len(needle)
	}
}
