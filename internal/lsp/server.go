package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/observ"
	"dtolsp/internal/settings"
	"dtolsp/internal/workspace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ResolveCommand re-indexes the workspace and re-analyzes open documents.
const ResolveCommand = "jimmer.dto.resolve"

// Workspace is what the server needs from the project model.
// *workspace.Workspace implements it.
type Workspace interface {
	document.Resolver
	Folders() []string
	SetFolders(folders []string)
	Settings() settings.Settings
	SetSettings(s settings.Settings)
	NamesFor(ctx context.Context, file string) workspace.Names
	Origin(ctx context.Context, file, name string) (hosttype.Origin, bool)
	ProjectDir(file string) string
	DtoFiles() []string
	Invalidate() error
}

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce       time.Duration
	MaxDiagnostics int
	MaxErrors      uint
	// ResolveTimeout bounds the resolve command.
	ResolveTimeout time.Duration
	// SettingsPath receives settings changed by the client; empty disables saving.
	SettingsPath string
	Version      string
	Log          *slog.Logger
}

// Server handles stdio JSON-RPC for the DTO language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	ws   Workspace
	docs *document.Manager
	opts ServerOptions
	log  *slog.Logger

	mu                sync.Mutex
	timers            map[string]*time.Timer
	cancels           map[string]context.CancelFunc
	published         map[string]struct{}
	shutdownRequested bool
	baseCtx           context.Context

	nextID atomic.Int64
	bg     sync.WaitGroup
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, ws Workspace, opts ServerOptions) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 10 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		in:        bufio.NewReader(in),
		out:       bufio.NewWriter(out),
		ws:        ws,
		docs:      document.NewManager(ws, document.Options{MaxErrors: opts.MaxErrors, Log: log}),
		opts:      opts,
		log:       log,
		timers:    make(map[string]*time.Timer),
		cancels:   make(map[string]context.CancelFunc),
		published: make(map[string]struct{}),
		baseCtx:   context.Background(),
	}
}

// Run serves LSP requests until exit or end of input.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer s.stopAll()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn("failed to parse message", "error", err)
			if err := s.sendError(nil, codeParseError, "parse error"); err != nil {
				return err
			}
			continue
		}
		if msg.Method == "" {
			// a response to one of our requests
			continue
		}
		if err := s.dispatch(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(msg *rpcMessage) (err error) {
	start := time.Now()
	defer func() {
		observ.RequestDuration.WithLabelValues(msg.Method).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.log.Error("handler panic", "method", msg.Method, "panic", r, "stack", string(debug.Stack()))
			if len(msg.ID) > 0 {
				err = s.sendError(msg.ID, codeInternalError, fmt.Sprint(r))
			}
		}
	}()
	return s.handleMessage(msg)
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWorkspaceFolders":
		return s.handleDidChangeWorkspaceFolders(msg)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/codeLens":
		return s.handleCodeLens(msg)
	case "textDocument/foldingRange":
		return s.handleFoldingRange(msg)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(msg)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokens(msg)
	case "textDocument/formatting":
		return s.handleFormatting(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

// decode unmarshals the params of msg. A failed request is answered with an
// error here; ok is false either way.
func decode[T any](s *Server, msg *rpcMessage) (params T, ok bool, err error) {
	if len(msg.Params) > 0 {
		if uerr := json.Unmarshal(msg.Params, &params); uerr != nil {
			s.log.Warn("invalid params", "method", msg.Method, "error", uerr)
			if len(msg.ID) > 0 {
				return params, false, s.sendError(msg.ID, codeInvalidParams, "invalid params")
			}
			return params, false, nil
		}
	}
	return params, true, nil
}

func capabilities() serverCapabilities {
	return serverCapabilities{
		TextDocumentSync: textDocumentSyncOptions{
			OpenClose: true,
			Change:    2,
			Save:      saveOptions{IncludeText: true},
		},
		HoverProvider:      true,
		DefinitionProvider: true,
		CompletionProvider: &completionOptions{
			TriggerCharacters: []string{"*", "@"},
			CompletionItem:    &completionItemOptions{LabelDetailsSupport: true},
		},
		FoldingRangeProvider:       true,
		DocumentSymbolProvider:     &documentSymbolOptions{Label: "Jimmer DTO"},
		DocumentFormattingProvider: true,
		SemanticTokensProvider: &semanticTokensOptions{
			Legend: semanticTokensLegend{TokenTypes: tokenTypes, TokenModifiers: []string{}},
			Full:   true,
		},
		CodeLensProvider:        &codeLensOptions{},
		WorkspaceSymbolProvider: true,
		ExecuteCommandProvider:  &executeCommandOptions{Commands: []string{ResolveCommand}},
		Workspace: &workspaceCapabilities{
			WorkspaceFolders: workspaceFoldersCapabilities{Supported: true, ChangeNotifications: true},
		},
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	params, ok, err := decode[initializeParams](s, msg)
	if !ok {
		return err
	}
	var folders []string
	for _, f := range params.WorkspaceFolders {
		if p := workspace.PathFromURI(f.URI); p != "" {
			folders = append(folders, p)
		}
	}
	if len(folders) == 0 {
		root := workspace.PathFromURI(params.RootURI)
		if root == "" && params.RootPath != "" {
			root = workspace.PathFromURI(params.RootPath)
		}
		if root != "" {
			folders = append(folders, root)
		}
	}
	s.ws.SetFolders(folders)
	if merged, changed := s.ws.Settings().Merge(params.InitializationOptions); changed {
		s.ws.SetSettings(merged)
	}
	s.log.Info("initialize", "folders", folders)

	return s.sendResponse(msg.ID, initializeResult{
		Capabilities: capabilities(),
		ServerInfo:   &serverInfo{Name: "dtolsp", Version: s.opts.Version},
	})
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopAll()
	return s.sendResponse(msg.ID, nil)
}

// stopAll cancels pending and running analyses.
func (s *Server) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, t := range s.timers {
		t.Stop()
		delete(s.timers, uri)
	}
	for uri, cancel := range s.cancels {
		cancel()
		delete(s.cancels, uri)
	}
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	params, ok, err := decode[didChangeConfigurationParams](s, msg)
	if !ok {
		return err
	}
	prev := s.ws.Settings()
	next, changed := prev.Merge(params.Settings)
	if !changed {
		return nil
	}
	s.ws.SetSettings(next)
	if s.opts.SettingsPath != "" {
		if err := settings.Save(s.opts.SettingsPath, next); err != nil {
			s.log.Warn("failed to save settings", "path", s.opts.SettingsPath, "error", err)
		}
	}
	if next.Classpath != prev.Classpath {
		s.reanalyzeAll()
	}
	return nil
}

func (s *Server) handleDidChangeWorkspaceFolders(msg *rpcMessage) error {
	params, ok, err := decode[didChangeWorkspaceFoldersParams](s, msg)
	if !ok {
		return err
	}
	folders := s.ws.Folders()
	for _, f := range params.Event.Removed {
		p := workspace.PathFromURI(f.URI)
		folders = slices.DeleteFunc(folders, func(have string) bool { return have == p })
	}
	for _, f := range params.Event.Added {
		if p := workspace.PathFromURI(f.URI); p != "" && !slices.Contains(folders, p) {
			folders = append(folders, p)
		}
	}
	s.ws.SetFolders(folders)
	s.reanalyzeAll()
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	params, ok, err := decode[didOpenTextDocumentParams](s, msg)
	if !ok || params.TextDocument.URI == "" {
		return err
	}
	doc := params.TextDocument
	seq := s.docs.Open(doc.URI, doc.Version, doc.Text)
	s.scheduleDiagnostics(doc.URI, seq)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	params, ok, err := decode[didChangeTextDocumentParams](s, msg)
	if !ok {
		return err
	}
	uri := params.TextDocument.URI
	d, open := s.docs.Get(uri)
	if !open {
		s.log.Debug("change for unopened document", "uri", uri)
		return nil
	}
	text := applyChanges(d.RealTime().Text, params.ContentChanges)
	seq, err := s.docs.Change(uri, params.TextDocument.Version, text)
	if err != nil {
		s.log.Debug("change dropped", "uri", uri, "error", err)
		return nil
	}
	s.scheduleDiagnostics(uri, seq)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	params, ok, err := decode[didSaveTextDocumentParams](s, msg)
	if !ok {
		return err
	}
	uri := params.TextDocument.URI
	seq, err := s.docs.Save(uri, params.Text)
	if err != nil {
		s.log.Debug("save dropped", "uri", uri, "error", err)
		return nil
	}
	s.scheduleDiagnostics(uri, seq)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	params, ok, err := decode[didCloseTextDocumentParams](s, msg)
	if !ok {
		return err
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	if t := s.timers[uri]; t != nil {
		t.Stop()
		delete(s.timers, uri)
	}
	if cancel := s.cancels[uri]; cancel != nil {
		cancel()
		delete(s.cancels, uri)
	}
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	s.docs.Close(uri)
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// snapshotFor returns the open document of uri with its current snapshot.
func (s *Server) snapshotFor(uri string) (*document.Document, *document.Snapshot, bool) {
	d, ok := s.docs.Get(uri)
	if !ok {
		return nil, nil, false
	}
	snap := d.RealTime()
	if snap == nil || snap.File == nil {
		return nil, nil, false
	}
	return d, snap, true
}

// baseOf is the base type of the latest analysis, or of the last good one
// while the current text is unanalyzed or unresolved.
func baseOf(d *document.Document) hosttype.BaseType {
	if snap := d.RealTime(); snap != nil && snap.Base != nil {
		return snap.Base
	}
	if good := d.RightTime(); good != nil {
		return good.Base
	}
	return nil
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	var rawID any = id
	if len(id) == 0 {
		rawID = nil
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      rawID,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) notify(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// request sends a server-to-client request. Replies are not awaited.
func (s *Server) request(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      s.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: list,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
