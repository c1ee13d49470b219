// Package document keeps the two snapshots of every open DTO file: the latest
// one, replaced on every edit even when the text no longer parses, and the
// last one that compiled cleanly. Snapshots are immutable and swapped
// atomically; readers never lock.
package document

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"sync"
	"sync/atomic"

	"dtolsp/internal/compiler"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/observ"
	"dtolsp/internal/parser"
)

var (
	// ErrNotOpen is returned for a URI without an open document.
	ErrNotOpen = errors.New("document not open")
	// ErrStale is returned when a newer edit superseded the analyzed version.
	ErrStale = errors.New("stale analysis")
)

// Resolution is what a Resolver found for a document's base type.
type Resolution struct {
	Context *hosttype.Context
	Base    hosttype.BaseType
	// Name is the qualified name that matched, or the name asked for.
	Name string
}

// Resolver finds the base type a document exports. The hint carries the
// export name and file name; the resolver fills in project-relative paths.
type Resolver interface {
	ResolveBaseType(ctx context.Context, uri string, hint compiler.BaseTypeQuery) Resolution
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, uri string, hint compiler.BaseTypeQuery) Resolution

func (f ResolverFunc) ResolveBaseType(ctx context.Context, uri string, hint compiler.BaseTypeQuery) Resolution {
	return f(ctx, uri, hint)
}

// Document is one open file.
type Document struct {
	uri       string
	seq       atomic.Uint64
	realTime  atomic.Pointer[Snapshot]
	rightTime atomic.Pointer[Snapshot]
	closed    atomic.Bool
	// commitMu orders snapshot installs against the seq check.
	commitMu sync.Mutex
}

func (d *Document) URI() string { return d.uri }

// Seq is the number of the latest edit.
func (d *Document) Seq() uint64 { return d.seq.Load() }

// RealTime is the snapshot of the current text.
func (d *Document) RealTime() *Snapshot { return d.realTime.Load() }

// RightTime is the last snapshot that compiled cleanly, or nil.
func (d *Document) RightTime() *Snapshot { return d.rightTime.Load() }

type Options struct {
	MaxErrors uint
	Log       *slog.Logger
}

// Manager owns the open documents.
type Manager struct {
	resolver Resolver
	opts     Options
	log      *slog.Logger

	mu   sync.RWMutex
	docs map[string]*Document
}

func NewManager(resolver Resolver, opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{resolver: resolver, opts: opts, log: log, docs: make(map[string]*Document)}
}

// Open registers uri and parses text. Reopening an open document replaces it.
func (m *Manager) Open(uri string, version int, text string) uint64 {
	d := &Document{uri: uri}
	m.mu.Lock()
	if old, ok := m.docs[uri]; ok {
		old.closed.Store(true)
	}
	m.docs[uri] = d
	m.mu.Unlock()
	return m.edit(d, version, text)
}

// Change replaces the text of an open document. It returns the new edit seq.
func (m *Manager) Change(uri string, version int, text string) (uint64, error) {
	d, ok := m.Get(uri)
	if !ok {
		return 0, ErrNotOpen
	}
	return m.edit(d, version, text), nil
}

// Save re-parses the document, with new text when the client sent it.
func (m *Manager) Save(uri string, text *string) (uint64, error) {
	d, ok := m.Get(uri)
	if !ok {
		return 0, ErrNotOpen
	}
	cur := d.RealTime()
	body := cur.Text
	if text != nil {
		body = *text
	}
	return m.edit(d, cur.Version, body), nil
}

// Close drops both snapshots. It reports whether uri was open.
func (m *Manager) Close(uri string) bool {
	m.mu.Lock()
	d, ok := m.docs[uri]
	delete(m.docs, uri)
	m.mu.Unlock()
	if !ok {
		return false
	}
	d.commitMu.Lock()
	d.closed.Store(true)
	d.realTime.Store(nil)
	d.rightTime.Store(nil)
	d.commitMu.Unlock()
	return true
}

func (m *Manager) Get(uri string) (*Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[uri]
	return d, ok
}

// URIs lists the open documents in sorted order.
func (m *Manager) URIs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.docs))
	for uri := range m.docs {
		out = append(out, uri)
	}
	m.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (m *Manager) edit(d *Document, version int, text string) uint64 {
	timer := observ.NewTimer()
	idx := timer.Begin("parse")
	res := parser.ParseText(text, parser.Options{Path: d.uri, MaxErrors: m.opts.MaxErrors})
	timer.End(idx, "")
	observ.ObservePhases(timer)

	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	seq := d.seq.Add(1)
	d.realTime.Store(&Snapshot{
		URI:     d.uri,
		Version: version,
		Seq:     seq,
		Text:    text,
		File:    res.File,
		Tokens:  res.Tokens,
		AST:     res.AST,
		Syntax:  res.Bag,
	})
	return seq
}

// Analyze resolves and compiles the snapshot of edit seq. The result is
// installed as the latest snapshot, and also as the last good one when it
// compiled cleanly, unless a newer edit arrived meanwhile; then ErrStale is
// returned and nothing changes.
func (m *Manager) Analyze(ctx context.Context, uri string, seq uint64) (*Snapshot, error) {
	d, ok := m.Get(uri)
	if !ok {
		return nil, ErrNotOpen
	}
	snap := d.RealTime()
	if snap == nil || snap.Seq != seq {
		observ.StaleCommits.Inc()
		return nil, ErrStale
	}

	timer := observ.NewTimer()
	idx := timer.Begin("resolve")
	hint := compiler.BaseTypeQuery{FileName: fileName(uri)}
	if snap.AST != nil && snap.AST.Export != nil {
		hint.Export = snap.AST.Export.Type.String()
	}
	var res Resolution
	if m.resolver != nil {
		res = m.resolver.ResolveBaseType(ctx, uri, hint)
	}
	if res.Name == "" {
		res.Name = hint.SourceTypeName()
	}
	timer.End(idx, res.Name)

	idx = timer.Begin("compile")
	model, errs := compiler.Compile(ctx, snap.AST, res.Base, compiler.Options{
		BaseName: res.Name,
		Context:  res.Context,
		Log:      m.log,
	})
	timer.End(idx, "")
	if err := ctx.Err(); err != nil || model == nil {
		if err == nil {
			err = context.Canceled
		}
		return nil, err
	}
	observ.ObservePhases(timer)

	next := snap.analyzed(res, model, errs)
	if err := m.commit(d, next); err != nil {
		return nil, err
	}
	m.log.Debug("document analyzed", "uri", uri, "seq", seq, "base", res.Name, "errors", len(errs), "promoted", next.Compiled())
	return next, nil
}

func (m *Manager) commit(d *Document, next *Snapshot) error {
	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	if d.closed.Load() || d.seq.Load() != next.Seq {
		observ.StaleCommits.Inc()
		return ErrStale
	}
	d.realTime.Store(next)
	if next.Compiled() {
		d.rightTime.Store(next)
		observ.SnapshotPromotions.Inc()
	}
	return nil
}

// fileName is the last path element of a file URI, or of uri itself when it
// does not parse.
func fileName(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(uri)
}
