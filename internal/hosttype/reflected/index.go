// Package reflected resolves host types from compiled class files on a
// classpath of directories and jars.
package reflected

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dtolsp/internal/hosttype"
	"dtolsp/internal/hosttype/classfile"
)

// Index maps qualified class names to their location on the classpath.
// Readers use the last published Generation; Refresh builds the next one
// without blocking them.
type Index struct {
	log *slog.Logger

	mu    sync.Mutex
	roots []string

	gen     atomic.Pointer[Generation]
	seq     atomic.Uint64
	refresh singleflight.Group
}

// Generation is an immutable snapshot of the classpath.
type Generation struct {
	Seq   uint64
	Roots []string

	classes     map[string]location
	names       []string
	annotations []string
	immutables  []string

	parsed sync.Map // qualified name -> *classfile.Class
}

type location struct {
	root  string // directory or jar path
	entry string // slash-separated path inside root
	jar   bool
}

type summary struct {
	name       string
	loc        location
	kind       hosttype.Kind
	annotation bool
}

func NewIndex(roots []string, log *slog.Logger) *Index {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Index{roots: slices.Clone(roots), log: log}
}

// SetRoots replaces the classpath used by the next Refresh.
func (ix *Index) SetRoots(roots []string) {
	ix.mu.Lock()
	ix.roots = slices.Clone(roots)
	ix.mu.Unlock()
}

// Generation returns the last published generation, nil before the first
// Refresh completes.
func (ix *Index) Generation() *Generation {
	return ix.gen.Load()
}

// Refresh scans every root and publishes a new generation. Concurrent calls
// share one scan.
func (ix *Index) Refresh(ctx context.Context) (*Generation, error) {
	v, err, _ := ix.refresh.Do("refresh", func() (any, error) {
		ix.mu.Lock()
		roots := slices.Clone(ix.roots)
		ix.mu.Unlock()

		gen, err := ix.build(ctx, roots)
		if err != nil {
			return nil, err
		}
		ix.gen.Store(gen)
		ix.log.Debug("classpath indexed", "seq", gen.Seq, "roots", len(roots), "classes", len(gen.names))
		return gen, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Generation), nil
}

func (ix *Index) build(ctx context.Context, roots []string) (*Generation, error) {
	parts := make([][]summary, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, root := range roots {
		g.Go(func() error {
			found, err := ix.scanRoot(gctx, root)
			if err != nil {
				return err
			}
			parts[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gen := &Generation{
		Seq:     ix.seq.Add(1),
		Roots:   roots,
		classes: make(map[string]location),
	}
	// Earlier roots shadow later ones, as on a JVM classpath.
	for _, part := range parts {
		for _, s := range part {
			if _, dup := gen.classes[s.name]; dup {
				continue
			}
			gen.classes[s.name] = s.loc
			gen.names = append(gen.names, s.name)
			if s.annotation {
				gen.annotations = append(gen.annotations, s.name)
			}
			if s.kind.IsImmutable() {
				gen.immutables = append(gen.immutables, s.name)
			}
		}
	}
	slices.Sort(gen.names)
	slices.Sort(gen.annotations)
	slices.Sort(gen.immutables)
	return gen, nil
}

func (ix *Index) scanRoot(ctx context.Context, root string) ([]summary, error) {
	info, err := os.Stat(root)
	if err != nil {
		// Missing output dirs are normal before the first build.
		ix.log.Debug("classpath root skipped", "root", root, "err", err)
		return nil, nil
	}
	if !info.IsDir() {
		if strings.HasSuffix(root, ".jar") {
			return ix.scanJar(ctx, root)
		}
		return nil, nil
	}

	var out []summary
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isClassEntry(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			ix.log.Debug("class unreadable", "path", path, "err", err)
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if s, ok := ix.summarize(data, location{root: root, entry: filepath.ToSlash(rel)}); ok {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

func (ix *Index) scanJar(ctx context.Context, path string) ([]summary, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		ix.log.Debug("jar unreadable", "path", path, "err", err)
		return nil, nil
	}
	defer zr.Close()

	var out []summary
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isClassEntry(f.Name) || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			ix.log.Debug("jar entry unreadable", "jar", path, "entry", f.Name, "err", err)
			continue
		}
		if s, ok := ix.summarize(data, location{root: path, entry: f.Name, jar: true}); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (ix *Index) summarize(data []byte, loc location) (summary, bool) {
	cls, err := classfile.Parse(data)
	if err != nil {
		ix.log.Debug("class skipped", "root", loc.root, "entry", loc.entry, "err", err)
		return summary{}, false
	}
	if isAnonymous(cls.Name) {
		return summary{}, false
	}
	return summary{
		name:       javaName(cls.Name),
		loc:        loc,
		kind:       kindOf(cls),
		annotation: cls.IsAnnotation(),
	}, true
}

// Class loads and parses the named class, memoized per generation.
func (g *Generation) Class(name string) (*classfile.Class, hosttype.Origin, error) {
	loc, ok := g.classes[name]
	if !ok {
		return nil, hosttype.Origin{}, hosttype.ErrNotFound
	}
	origin := hosttype.Origin{Backend: backendName, Path: loc.root, Entry: loc.entry}
	if v, ok := g.parsed.Load(name); ok {
		return v.(*classfile.Class), origin, nil
	}
	data, err := loc.read()
	if err != nil {
		return nil, origin, err
	}
	cls, err := classfile.Parse(data)
	if err != nil {
		return nil, origin, fmt.Errorf("%s: %w", name, err)
	}
	v, _ := g.parsed.LoadOrStore(name, cls)
	return v.(*classfile.Class), origin, nil
}

func (g *Generation) Has(name string) bool {
	_, ok := g.classes[name]
	return ok
}

func (g *Generation) Names() []string           { return g.names }
func (g *Generation) AnnotationNames() []string { return g.annotations }
func (g *Generation) ImmutableNames() []string  { return g.immutables }

func (l location) read() ([]byte, error) {
	if !l.jar {
		return os.ReadFile(filepath.Join(l.root, filepath.FromSlash(l.entry)))
	}
	zr, err := zip.OpenReader(l.root)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	f, err := zr.Open(l.entry)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isClassEntry(name string) bool {
	if !strings.HasSuffix(name, ".class") {
		return false
	}
	base := name[strings.LastIndexByte(name, '/')+1:]
	return base != "module-info.class" && base != "package-info.class"
}

// isAnonymous reports names like a.Outer$1 that no source can refer to.
func isAnonymous(binary string) bool {
	for _, part := range strings.Split(binary, "$")[1:] {
		if part == "" || (part[0] >= '0' && part[0] <= '9') {
			return true
		}
	}
	return false
}

// javaName turns a binary name into the source-level qualified name.
func javaName(binary string) string {
	return strings.ReplaceAll(binary, "$", ".")
}
