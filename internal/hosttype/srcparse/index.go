package srcparse

import (
	"archive/zip"
	"context"
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
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dtolsp/internal/hosttype"
)

// Index holds the declarations of every Java and Kotlin file under its roots.
// Roots are source directories or jars that carry sources.
type Index struct {
	log   *slog.Logger
	cache *Cache

	mu    sync.Mutex
	roots []string

	gen     atomic.Pointer[Generation]
	seq     atomic.Uint64
	refresh singleflight.Group
}

// Generation is an immutable snapshot of the source roots.
type Generation struct {
	Seq   uint64
	Roots []string

	files       map[string]fileEntry
	types       map[string]typeLoc
	names       []string
	annotations []string
	immutables  []string
}

type fileEntry struct {
	decls   *FileDecls
	modTime time.Time
	size    int64
}

type typeLoc struct {
	file  *FileDecls
	index int
}

// NewIndex creates an index. cache may be nil.
func NewIndex(roots []string, cache *Cache, log *slog.Logger) *Index {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Index{roots: slices.Clone(roots), cache: cache, log: log}
}

func (ix *Index) SetRoots(roots []string) {
	ix.mu.Lock()
	ix.roots = slices.Clone(roots)
	ix.mu.Unlock()
}

func (ix *Index) Generation() *Generation {
	return ix.gen.Load()
}

// Refresh rescans the roots and publishes a new generation. Files whose size
// and modification time did not change since the previous generation are not
// re-parsed. Concurrent calls share one scan.
func (ix *Index) Refresh(ctx context.Context) (*Generation, error) {
	v, err, _ := ix.refresh.Do("refresh", func() (any, error) {
		ix.mu.Lock()
		roots := slices.Clone(ix.roots)
		ix.mu.Unlock()

		gen, err := ix.build(ctx, roots, ix.gen.Load())
		if err != nil {
			return nil, err
		}
		ix.gen.Store(gen)
		ix.log.Debug("sources indexed", "seq", gen.Seq, "files", len(gen.files), "types", len(gen.names))
		return gen, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Generation), nil
}

type sourceFile struct {
	path    string
	modTime time.Time
	size    int64
	read    func() ([]byte, error)
}

func (ix *Index) build(ctx context.Context, roots []string, prev *Generation) (*Generation, error) {
	var files []sourceFile
	for _, root := range roots {
		found, err := ix.list(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	entries := make([]fileEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sf := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = ix.load(gctx, sf, prev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gen := &Generation{
		Seq:   ix.seq.Add(1),
		Roots: roots,
		files: make(map[string]fileEntry, len(files)),
		types: make(map[string]typeLoc),
	}
	for _, e := range entries {
		if e.decls == nil {
			continue
		}
		gen.files[e.decls.Path] = e
		for i := range e.decls.Types {
			td := &e.decls.Types[i]
			name := e.decls.QualifiedName(td)
			if _, dup := gen.types[name]; dup {
				continue
			}
			gen.types[name] = typeLoc{file: e.decls, index: i}
			gen.names = append(gen.names, name)
			if td.Annotation {
				gen.annotations = append(gen.annotations, name)
			}
			if kindOf(td).IsImmutable() {
				gen.immutables = append(gen.immutables, name)
			}
		}
	}
	slices.Sort(gen.names)
	slices.Sort(gen.annotations)
	slices.Sort(gen.immutables)
	return gen, nil
}

// load returns the declarations of one file, reusing the previous generation
// or the disk cache when possible. Unreadable or unparsable files yield an
// empty entry.
func (ix *Index) load(ctx context.Context, sf sourceFile, prev *Generation) fileEntry {
	if prev != nil {
		if old, ok := prev.files[sf.path]; ok && old.size == sf.size && old.modTime.Equal(sf.modTime) {
			return old
		}
	}
	entry := fileEntry{modTime: sf.modTime, size: sf.size}
	content, err := sf.read()
	if err != nil {
		ix.log.Debug("source unreadable", "path", sf.path, "err", err)
		return entry
	}
	key := DigestOf(sf.path, content)
	if decls, ok, err := ix.cache.Get(key); err == nil && ok {
		entry.decls = decls
		return entry
	}
	decls, err := Extract(ctx, sf.path, content)
	if err != nil {
		ix.log.Debug("source skipped", "path", sf.path, "err", err)
		return entry
	}
	if err := ix.cache.Put(key, decls); err != nil {
		ix.log.Debug("source cache write failed", "path", sf.path, "err", err)
	}
	entry.decls = decls
	return entry
}

func (ix *Index) list(ctx context.Context, root string) ([]sourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		ix.log.Debug("source root skipped", "root", root, "err", err)
		return nil, nil
	}
	if !info.IsDir() {
		if strings.HasSuffix(root, ".jar") {
			return ix.listJar(root, info)
		}
		if LangOf(root) != LangUnknown {
			return []sourceFile{diskFile(root, info)}, nil
		}
		return nil, nil
	}

	var out []sourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if LangOf(path) == LangUnknown {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, diskFile(path, fi))
		return nil
	})
	return out, err
}

func diskFile(path string, fi fs.FileInfo) sourceFile {
	return sourceFile{
		path:    path,
		modTime: fi.ModTime(),
		size:    fi.Size(),
		read:    func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// listJar lists source entries of a jar. Entry paths are "<jar>!/<entry>".
func (ix *Index) listJar(path string, info fs.FileInfo) ([]sourceFile, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		ix.log.Debug("jar unreadable", "path", path, "err", err)
		return nil, nil
	}
	defer zr.Close()

	var out []sourceFile
	for _, f := range zr.File {
		if LangOf(f.Name) == LangUnknown {
			continue
		}
		entry := f.Name
		out = append(out, sourceFile{
			path:    path + "!/" + entry,
			modTime: info.ModTime(),
			size:    int64(f.UncompressedSize64),
			read: func() ([]byte, error) {
				zr, err := zip.OpenReader(path)
				if err != nil {
					return nil, err
				}
				defer zr.Close()
				rc, err := zr.Open(entry)
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(rc)
			},
		})
	}
	return out, nil
}

// Has reports whether a type with the qualified name is declared.
func (g *Generation) Has(name string) bool {
	_, ok := g.types[name]
	return ok
}

// Lookup returns the declaration of a qualified type name.
func (g *Generation) Lookup(name string) (*FileDecls, *TypeDecl, bool) {
	loc, ok := g.types[name]
	if !ok {
		return nil, nil, false
	}
	return loc.file, &loc.file.Types[loc.index], true
}

// File returns the declarations extracted from path.
func (g *Generation) File(path string) (*FileDecls, bool) {
	e, ok := g.files[path]
	return e.decls, ok
}

// Files is the number of source files in the generation.
func (g *Generation) Files() int { return len(g.files) }

func (g *Generation) Names() []string           { return g.names }
func (g *Generation) AnnotationNames() []string { return g.annotations }
func (g *Generation) ImmutableNames() []string  { return g.immutables }

// Origin locates a declared type.
func (g *Generation) Origin(name string) (hosttype.Origin, bool) {
	file, td, ok := g.Lookup(name)
	if !ok {
		return hosttype.Origin{}, false
	}
	return hosttype.Origin{Backend: backendName, Path: file.Path, Line: td.Line, Col: td.Col}, true
}
