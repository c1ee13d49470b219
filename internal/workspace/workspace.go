package workspace

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dtolsp/internal/compiler"
	"dtolsp/internal/document"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/settings"
)

// Workspace owns one Environment per project seen so far.
type Workspace struct {
	log   *slog.Logger
	cache *srcparse.Cache

	mu       sync.Mutex
	folders  []string
	settings settings.Settings
	deps     map[string][]string
	envs     map[string]*Environment
}

func New(folders []string, s settings.Settings, cache *srcparse.Cache, log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		log:      log,
		cache:    cache,
		folders:  slices.Clone(folders),
		settings: s,
		deps:     make(map[string][]string),
		envs:     make(map[string]*Environment),
	}
}

func (w *Workspace) Folders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.folders)
}

func (w *Workspace) SetFolders(folders []string) {
	w.mu.Lock()
	w.folders = slices.Clone(folders)
	w.mu.Unlock()
}

func (w *Workspace) Settings() settings.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// SetSettings installs s. Environments are rebuilt lazily when the classpath
// strategy changed.
func (w *Workspace) SetSettings(s settings.Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.Classpath != w.settings.Classpath {
		w.envs = make(map[string]*Environment)
	}
	w.settings = s
}

// SetDependencies records build-tool dependencies for a project directory.
func (w *Workspace) SetDependencies(project string, deps []string) {
	w.mu.Lock()
	w.deps[project] = slices.Clone(deps)
	delete(w.envs, project)
	w.mu.Unlock()
}

// EnvironmentFor returns the environment of the project holding file. Files
// outside any project use the workspace folder that contains them, or the
// first folder.
func (w *Workspace) EnvironmentFor(file string) (*Environment, error) {
	project, ok, err := FindProjectDir(file, false)
	if err != nil {
		return nil, err
	}
	root, _, _ := FindProjectDir(file, true)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !ok {
		project = w.folderOfLocked(file)
		root = project
	}
	if env, ok := w.envs[project]; ok {
		return env, nil
	}
	env, err := NewEnvironment(project, EnvOptions{
		Classpath:    w.settings.Classpath,
		Dependencies: w.deps[project],
		RootProject:  root,
		Cache:        w.cache,
		Log:          w.log,
	})
	if err != nil {
		return nil, err
	}
	w.envs[project] = env
	w.log.Debug("environment created", "env", env.String())
	return env, nil
}

func (w *Workspace) folderOfLocked(file string) string {
	for _, f := range w.folders {
		if rel, err := filepath.Rel(f, file); err == nil && !strings.HasPrefix(rel, "..") {
			return f
		}
	}
	if len(w.folders) > 0 {
		return w.folders[0]
	}
	return filepath.Dir(file)
}

// Environments lists the environments created so far, by project.
func (w *Workspace) Environments() []*Environment {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := slices.Sorted(maps.Keys(w.envs))
	out := make([]*Environment, len(keys))
	for i, k := range keys {
		out[i] = w.envs[k]
	}
	return out
}

// Refresh rebuilds every known environment.
func (w *Workspace) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, env := range w.Environments() {
		g.Go(func() error { return env.Refresh(gctx) })
	}
	return g.Wait()
}

// Invalidate forgets every environment and the declaration cache, so the
// next use rescans from scratch.
func (w *Workspace) Invalidate() error {
	w.mu.Lock()
	w.envs = make(map[string]*Environment)
	w.mu.Unlock()
	return w.cache.DropAll()
}

// ResolveBaseType implements document.Resolver.
func (w *Workspace) ResolveBaseType(ctx context.Context, uri string, hint compiler.BaseTypeQuery) document.Resolution {
	path := PathFromURI(uri)
	res := document.Resolution{Name: hint.SourceTypeName()}
	if path == "" {
		return res
	}
	env, err := w.ensured(ctx, path)
	if err != nil {
		return res
	}
	if rel, err := filepath.Rel(env.Project, filepath.Dir(path)); err == nil && !strings.HasPrefix(rel, "..") {
		hint.Dir = filepath.ToSlash(rel)
	}
	hctx, base, name := env.ResolveBaseType(ctx, hint)
	return document.Resolution{Context: hctx, Base: base, Name: name}
}

// Names are the host names a DTO file can refer to.
type Names struct {
	Classes     []string
	Annotations []string
	Immutables  []string
}

// NamesFor lists the names visible from file, indexing its project first.
func (w *Workspace) NamesFor(ctx context.Context, file string) Names {
	env, err := w.ensured(ctx, file)
	if err != nil {
		return Names{}
	}
	return Names{
		Classes:     env.ClassNames(),
		Annotations: env.AnnotationNames(),
		Immutables:  env.ImmutableNames(),
	}
}

// Origin locates the declaration of the host type name as seen from file.
func (w *Workspace) Origin(ctx context.Context, file, name string) (hosttype.Origin, bool) {
	env, err := w.ensured(ctx, file)
	if err != nil {
		return hosttype.Origin{}, false
	}
	return env.Origin(name)
}

// ProjectDir is the project directory holding file, or "".
func (w *Workspace) ProjectDir(file string) string {
	env, err := w.EnvironmentFor(file)
	if err != nil {
		return ""
	}
	return env.Project
}

func (w *Workspace) ensured(ctx context.Context, file string) (*Environment, error) {
	env, err := w.EnvironmentFor(file)
	if err != nil {
		w.log.Debug("no environment", "file", file, "error", err)
		return nil, err
	}
	if err := env.Ensure(ctx); err != nil {
		w.log.Warn("index refresh failed", "project", env.Project, "error", err)
	}
	return env, nil
}

// Watch starts a file watcher over the roots of the environments created so
// far. Changes refresh the environments owning them. The caller closes the
// returned watcher; call Watch again after new environments appear.
func (w *Workspace) Watch(ctx context.Context, opts WatcherOptions) (*Watcher, error) {
	envs := w.Environments()
	for _, env := range envs {
		opts.Exclude = append(opts.Exclude, env.Config.Exclude...)
	}
	if opts.Log == nil {
		opts.Log = w.log
	}
	watcher, err := NewWatcher(opts, func(ctx context.Context, paths []string) {
		for _, env := range Owners(w.Environments(), paths) {
			if err := env.Refresh(ctx); err != nil {
				w.log.Warn("refresh after change failed", "project", env.Project, "error", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(ctx, WatchRoots(envs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// DtoFiles lists the DTO files of every folder and its subprojects.
func (w *Workspace) DtoFiles() []string {
	var out []string
	for _, f := range w.Folders() {
		files, err := DtoFiles(f)
		if err != nil {
			w.log.Debug("dto scan failed", "folder", f, "error", err)
			continue
		}
		out = append(out, files...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
