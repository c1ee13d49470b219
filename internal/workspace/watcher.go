package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"golang.org/x/time/rate"

	"dtolsp/internal/observ"
)

// watchedExts are the file kinds whose changes invalidate an index.
var watchedExts = map[string]bool{".java": true, ".kt": true, ".class": true, ".jar": true}

// Watcher reports batches of changed host files. Bursts are coalesced by a
// debounce timer and flushes are throttled by a token bucket.
type Watcher struct {
	fsw      *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration
	limiter  *rate.Limiter
	excludes []glob.Glob
	onChange func(context.Context, []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	ctx     context.Context
	done    chan struct{}
}

type WatcherOptions struct {
	Debounce time.Duration
	// Burst and Every configure the flush rate limit.
	Burst   int
	Every   time.Duration
	Exclude []string
	Log     *slog.Logger
}

func NewWatcher(opts WatcherOptions, onChange func(context.Context, []string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Every <= 0 {
		opts.Every = 2 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	excludes := make([]glob.Glob, 0, len(opts.Exclude)+1)
	for _, pattern := range append([]string{".*"}, opts.Exclude...) {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, g)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		log:      opts.Log,
		debounce: opts.Debounce,
		limiter:  rate.NewLimiter(rate.Every(opts.Every), opts.Burst),
		excludes: excludes,
		onChange: onChange,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Watch adds every directory below roots, then serves events until ctx ends
// or Close is called. Missing roots and jar files are watched through their
// parent directory.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			root = filepath.Dir(root)
			if _, err := os.Stat(root); err != nil {
				continue
			}
			if err := w.fsw.Add(root); err != nil {
				return err
			}
			continue
		}
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	slices.Sort(list)
	return list
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, g := range w.excludes {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observ.WatcherEvents.Inc()
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.excluded(event.Name) {
						if err := w.addRecursive(event.Name); err != nil {
							w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if w.excluded(event.Name) || !watchedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	ctx := w.ctx
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	if len(paths) == 0 || ctx == nil {
		return
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}
	slices.Sort(paths)
	w.onChange(ctx, paths)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// WatchRoots lists what a watcher should observe for the environments: their
// source roots and classpath entries.
func WatchRoots(envs []*Environment) []string {
	var out []string
	for _, env := range envs {
		r := env.Roots()
		out = append(out, r.Sources...)
		out = append(out, r.Classpath...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Owners returns the environments whose roots contain any of paths.
func Owners(envs []*Environment, paths []string) []*Environment {
	var out []*Environment
	for _, env := range envs {
		r := env.Roots()
		roots := slices.Concat(r.Sources, r.Classpath)
		if slices.ContainsFunc(paths, func(p string) bool {
			return slices.ContainsFunc(roots, func(root string) bool { return within(root, p) })
		}) {
			out = append(out, env)
		}
	}
	return out
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
