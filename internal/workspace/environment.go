package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"dtolsp/internal/compiler"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/hosttype/reflected"
	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/observ"
	"dtolsp/internal/settings"
)

var tracer = otel.Tracer("dtolsp/workspace")

// Roots are the inputs of one environment.
type Roots struct {
	Classpath []string
	Sources   []string
}

// EnvOptions configures NewEnvironment.
type EnvOptions struct {
	Classpath settings.Classpath
	// Dependencies are extra classpath entries resolved by the build tool.
	Dependencies []string
	// RootProject is the outermost project, used to find sibling modules.
	RootProject string
	Cache       *srcparse.Cache
	Log         *slog.Logger
	// Progress receives refresh events; nil discards them.
	Progress ProgressSink
}

// Environment is the host type universe of one project: compiled classes
// and parsed sources behind one provider chain.
type Environment struct {
	Project string
	Config  *ProjectConfig

	opts    EnvOptions
	log     *slog.Logger
	classes *reflected.Index
	sources *srcparse.Index
	chain   *hosttype.Chain
}

func NewEnvironment(project string, opts EnvOptions) (*Environment, error) {
	cfg, err := LoadProjectConfig(project)
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("project", project)
	env := &Environment{Project: project, Config: cfg, opts: opts, log: log}
	roots := env.Roots()
	env.classes = reflected.NewIndex(roots.Classpath, log)
	env.sources = srcparse.NewIndex(roots.Sources, opts.Cache, log)
	env.chain = hosttype.NewChain(cfg.VerifyBackends,
		reflected.NewProvider(env.classes),
		srcparse.NewProvider(env.sources),
	)
	return env, nil
}

// Roots computes classpath and source roots from the project layout,
// the classpath settings, and dtolsp.toml.
func (e *Environment) Roots() Roots {
	var r Roots
	projects := []string{e.Project}
	if e.opts.Classpath.FindOtherProject && e.opts.RootProject != "" {
		projects = append(projects, e.opts.RootProject)
		if subs, err := FindSubprojects(e.opts.RootProject); err == nil {
			projects = append(projects, subs...)
		}
	}
	for _, p := range projects {
		if e.opts.Classpath.FindBuilder {
			r.Classpath = append(r.Classpath, FindClasspath(p)...)
		}
		r.Sources = append(r.Sources, SourceRoots(p)...)
	}
	if e.opts.Classpath.FindConfiguration {
		deps := append(DependencySources(e.Project), e.opts.Dependencies...)
		for _, d := range deps {
			if strings.HasSuffix(d, "-sources.jar") {
				r.Sources = append(r.Sources, d)
			} else {
				r.Classpath = append(r.Classpath, d)
			}
		}
	}
	r.Classpath = append(r.Classpath, e.Config.ExtraClasspath...)
	r.Sources = append(r.Sources, e.Config.ExtraSources...)
	r.Classpath = dedup(e.Config.filterRoots(e.Project, r.Classpath))
	r.Sources = dedup(e.Config.filterRoots(e.Project, r.Sources))
	return r
}

func dedup(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Refresh recomputes the roots and rebuilds both indexes in parallel.
func (e *Environment) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "workspace.Refresh")
	defer span.End()

	roots := e.Roots()
	e.classes.SetRoots(roots.Classpath)
	e.sources.SetRoots(roots.Sources)

	var (
		classGen  *reflected.Generation
		sourceGen *srcparse.Generation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		e.emit(Event{Stage: StageClasses, Status: StatusWorking})
		var err error
		classGen, err = e.classes.Refresh(gctx)
		if err != nil {
			e.emit(Event{Stage: StageClasses, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			return err
		}
		e.emit(Event{Stage: StageClasses, Status: StatusDone, Count: len(classGen.Names()), Elapsed: time.Since(start)})
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		e.emit(Event{Stage: StageSources, Status: StatusWorking})
		var err error
		sourceGen, err = e.sources.Refresh(gctx)
		if err != nil {
			e.emit(Event{Stage: StageSources, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			return err
		}
		e.emit(Event{Stage: StageSources, Status: StatusDone, Count: sourceGen.Files(), Elapsed: time.Since(start)})
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh %s: %w", e.Project, err)
	}

	observ.IndexGeneration.WithLabelValues("reflected").Set(float64(classGen.Seq))
	observ.IndexFiles.WithLabelValues("reflected").Set(float64(len(classGen.Names())))
	observ.IndexGeneration.WithLabelValues("srcparse").Set(float64(sourceGen.Seq))
	observ.IndexFiles.WithLabelValues("srcparse").Set(float64(sourceGen.Files()))
	span.SetAttributes(
		attribute.Int("workspace.classes", len(classGen.Names())),
		attribute.Int("workspace.sources", sourceGen.Files()),
	)
	e.log.Info("environment refreshed",
		"classpath", len(roots.Classpath), "sources", len(roots.Sources),
		"classes", len(classGen.Names()), "declared", len(sourceGen.Names()))
	return nil
}

// Ready reports whether both indexes have published a generation.
func (e *Environment) Ready() bool {
	return e.classes.Generation() != nil && e.sources.Generation() != nil
}

// Ensure refreshes once when nothing was indexed yet.
func (e *Environment) Ensure(ctx context.Context) error {
	if e.Ready() {
		return nil
	}
	return e.Refresh(ctx)
}

// NewContext starts a resolution pass over the current generations.
func (e *Environment) NewContext() *hosttype.Context {
	return hosttype.NewContext(e.chain, e.log)
}

func (e *Environment) Provider() hosttype.Provider { return e.chain }

func (e *Environment) ClassNames() []string      { return e.chain.ClassNames() }
func (e *Environment) AnnotationNames() []string { return e.chain.AnnotationNames() }
func (e *Environment) ImmutableNames() []string  { return e.chain.ImmutableNames() }

// Origin locates the declaration of a type, preferring source.
func (e *Environment) Origin(name string) (hosttype.Origin, bool) {
	if gen := e.sources.Generation(); gen != nil {
		if o, ok := gen.Origin(name); ok {
			return o, true
		}
	}
	if gen := e.classes.Generation(); gen != nil {
		if _, o, err := gen.Class(name); err == nil {
			return o, true
		}
	}
	return hosttype.Origin{}, false
}

// ResolveBaseType resolves hint in a fresh context. Backend disagreement is
// logged and treated as no match.
func (e *Environment) ResolveBaseType(ctx context.Context, hint compiler.BaseTypeQuery) (*hosttype.Context, hosttype.BaseType, string) {
	_, span := tracer.Start(ctx, "workspace.ResolveBaseType")
	defer span.End()
	hctx := e.NewContext()
	base, name := compiler.ResolveBaseType(hctx, hint)
	for _, err := range hctx.ErrorsFor(name) {
		var inc *hosttype.InconsistencyError
		if errors.As(err, &inc) {
			e.log.Warn("backends disagree", "type", inc.Name, "first", inc.First, "second", inc.Second, "detail", inc.Detail)
		}
	}
	span.SetAttributes(attribute.String("dto.base", name), attribute.Bool("dto.resolved", base != nil))
	return hctx, base, name
}

func (e *Environment) String() string {
	r := e.Roots()
	return e.Project + " (" + strconv.Itoa(len(r.Classpath)) + " classpath, " + strconv.Itoa(len(r.Sources)) + " source roots)"
}
