package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dtolsp/internal/diag"
	"dtolsp/internal/diagfmt"
	"dtolsp/internal/document"
	"dtolsp/internal/fix"
	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/observ"
	"dtolsp/internal/settings"
	"dtolsp/internal/source"
	"dtolsp/internal/version"
	"dtolsp/internal/workspace"
)

var checkCmd = &cobra.Command{
	Use:          "check [flags] [files|dirs...]",
	Short:        "Compile DTO files against their project and report diagnostics",
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	checkCmd.Flags().Int8("context", 1, "source lines shown around each diagnostic")
	checkCmd.Flags().Bool("notes", true, "show notes")
	checkCmd.Flags().Bool("fixes", false, "show suggested fixes")
	checkCmd.Flags().Bool("fix", false, "apply the first suggested fix of every diagnostic")
	checkCmd.Flags().String("fix-id", "", "apply only the fix with this id")
	checkCmd.Flags().Bool("timings", false, "print phase timings to stderr")
	checkCmd.Flags().String("settings", "", "settings file (default $XDG_CONFIG_HOME/dtolsp/settings.toml)")
}

// checkResult is one analyzed file.
type checkResult struct {
	path  string
	text  []byte
	items []diag.Diagnostic
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	timer := observ.NewTimer()
	idx := timer.Begin("discover")
	files, err := collectDtoFiles(args)
	if err != nil {
		return err
	}
	timer.End(idx, fmt.Sprintf("%d files", len(files)))
	if len(files) == 0 {
		if !quiet(cmd) {
			fmt.Fprintln(cmd.ErrOrStderr(), "no .dto files found")
		}
		return nil
	}

	cfg := loadSettings(cmd)
	cache, err := srcparse.OpenCache(appName)
	if err != nil {
		slog.Debug("declaration cache disabled", "error", err)
		cache = nil
	}
	base := commonDir(files)
	ws := workspace.New([]string{base}, cfg, cache, slog.Default())
	docs := document.NewManager(ws, document.Options{Log: slog.Default()})

	idx = timer.Begin("analyze")
	results, err := analyzeFiles(cmd.Context(), docs, files)
	if err != nil {
		return err
	}
	timer.End(idx, "")

	total := 0
	for _, r := range results {
		total += len(r.items)
	}
	fset := source.NewFileSet()
	bag := diag.NewBag(total)
	for _, r := range results {
		id := fset.Add(r.path, r.text, 0)
		for _, d := range r.items {
			bag.Add(rebase(d, id))
		}
	}

	cwd, _ := os.Getwd()
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		err = diagfmt.JSON(out, bag, fset, diagfmt.JSONOpts{
			IncludePositions: true,
			BaseDir:          cwd,
			Max:              maxDiagnostics(cmd),
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "sarif":
		err = diagfmt.Sarif(out, bag, fset, diagfmt.SarifRunMeta{
			ToolName:       appName,
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
			BaseDir:        cwd,
		})
	default:
		ctxLines, _ := cmd.Flags().GetInt8("context")
		notes, _ := cmd.Flags().GetBool("notes")
		fixes, _ := cmd.Flags().GetBool("fixes")
		diagfmt.Pretty(out, bag, fset, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stdout),
			Context:   ctxLines,
			BaseDir:   cwd,
			Max:       maxDiagnostics(cmd),
			ShowNotes: notes,
			ShowFixes: fixes,
		})
	}
	if err != nil {
		return err
	}

	if err := applyFixes(cmd, fset, bag.Items()); err != nil {
		return err
	}

	if timings, _ := cmd.Flags().GetBool("timings"); timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	errs := 0
	for _, d := range bag.Items() {
		if d.Severity == diag.SevError {
			errs++
		}
	}
	if !quiet(cmd) && format == "pretty" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s) checked, %d error(s)\n", len(files), errs)
	}
	if errs > 0 {
		return silentError{msg: fmt.Sprintf("%d error(s)", errs)}
	}
	return nil
}

// applyFixes runs the fix engine when --fix or --fix-id is set and reports
// what changed on stderr.
func applyFixes(cmd *cobra.Command, fset *source.FileSet, items []diag.Diagnostic) error {
	all, _ := cmd.Flags().GetBool("fix")
	id, _ := cmd.Flags().GetString("fix-id")
	if !all && id == "" {
		return nil
	}
	opts := fix.ApplyOptions{Mode: fix.ApplyModeAll}
	if id != "" {
		opts = fix.ApplyOptions{Mode: fix.ApplyModeID, TargetID: id}
	}
	res, err := fix.Apply(fset, items, opts)
	if errors.Is(err, fix.ErrNoFixes) {
		if !quiet(cmd) {
			fmt.Fprintln(cmd.ErrOrStderr(), "no fixes applied")
		}
		return nil
	}
	if err != nil {
		return err
	}
	if quiet(cmd) {
		return nil
	}
	w := cmd.ErrOrStderr()
	for _, a := range res.Applied {
		fmt.Fprintf(w, "fixed %s: %s\n", a.ID, a.Title)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.ID, s.Reason)
	}
	for _, ch := range res.FileChanges {
		slog.Info("file rewritten", "path", ch.Path, "edits", ch.EditCount)
	}
	return nil
}

// analyzeFiles opens every file in docs and analyzes them in parallel. The
// results keep the order of files.
func analyzeFiles(ctx context.Context, docs *document.Manager, files []string) ([]checkResult, error) {
	results := make([]checkResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			// #nosec G304 -- paths come from the command line
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text, _ := source.RemoveBOM(raw)
			text, _ = source.NormalizeCRLF(text)
			uri := workspace.URIFromPath(path)
			seq := docs.Open(uri, 0, string(text))
			snap, err := docs.Analyze(gctx, uri, seq)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = checkResult{path: path, text: text, items: snap.Diagnostics()}
			docs.Close(uri)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// rebase moves the spans of d, which belong to a single-file snapshot, onto id.
func rebase(d diag.Diagnostic, id source.FileID) diag.Diagnostic {
	d.Primary.File = id
	if len(d.Notes) > 0 {
		notes := make([]diag.Note, len(d.Notes))
		for i, n := range d.Notes {
			n.Span.File = id
			notes[i] = n
		}
		d.Notes = notes
	}
	if len(d.Fixes) > 0 {
		fixes := make([]diag.Fix, len(d.Fixes))
		for i, f := range d.Fixes {
			edits := make([]diag.FixEdit, len(f.Edits))
			for j, e := range f.Edits {
				e.Span.File = id
				edits[j] = e
			}
			fixes[i] = diag.Fix{Title: f.Title, Edits: edits}
		}
		d.Fixes = fixes
	}
	return d
}

func loadSettings(cmd *cobra.Command) settings.Settings {
	path, _ := cmd.Flags().GetString("settings")
	if path == "" {
		p, err := settings.Path(appName)
		if err != nil {
			return settings.Default()
		}
		path = p
	}
	s, err := settings.Load(path)
	if err != nil {
		slog.Warn("settings ignored", "error", err)
	}
	return s
}
