package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"dtolsp/internal/diag"
	"dtolsp/internal/source"
)

type palette struct {
	err, warn, info, path, gutter, caret, note, fix *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		note:   color.New(color.FgCyan),
		fix:    color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.caret, p.note, p.fix} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes human-readable diagnostics:
//
//	Book.dto:2:11: ERROR DTO3002: no property "nme" in Book
//	   2 |     nme
//	     |     ^~~
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for i, d := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	f := fs.Get(d.Primary.File)
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		pal.path.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)),
		pal.severity(d.Severity).Sprint(d.Severity.String()),
		d.Code.ID(),
		d.Message)
	if f != nil {
		writeSnippet(w, f, d.Primary, int(opts.Context), pal)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n",
				pal.note.Sprint("note:"),
				location(fs, n.Span, opts.PathMode, opts.BaseDir),
				n.Msg)
		}
	}
	if opts.ShowFixes {
		for i, fx := range d.Fixes {
			fmt.Fprintf(w, "  %s %s\n", pal.fix.Sprintf("fix #%d:", i+1), fx.Title)
			for _, e := range fx.Edits {
				start, end := fs.Resolve(e.Span)
				fmt.Fprintf(w, "    edit %d:%d-%d:%d apply=%s\n",
					start.Line, start.Col+1, end.Line, end.Col+1, strconv.Quote(e.NewText))
				if !opts.ShowPreview {
					continue
				}
				pv, err := buildFixEditPreview(fs, e)
				if err != nil {
					fmt.Fprintf(w, "    preview unavailable: %v\n", err)
					continue
				}
				fmt.Fprintln(w, "    preview:")
				for _, l := range pv.before {
					fmt.Fprintf(w, "      - %s\n", l)
				}
				for _, l := range pv.after {
					fmt.Fprintf(w, "      + %s\n", l)
				}
			}
		}
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, baseDir string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	pos := f.Position(sp.Start)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, mode, baseDir), pos.Line, pos.Col+1)
}

func writeSnippet(w io.Writer, f *source.File, sp source.Span, context int, pal palette) {
	start := f.Position(sp.Start)
	end := f.Position(sp.End)
	first := max(1, int(start.Line)-context)
	last := min(f.LineCount(), int(start.Line)+context)
	width := len(strconv.Itoa(last))
	blank := strings.Repeat(" ", width)

	for ln := first; ln <= last; ln++ {
		line := f.GetLine(uint32(ln)) // #nosec G115 -- bounded by LineCount
		fmt.Fprintf(w, " %s %s %s\n", pal.gutter.Sprintf("%*d", width, ln), pal.gutter.Sprint("|"), line)
		if ln != int(start.Line) {
			continue
		}
		from := min(int(start.Col), len(line))
		to := len(line)
		if end.Line == start.Line {
			to = min(int(end.Col), len(line))
		}
		fmt.Fprintf(w, " %s %s %s%s\n", blank, pal.gutter.Sprint("|"), padding(line[:from]), pal.caret.Sprint(underline(line[from:max(from, to)])))
	}
}

// padding mirrors prefix with blanks of the same display width, keeping tabs.
func padding(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return sb.String()
}

func underline(text string) string {
	n := runewidth.StringWidth(text)
	if n <= 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", n-1)
}
